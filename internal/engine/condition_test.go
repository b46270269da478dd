package engine

import "testing"

func TestParseCondition_Numeric(t *testing.T) {
	cond, err := ParseCondition("threat_level > 0.8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cond.Field != "threat_level" {
		t.Errorf("expected field threat_level, got %s", cond.Field)
	}
	if cond.Op != OpGT {
		t.Errorf("expected op >, got %s", cond.Op)
	}
	if !cond.numeric {
		t.Error("literal 0.8 should be numeric")
	}
}

func TestParseCondition_QuotedString(t *testing.T) {
	cond, err := ParseCondition(`status == "high alert"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cond.Value != "high alert" {
		t.Errorf("expected unquoted value, got %q", cond.Value)
	}
	if cond.numeric {
		t.Error("string literal should not be numeric")
	}
}

func TestParseCondition_Errors(t *testing.T) {
	cases := []struct {
		name string
		expr string
	}{
		{"empty", ""},
		{"missing value", "threat_level >"},
		{"unknown operator", "threat_level >> 1"},
		{"ordering needs number", "status > high"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseCondition(tc.expr); err == nil {
				t.Errorf("expected error for %q", tc.expr)
			}
		})
	}
}

func TestCondition_Match(t *testing.T) {
	cond, err := ParseCondition("threat_level > 0.8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		name     string
		metadata map[string]string
		want     bool
	}{
		{"above threshold", map[string]string{"threat_level": "0.9"}, true},
		{"below threshold", map[string]string{"threat_level": "0.5"}, false},
		{"equal is not greater", map[string]string{"threat_level": "0.8"}, false},
		{"field absent", map[string]string{"other": "1.0"}, false},
		{"field not a number", map[string]string{"threat_level": "high"}, false},
		{"empty metadata", map[string]string{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cond.Match(tc.metadata); got != tc.want {
				t.Errorf("Match(%v) = %v, want %v", tc.metadata, got, tc.want)
			}
		})
	}
}

func TestCondition_MatchStringEquality(t *testing.T) {
	eq, err := ParseCondition("region == eu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !eq.Match(map[string]string{"region": "eu"}) {
		t.Error("region == eu should match eu")
	}
	if eq.Match(map[string]string{"region": "us"}) {
		t.Error("region == eu should not match us")
	}

	ne, err := ParseCondition("region != eu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ne.Match(map[string]string{"region": "us"}) {
		t.Error("region != eu should match us")
	}
	if ne.Match(map[string]string{"region": "eu"}) {
		t.Error("region != eu should not match eu")
	}
	// Отсутствие поля — false и для !=
	if ne.Match(map[string]string{}) {
		t.Error("absent field should never match")
	}
}

func TestCondition_MatchNumericEquality(t *testing.T) {
	// Числовой литерал сравнивается как число: "1.0" == "1"
	cond, err := ParseCondition("count == 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cond.Match(map[string]string{"count": "1.0"}) {
		t.Error("1.0 should equal 1 numerically")
	}
}
