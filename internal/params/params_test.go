package params

import "testing"

func TestTypedAccess(t *testing.T) {
	// Карта в форме, которую даёт json.Unmarshal в map[string]any
	p := map[string]any{
		"name":    "value",
		"port":    float64(9100),
		"enabled": true,
		"headers": map[string]any{"X-Token": "t", "num": float64(1)},
		"args":    []any{"a", "b", float64(2)},
	}

	if got := String(p, "name"); got != "value" {
		t.Errorf("String: got %q", got)
	}
	if got := String(p, "port"); got != "" {
		t.Errorf("String on number should be empty, got %q", got)
	}
	if got := StringOr(p, "absent", "fallback"); got != "fallback" {
		t.Errorf("StringOr: got %q", got)
	}
	if got := Int(p, "port"); got != 9100 {
		t.Errorf("Int: got %d", got)
	}
	if got := Int(p, "absent"); got != 0 {
		t.Errorf("Int on absent: got %d", got)
	}
	if !Bool(p, "enabled", false) {
		t.Error("Bool: expected true")
	}
	if !Bool(p, "absent", true) {
		t.Error("Bool on absent should return default")
	}

	headers := StringMap(p, "headers")
	if headers["X-Token"] != "t" {
		t.Errorf("StringMap: got %v", headers)
	}
	if _, ok := headers["num"]; ok {
		t.Error("non-string map values should be dropped")
	}

	args := StringSlice(p, "args")
	if len(args) != 2 || args[0] != "a" || args[1] != "b" {
		t.Errorf("StringSlice: got %v", args)
	}
}
