package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Операторы условий доставки.
const (
	OpGT = ">"
	OpLT = "<"
	OpGE = ">="
	OpLE = "<="
	OpEQ = "=="
	OpNE = "!="
)

// Condition — скомпилированное условие доставки sink.
//
// Грамматика: `<field> <op> <value>`, где field — ключ метаданных
// элемента, op ∈ {>, <, >=, <=, ==, !=}, value — числовой или
// строковый литерал (строки можно брать в одинарные или двойные
// кавычки).
//
// Отсутствующее или нечисловое (для числовых сравнений) поле — это
// "не совпало", а не ошибка: элемент просто не доставляется.
type Condition struct {
	// Field — ключ метаданных.
	Field string

	// Op — оператор сравнения.
	Op string

	// Value — литерал в исходном виде (без кавычек).
	Value string

	// num и numeric — распарсенное числовое значение литерала.
	num     float64
	numeric bool
}

// ParseCondition компилирует выражение условия.
//
// Для порядковых операторов (>, <, >=, <=) литерал обязан быть
// числом: строковое сравнение по порядку не поддерживается
// минимальной грамматикой.
func ParseCondition(expr string) (*Condition, error) {
	tokens := strings.Fields(strings.TrimSpace(expr))
	if len(tokens) < 3 {
		return nil, fmt.Errorf("condition %q: expected <field> <op> <value>", expr)
	}

	field := tokens[0]
	op := tokens[1]

	// Строковый литерал с пробелами: склеиваем хвост обратно
	value := strings.Join(tokens[2:], " ")
	value = unquote(value)

	switch op {
	case OpGT, OpLT, OpGE, OpLE, OpEQ, OpNE:
	default:
		return nil, fmt.Errorf("condition %q: unknown operator %q", expr, op)
	}

	cond := &Condition{Field: field, Op: op, Value: value}

	if num, err := strconv.ParseFloat(value, 64); err == nil {
		cond.num = num
		cond.numeric = true
	}

	switch op {
	case OpGT, OpLT, OpGE, OpLE:
		if !cond.numeric {
			return nil, fmt.Errorf("condition %q: operator %q requires a numeric literal", expr, op)
		}
	}

	return cond, nil
}

// Match проверяет условие против метаданных элемента.
//
// Отсутствие поля — false. Для числовых сравнений значение поля
// парсится как float64; ошибка парсинга — false.
func (c *Condition) Match(metadata map[string]string) bool {
	raw, ok := metadata[c.Field]
	if !ok {
		return false
	}

	// Числовое сравнение, если литерал числовой
	if c.numeric {
		fieldNum, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return false
		}
		return compareNumeric(fieldNum, c.Op, c.num)
	}

	// Строковое сравнение — только равенство/неравенство
	switch c.Op {
	case OpEQ:
		return raw == c.Value
	case OpNE:
		return raw != c.Value
	default:
		return false
	}
}

// compareNumeric сравнивает два числа по оператору.
func compareNumeric(a float64, op string, b float64) bool {
	switch op {
	case OpGT:
		return a > b
	case OpLT:
		return a < b
	case OpGE:
		return a >= b
	case OpLE:
		return a <= b
	case OpEQ:
		return a == b
	case OpNE:
		return a != b
	default:
		return false
	}
}

// unquote снимает обрамляющие кавычки со строкового литерала.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
