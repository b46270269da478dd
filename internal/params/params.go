// Package params содержит извлечение типизированных значений из
// map[string]any параметров адаптеров (поле params в декларациях
// источников, шагов и sinks).
package params

// String извлекает строковое значение.
func String(params map[string]any, key string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// StringOr извлекает строковое значение с значением по умолчанию.
func StringOr(params map[string]any, key, defaultVal string) string {
	if s := String(params, key); s != "" {
		return s
	}
	return defaultVal
}

// Int извлекает числовое значение.
// JSON-декодер даёт float64 — приводим.
func Int(params map[string]any, key string) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 0
}

// Bool извлекает булево значение.
func Bool(params map[string]any, key string, defaultVal bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// StringMap извлекает map[string]string.
func StringMap(params map[string]any, key string) map[string]string {
	if v, ok := params[key]; ok {
		switch m := v.(type) {
		case map[string]string:
			return m
		case map[string]any:
			result := make(map[string]string)
			for k, val := range m {
				if s, ok := val.(string); ok {
					result[k] = s
				}
			}
			return result
		}
	}
	return nil
}

// StringSlice извлекает []string.
func StringSlice(params map[string]any, key string) []string {
	if v, ok := params[key]; ok {
		switch s := v.(type) {
		case []string:
			return s
		case []any:
			result := make([]string, 0, len(s))
			for _, val := range s {
				if str, ok := val.(string); ok {
					result = append(result, str)
				}
			}
			return result
		}
	}
	return nil
}
