package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Condition evaluation supports a restricted comparison grammar: the operators
// ==, !=, > and <, the literals true/false, and a bare-truthiness fallback for
// a single operand.

// Compare evaluates left <op> right. Numeric comparison is used whenever both
// operands coerce to numbers; otherwise == and != fall back to string equality
// and ordered operators fail.
func Compare(left, right any, operator string) (bool, error) {
	leftNum, leftOK := toNumber(left)
	rightNum, rightOK := toNumber(right)

	if leftOK && rightOK {
		switch operator {
		case "==":
			return leftNum == rightNum, nil
		case "!=":
			return leftNum != rightNum, nil
		case ">":
			return leftNum > rightNum, nil
		case "<":
			return leftNum < rightNum, nil
		default:
			return false, fmt.Errorf("unsupported operator %q", operator)
		}
	}

	leftStr := fmt.Sprintf("%v", left)
	rightStr := fmt.Sprintf("%v", right)

	switch operator {
	case "==":
		return leftStr == rightStr, nil
	case "!=":
		return leftStr != rightStr, nil
	case ">", "<":
		return false, fmt.Errorf("operator %q requires numeric operands, got %q and %q", operator, leftStr, rightStr)
	default:
		return false, fmt.Errorf("unsupported operator %q", operator)
	}
}

// Truthy converts a single operand to a boolean: the literals true/false,
// non-zero numbers, and non-empty strings are true; nil is false.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if parsed, err := strconv.ParseBool(trimmed); err == nil {
			return parsed
		}

		return trimmed != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return true
	}
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}

		return parsed, true
	default:
		return 0, false
	}
}
