// Package template resolves {{name}} placeholders in step configuration
// against an execution's variable map. Resolution is pure: inputs are never
// mutated and unknown placeholders are left in place.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_.]*)\s*\}\}`)

// Resolve substitutes placeholders in a single value. A string that is exactly
// one placeholder returns the variable's raw typed value; a string with
// surrounding text returns a string with each placeholder interpolated.
// Non-string values pass through untouched.
func Resolve(value any, variables map[string]any) any {
	str, ok := value.(string)
	if !ok {
		return value
	}

	if name, whole := wholePlaceholder(str); whole {
		if resolved, found := variables[name]; found {
			return resolved
		}

		return str
	}

	return placeholderPattern.ReplaceAllStringFunc(str, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])

		resolved, found := variables[name]
		if !found {
			return match
		}

		return fmt.Sprintf("%v", resolved)
	})
}

// ResolveConfig walks a configuration tree, resolving placeholders in every
// string leaf. Maps and slices are copied; the input is left untouched.
func ResolveConfig(config map[string]any, variables map[string]any) map[string]any {
	resolved := make(map[string]any, len(config))
	for key, value := range config {
		resolved[key] = resolveValue(value, variables)
	}

	return resolved
}

func resolveValue(value any, variables map[string]any) any {
	switch v := value.(type) {
	case string:
		return Resolve(v, variables)
	case map[string]any:
		return ResolveConfig(v, variables)
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = resolveValue(item, variables)
		}

		return items
	default:
		return value
	}
}

// wholePlaceholder reports whether the string is exactly one placeholder and
// returns the variable name if so.
func wholePlaceholder(str string) (string, bool) {
	match := placeholderPattern.FindStringSubmatchIndex(str)
	if match == nil || match[0] != 0 || match[1] != len(str) {
		return "", false
	}

	return strings.TrimSpace(str[match[2]:match[3]]), true
}
