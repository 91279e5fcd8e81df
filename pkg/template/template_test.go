package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_WholeValueKeepsType(t *testing.T) {
	variables := map[string]any{
		"count": 42,
		"rate":  1.5,
		"flag":  true,
		"items": []any{"a", "b"},
	}

	assert.Equal(t, 42, Resolve("{{count}}", variables))
	assert.Equal(t, 1.5, Resolve("{{rate}}", variables))
	assert.Equal(t, true, Resolve("{{ flag }}", variables))
	assert.Equal(t, []any{"a", "b"}, Resolve("{{items}}", variables))
}

func TestResolve_PartialYieldsString(t *testing.T) {
	variables := map[string]any{"name": "ada", "count": 3}

	assert.Equal(t, "hello ada", Resolve("hello {{name}}", variables))
	assert.Equal(t, "3 of 3", Resolve("{{count}} of {{count}}", variables))
}

func TestResolve_UnknownPlaceholderLeftInPlace(t *testing.T) {
	variables := map[string]any{"name": "ada"}

	assert.Equal(t, "{{missing}}", Resolve("{{missing}}", variables))
	assert.Equal(t, "hi {{missing}}", Resolve("hi {{missing}}", variables))
}

func TestResolve_NonStringPassesThrough(t *testing.T) {
	assert.Equal(t, 7, Resolve(7, nil))
	assert.Equal(t, nil, Resolve(nil, nil))
}

func TestResolveConfig_WalksNestedStructures(t *testing.T) {
	variables := map[string]any{"url": "https://example.com", "page": 2}

	config := map[string]any{
		"target": "{{url}}",
		"query":  map[string]any{"page": "{{page}}"},
		"list":   []any{"{{url}}/a", "{{url}}/b"},
		"number": 10,
	}

	resolved := ResolveConfig(config, variables)

	assert.Equal(t, "https://example.com", resolved["target"])
	assert.Equal(t, 2, resolved["query"].(map[string]any)["page"])
	assert.Equal(t, []any{"https://example.com/a", "https://example.com/b"}, resolved["list"])
	assert.Equal(t, 10, resolved["number"])

	// Input config untouched.
	assert.Equal(t, "{{url}}", config["target"])
}
