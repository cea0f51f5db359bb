package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeSlug(t *testing.T) {
	cases := map[string]string{
		"Hello, World!":      "hello-world",
		"  Über  Café  ":     "ber-caf",
		"Products & Pricing": "products-pricing",
		"---":                "page",
		"":                   "page",
	}
	for in, want := range cases {
		assert.Equal(t, want, MakeSlug(in), in)
	}
}

func TestBuildPath(t *testing.T) {
	assert.Equal(t, "/", BuildPath("", ""))
	assert.Equal(t, "/about", BuildPath("", "about"))
	assert.Equal(t, "/about", BuildPath("/", "about"))
	assert.Equal(t, "/products/phones", BuildPath("/products/", "/phones"))
	assert.Equal(t, "/products", BuildPath("/products", ""))
}

func TestLastSegment(t *testing.T) {
	assert.Equal(t, "phones", LastSegment("/products/phones"))
	assert.Equal(t, "phones", LastSegment("/products/phones/"))
	assert.Equal(t, "", LastSegment("/"))
	assert.Equal(t, "solo", LastSegment("solo"))
}

func TestReplaceSlugPrefix(t *testing.T) {
	tests := []struct {
		name, child, old, new, want string
	}{
		{"equal to parent", "/a", "/a", "/x", "/x"},
		{"separator prefix", "/a/b/c", "/a", "/x", "/x/b/c"},
		{"bare prefix", "/abc", "/a", "/x", "/xbc"},
		{"no relation", "/elsewhere/leaf", "/a", "/x", "/x/leaf"},
		{"root parent", "/about", "/", "/company", "/company/about"},
		{"does not match mid-path", "/b/a/c", "/a", "/x", "/x/c"},
		{"empty old prefix keeps child", "/a/c", "", "/x", "/a/c"},
		{"empty old prefix to empty", "/a/c", "", "", "/a/c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReplaceSlugPrefix(tt.child, tt.old, tt.new))
		})
	}
}
