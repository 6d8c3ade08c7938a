package browser

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCondenseHTML_DropsNoise(t *testing.T) {
	raw := `<html><head><title>Shop</title><style>body{color:red}</style></head>
	<body><script>alert("hi")</script><!-- comment --><p>Welcome to the shop</p></body></html>`

	text := CondenseHTML(raw, 0)
	assert.Contains(t, text, "Welcome to the shop")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "comment")
}

func TestCondenseHTML_AnnotatesInteractiveElements(t *testing.T) {
	raw := `<body>
	<a href="/docs">Documentation</a>
	<button id="submit">Log in</button>
	<input name="q" type="search">
	</body>`

	text := CondenseHTML(raw, 0)
	assert.Contains(t, text, `[link a[href="/docs"] "Documentation"]`)
	assert.Contains(t, text, `[button #submit "Log in"]`)
	assert.Contains(t, text, `[input input[name="q"] type=search]`)
}

func TestCondenseHTML_PrefersIDSelectors(t *testing.T) {
	raw := `<body><input id="search" name="q"></body>`
	text := CondenseHTML(raw, 0)
	assert.Contains(t, text, "#search")
	assert.NotContains(t, text, `input[name="q"]`)
}

func TestCondenseHTML_TruncatesAtLimit(t *testing.T) {
	raw := "<body><p>" + strings.Repeat("lorem ipsum ", 2000) + "</p></body>"
	text := CondenseHTML(raw, 500)
	assert.LessOrEqual(t, len(text), 500)
	assert.Contains(t, text, "lorem")
}

func TestCondenseHTML_TruncatesOnRuneBoundary(t *testing.T) {
	// Each é is two bytes; an odd byte limit must not split one.
	raw := "<body><p>" + strings.Repeat("é", 400) + "</p></body>"
	text := CondenseHTML(raw, 101)
	assert.LessOrEqual(t, len(text), 101)
	assert.True(t, utf8.ValidString(text))
}

func TestCondenseHTML_UnparseableInputBounded(t *testing.T) {
	// html.Parse almost never fails, but the bounded fallback must hold for
	// whatever it rejects.
	text := CondenseHTML(strings.Repeat("x", 100), 10)
	assert.LessOrEqual(t, len(text), 100)
}
