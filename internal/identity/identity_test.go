package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyUsesOnlyAllowedCharacters(t *testing.T) {
	names := []string{
		"report.pdf",
		"annual report (final).docx",
		"1-s2.0-S1470160X21011821-main.pdf",
		"übersicht März.pdf",
		"データ分析.txt",
		"weird\\path/name.html",
		"...",
		"",
	}
	for _, name := range names {
		key := NewKey(name)
		assert.True(t, Valid(key), "key %q for name %q", key, name)
	}
}

func TestNewKeyKeepsRecognizableStem(t *testing.T) {
	key := NewKey("1-s2.0-S1470160X21011821-main.pdf")

	// 12-hex prefix, separator, then the sanitized stem with the embedded
	// periods flattened to underscores and the extension dropped.
	require.Len(t, strings.SplitN(key, "_", 2), 2)
	assert.True(t, strings.HasSuffix(key, "_1-s2_0-S1470160X21011821-main"), "got %q", key)
	assert.False(t, strings.Contains(key, "."))
}

func TestNewKeyPrefixesAreUnique(t *testing.T) {
	a := NewKey("same.pdf")
	b := NewKey("same.pdf")
	assert.NotEqual(t, a, b)
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"abc-DEF_123":  "abc-DEF_123",
		"a b.c":        "a_b_c",
		"(paren)":      "_paren_",
		"naïve":        "na__ve", // two-byte rune, one underscore per byte
		"":             "",
		"trailing.pdf": "trailing_pdf",
	}
	for in, want := range cases {
		assert.Equal(t, want, Sanitize(in), "input %q", in)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("abc_123-XYZ"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("has space"))
	assert.False(t, Valid("dot.pdf"))
	assert.False(t, Valid("slash/name"))
}
