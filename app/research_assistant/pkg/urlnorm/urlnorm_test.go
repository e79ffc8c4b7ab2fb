package urlnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/apierr"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "https://example.com/"},
		{"http://example.com", "https://example.com/"},
		{"https://www.example.com", "https://example.com/"},
		{"  HTTPS://WWW.Example.COM/  ", "https://example.com/"},
		{"//example.com/a", "https://example.com/a"},
		{"https://example.com:443/a/../b/", "https://example.com/b/"},
		{"http://example.com:80/x", "https://example.com/x"},
		{"https://example.com:8443/x", "https://example.com:8443/x"},
		{"https://example.com/page#section", "https://example.com/page"},
		{"https://example.com/p?utm_source=x&b=2&a=1&fbclid=abc", "https://example.com/p?a=1&b=2"},
		{"https://user:pw@example.com/p", "https://example.com/p"},
		{"example.com/docs/guide?q=go", "https://example.com/docs/guide?q=go"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, in := range []string{"example.com", "https://example.com/a/b/?z=1&y=2", "http://www.example.com:80/#top"} {
		once, err := Normalize(in)
		require.NoError(t, err)
		twice, err := Normalize(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestNormalize_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "ftp://example.com/file", "https://", "http://exa mple.com"} {
		t.Run(in, func(t *testing.T) {
			_, err := Normalize(in)
			require.Error(t, err)
			assert.True(t, apierr.Is(err, apierr.KindValidation), "got %v", err)
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("example.com", "https://www.example.com/"))
	assert.True(t, Equal("https://example.com/p?b=1&a=2", "https://example.com/p?a=2&b=1&utm_medium=mail"))
	assert.False(t, Equal("example.com/a", "example.com/b"))
	assert.False(t, Equal("", "example.com"))
}
