package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringRedaction(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		disallow []string
		require  []string
	}{
		{
			name:     "email",
			input:    "validate: rejected billing@example.ch for EMAIL",
			disallow: []string{"billing@example.ch"},
			require:  []string{"[EMAIL]", "for EMAIL"},
		},
		{
			name:     "iban grouped",
			input:    "candidate CH93 0076 2011 6238 5295 7 failed",
			disallow: []string{"0076 2011"},
			require:  []string{"[IBAN]"},
		},
		{
			name:     "iban compact",
			input:    "iban=DE89370400440532013000",
			disallow: []string{"DE89370400440532013000"},
			require:  []string{"[IBAN]"},
		},
		{
			name:     "social insurance number",
			input:    "ssn 756.1234.5678.97 ok",
			disallow: []string{"1234.5678"},
			require:  []string{"[SSN]"},
		},
		{
			name:     "phone",
			input:    "Tel: +41 44 668 18 00",
			disallow: []string{"668 18 00"},
			require:  []string{"[PHONE]"},
		},
		{
			name:     "bearer and token",
			input:    "Bearer abc token=supersecret",
			disallow: []string{"abc", "supersecret"},
			require:  []string{"[REDACTED]"},
		},
		{
			name:     "bundle url",
			input:    "bundle_url=https://example.com/bundles/ner.onnx?sig=abc123",
			disallow: []string{"ner.onnx?sig=abc123"},
			require:  []string{"https://example.com/ner.onnx"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := String(tc.input)
			for _, bad := range tc.disallow {
				assert.NotContains(t, out, bad)
			}
			for _, want := range tc.require {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestStringKeepsPlainText(t *testing.T) {
	in := "pass address_linking added=2 modified=1 duration=3ms"
	assert.Equal(t, in, String(in))
	assert.Equal(t, "", String(""))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "<EMAIL:18>", Snippet("EMAIL", "billing@example.ch"))
}
