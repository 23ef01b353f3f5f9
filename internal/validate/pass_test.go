package validate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/straja-ai/docshield/internal/safety"
)

func entityAt(text, needle string, typ safety.EntityType, source safety.Source, conf float64) safety.Entity {
	start := strings.Index(text, needle)
	return safety.Entity{
		ID: string(typ) + needle, Type: typ, Text: needle,
		Start: start, End: start + len(needle), Confidence: conf, Source: source,
	}
}

func TestPassRescoresWithoutDeleting(t *testing.T) {
	text := "IBAN CH9300762011623852958, Mail billing@example.ch, Herr Muster, Datum: 15.03. 2023 Musterdorf"
	entities := []safety.Entity{
		entityAt(text, "CH9300762011623852958", safety.TypeIBAN, safety.SourceRule, 0.6),
		entityAt(text, "billing@example.ch", safety.TypeEmail, safety.SourceRule, 0.6),
		entityAt(text, "Herr Muster", safety.TypePerson, safety.SourceModel, 0.55),
		entityAt(text, "2023 Musterdorf", safety.TypeSwissPostalAddress, safety.SourceRule, 0.6),
	}
	r, err := NewDefaultRegistry(DefaultPolicy(), Options{})
	require.NoError(t, err)
	r.Freeze()

	out, err := NewPass(r).Execute(context.Background(), text, entities, nil)
	require.NoError(t, err)
	require.Len(t, out, 4)

	assert.Equal(t, 0.3, out[0].Confidence)
	assert.Contains(t, out[0].Reason, "checksum")
	assert.Equal(t, 0.9, out[1].Confidence)
	assert.Empty(t, out[1].Reason)
	assert.Equal(t, 0.55, out[2].Confidence, "no validator for PERSON")
	assert.Equal(t, 0.2, out[3].Confidence, "date context before the postal line")
}

func TestPassLeavesManualEntities(t *testing.T) {
	text := "IBAN CH9300762011623852958"
	entities := []safety.Entity{entityAt(text, "CH9300762011623852958", safety.TypeIBAN, safety.SourceManual, 1)}
	r, err := NewDefaultRegistry(DefaultPolicy(), Options{})
	require.NoError(t, err)

	out, err := NewPass(r).Execute(context.Background(), text, entities, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, out[0].Confidence)
	assert.Empty(t, out[0].Reason)
}

func TestPreceding(t *testing.T) {
	assert.Equal(t, "ab", preceding("abc", 2, 20))
	assert.Equal(t, "", preceding("abc", 0, 20))
	// "ü" is two bytes; a window starting inside it moves forward.
	text := "xü8001"
	assert.Equal(t, "8", preceding(text, 4, 2))
	assert.Equal(t, "80", preceding(text, 5, 2))
	assert.Equal(t, "ü", preceding(text, 3, 2))
	assert.Equal(t, "", preceding(text, 3, 1))
}
