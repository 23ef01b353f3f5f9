package detector

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/straja-ai/docshield/internal/config"
	"github.com/straja-ai/docshield/internal/detecterr"
	"github.com/straja-ai/docshield/internal/intel"
	"github.com/straja-ai/docshield/internal/pipeline"
	"github.com/straja-ai/docshield/internal/safety"
	"github.com/straja-ai/docshield/internal/validate"
)

const invoiceLine = "Invoice: contact billing@example.ch, Tel: 12345 67890 123"

func newDetector(t *testing.T, cfg *config.Config, opts ...Option) *Detector {
	t.Helper()
	d, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close(context.Background()) })
	return d
}

func byType(res *pipeline.Result, typ safety.EntityType) []safety.Entity {
	var out []safety.Entity
	for _, e := range res.Entities {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func TestDefaultPassOrder(t *testing.T) {
	d := newDetector(t, nil)
	assert.Equal(t, []string{"high_recall", "format_validation", "address_linking", "context_scoring"}, d.Pipeline().PassNames())
	assert.True(t, d.Registry().IsFrozen())
	assert.False(t, d.SourceStatus().Enabled)

	err := d.Registry().Register(validate.NewEmailValidator(validate.DefaultPolicy()), validate.PriorityBuiltin+1)
	assert.ErrorIs(t, err, detecterr.ErrRegistryFrozen)
}

func TestAddressLinkingCanBeDisabled(t *testing.T) {
	cfg := config.Default()
	off := false
	cfg.Address.Enabled = &off
	d := newDetector(t, cfg)
	assert.NotContains(t, d.Pipeline().PassNames(), "address_linking")
}

func TestInvoiceEmailAndInvalidPhone(t *testing.T) {
	d := newDetector(t, nil)
	res, err := d.Process(context.Background(), invoiceLine, "inv-1", "en")
	require.NoError(t, err)
	require.Len(t, res.Entities, 2)

	email := byType(res, safety.TypeEmail)
	require.Len(t, email, 1)
	assert.Equal(t, "billing@example.ch", email[0].Text)
	assert.GreaterOrEqual(t, email[0].Confidence, 0.9)
	assert.False(t, email[0].NeedsReview)

	phone := byType(res, safety.TypePhone)
	require.Len(t, phone, 1)
	assert.True(t, phone[0].NeedsReview)
	assert.NotEmpty(t, phone[0].Reason)
	assert.Equal(t, 1, res.Metadata.NeedsReview)

	for _, pr := range res.Metadata.PassResults {
		assert.False(t, pr.Failed(), pr.PassName)
	}
	for _, e := range res.Entities {
		assert.Equal(t, invoiceLine[e.Start:e.End], e.Text)
	}
}

func TestProcessIsIdempotent(t *testing.T) {
	d := newDetector(t, nil)
	text := "Sehr geehrte Frau Keller\nRue de Lausanne 12, 1000 Lausanne\nIBAN CH93 0076 2011 6238 5295 7, Tel 044 668 18 00"
	first, err := d.Process(context.Background(), text, "doc-9", "")
	require.NoError(t, err)
	second, err := d.Process(context.Background(), text, "doc-9", "")
	require.NoError(t, err)
	assert.Equal(t, first.Entities, second.Entities)
	assert.Equal(t, first.DocumentType, second.DocumentType)
	assert.NotEmpty(t, first.Entities)
}

func TestAddressComposite(t *testing.T) {
	d := newDetector(t, nil)
	text := "Kundin: Rue de Lausanne 12, 1000 Lausanne"
	res, err := d.Process(context.Background(), text, "addr-1", "fr")
	require.NoError(t, err)

	addrs := byType(res, safety.TypeAddress)
	require.Len(t, addrs, 1)
	assert.Equal(t, "Rue de Lausanne 12, 1000 Lausanne", addrs[0].Text)
	assert.Len(t, addrs[0].Components, 4)
	assert.GreaterOrEqual(t, addrs[0].Confidence, 0.8)

	postal := byType(res, safety.TypeSwissPostalAddress)
	require.Len(t, postal, 1)
	assert.True(t, postal[0].Linked)
}

func TestProcessBatchKeepsOrder(t *testing.T) {
	d := newDetector(t, nil)
	docs := []pipeline.Document{
		{ID: "a", Text: "mail anna@example.ch", Language: "en"},
		{ID: "b", Text: "nothing to see here", Language: "en"},
		{ID: "c", Text: invoiceLine, Language: "en"},
	}
	results, err := d.ProcessBatch(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, docs[i].ID, r.DocumentID)
	}
	assert.Len(t, results[1].Entities, 0)
	assert.Len(t, results[2].Entities, 2)
}

func TestDefaultLanguageFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.DefaultLanguage = "it"
	d := newDetector(t, cfg)
	res, err := d.Process(context.Background(), "12345", "x", "")
	require.NoError(t, err)
	assert.Equal(t, "it", res.Metadata.Language)
}

func TestReportsAreWritten(t *testing.T) {
	cfg := config.Default()
	cfg.Report.Path = filepath.Join(t.TempDir(), "reports", "docshield.jsonl")
	d, err := New(context.Background(), cfg)
	require.NoError(t, err)

	_, err = d.Process(context.Background(), invoiceLine, "inv-2", "en")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), d.ReportMetrics().Enqueued)
	d.Close(context.Background())

	data, err := os.ReadFile(cfg.Report.Path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.Contains(t, line, `"document_id":"inv-2"`)
	assert.Contains(t, line, `"needs_review":1`)
	assert.NotContains(t, line, "billing@example.ch")
}

type fakeSource struct{ text string }

func (f fakeSource) Status() intel.Status {
	return intel.Status{Enabled: true, SourceID: "fake", SourceVersion: "1"}
}

func (f fakeSource) Predict(_ context.Context, text string) ([]safety.Prediction, error) {
	i := strings.Index(text, f.text)
	if i < 0 {
		return nil, nil
	}
	return []safety.Prediction{{Label: "PER", Start: i, End: i + len(f.text), Confidence: 0.8}}, nil
}

func TestEntitySourceOverride(t *testing.T) {
	d := newDetector(t, nil, WithEntitySource(fakeSource{text: "Anna Keller"}))
	assert.Equal(t, "fake", d.SourceStatus().SourceID)

	res, err := d.Process(context.Background(), "Termin mit Anna Keller am Montag", "p-1", "de")
	require.NoError(t, err)
	people := byType(res, safety.TypePerson)
	require.Len(t, people, 1)
	assert.Equal(t, "Anna Keller", people[0].Text)
	assert.Equal(t, safety.SourceModel, people[0].Source)
}

func TestMissingModelFallsBackUnlessRequired(t *testing.T) {
	cfg := config.Default()
	cfg.Recall.ModelDir = t.TempDir()
	d := newDetector(t, cfg)
	assert.False(t, d.SourceStatus().Enabled)

	cfg.Recall.RequireModel = true
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, detecterr.Is(err, detecterr.KindModel))
}

func TestInvalidConfigIsRejected(t *testing.T) {
	cfg := config.Default()
	cfg.Validation.Confidence = map[string]float64{"checksum_verified": 2}
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, detecterr.Is(err, detecterr.KindConfig))

	cfg = config.Default()
	cfg.Report.Path = t.TempDir() // a directory cannot be opened for append
	_, err = New(context.Background(), cfg)
	require.Error(t, err)
	var de *detecterr.Error
	assert.True(t, errors.As(err, &de))
}

func TestIBANFollowedByLabel(t *testing.T) {
	d := newDetector(t, nil)
	for _, tc := range []struct{ text, iban string }{
		{"IBAN: AT61 1904 3002 3457 3201 BIC: BKAUATWW", "AT61 1904 3002 3457 3201"},
		{"Konto BE68 5390 0754 7034 EUR", "BE68 5390 0754 7034"},
	} {
		res, err := d.Process(context.Background(), tc.text, "iban", "de")
		require.NoError(t, err)
		got := byType(res, safety.TypeIBAN)
		require.Len(t, got, 1, tc.text)
		assert.Equal(t, tc.iban, got[0].Text)
		assert.GreaterOrEqual(t, got[0].Confidence, 0.95)
		assert.False(t, got[0].NeedsReview)
	}
}

func TestTwoPhonesOnLetterhead(t *testing.T) {
	d := newDetector(t, nil)
	res, err := d.Process(context.Background(), "Tel 044 668 18 00 / 079 123 45 67", "head", "de")
	require.NoError(t, err)
	phones := byType(res, safety.TypePhone)
	require.Len(t, phones, 2)
	assert.Equal(t, "044 668 18 00", phones[0].Text)
	assert.Equal(t, "079 123 45 67", phones[1].Text)
	for _, p := range phones {
		assert.False(t, p.NeedsReview, p.Text)
	}
}

func TestCharacterOffsetsOnAccentedText(t *testing.T) {
	d := newDetector(t, nil)
	text := "2000 Neuchâtel, email anna@example.ch"
	res, err := d.Process(context.Background(), text, "acc", "fr")
	require.NoError(t, err)

	email := byType(res, safety.TypeEmail)
	require.Len(t, email, 1)
	assert.Equal(t, 23, email[0].Start)
	assert.Equal(t, 22, email[0].CharStart)
	assert.Equal(t, 37, email[0].CharEnd)

	postal := byType(res, safety.TypeSwissPostalAddress)
	require.Len(t, postal, 1)
	assert.Equal(t, 15, postal[0].End)
	assert.Equal(t, 14, postal[0].CharEnd)

	raw, err := json.Marshal(email[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"start":22,"end":37`)
	assert.Contains(t, string(raw), `"byte_start":23`)
}
