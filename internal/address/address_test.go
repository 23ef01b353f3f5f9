package address

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/straja-ai/docshield/internal/pipeline"
	"github.com/straja-ai/docshield/internal/safety"
)

func newRC() *pipeline.RunContext {
	return &pipeline.RunContext{DocumentID: "doc-addr"}
}

func tag(rc *pipeline.RunContext, text string, t safety.EntityType, sub string) safety.Entity {
	start := strings.Index(text, sub)
	if start < 0 {
		panic("missing " + sub)
	}
	return rc.NewEntity(text, t, start, start+len(sub), 0.8, safety.SourceModel)
}

func kinds(comps []Component) []safety.EntityType {
	out := make([]safety.EntityType, len(comps))
	for i, c := range comps {
		out[i] = c.Kind
	}
	return out
}

func addresses(entities []safety.Entity) []safety.Entity {
	var out []safety.Entity
	for _, e := range entities {
		if e.Type == safety.TypeAddress {
			out = append(out, e)
		}
	}
	return out
}

func TestLinkPreTaggedComponents(t *testing.T) {
	text := "Rue de Lausanne 12, 1000 Lausanne"
	rc := newRC()
	// The city is the second "Lausanne".
	cityStart := strings.LastIndex(text, "Lausanne")
	in := []safety.Entity{
		tag(rc, text, safety.TypeStreetName, "Rue de Lausanne"),
		tag(rc, text, safety.TypeStreetNumber, "12"),
		tag(rc, text, safety.TypePostalCode, "1000"),
		rc.NewEntity(text, safety.TypeCity, cityStart, cityStart+len("Lausanne"), 0.8, safety.SourceModel),
	}

	out, err := NewPass(nil).Execute(context.Background(), text, safety.CloneAll(in), rc)
	require.NoError(t, err)

	addrs := addresses(out)
	require.Len(t, addrs, 1)
	addr := addrs[0]
	assert.Equal(t, 0, addr.Start)
	assert.Equal(t, len(text), addr.End)
	assert.Equal(t, text, addr.Text)
	assert.Len(t, addr.Components, 4)
	assert.GreaterOrEqual(t, addr.Confidence, 0.8)
	assert.True(t, addr.AutoAccepted)
	assert.False(t, addr.NeedsReview)

	for _, e := range out {
		if e.Type.IsAddressComponent() {
			assert.True(t, e.Linked, e.Type)
		}
	}
	// Pre-tagged components are reused, not duplicated.
	assert.Len(t, out, 5)
	assert.Equal(t, "1", rc.Metadata["address_composites"])
}

func TestClassifyFromText(t *testing.T) {
	text := "Bahnhofstrasse 12\n8001 Zürich\nSchweiz"
	comps := Classify(text, nil)
	assert.Equal(t, []safety.EntityType{
		safety.TypeStreetName, safety.TypeStreetNumber,
		safety.TypePostalCode, safety.TypeCity, safety.TypeCountry,
	}, kinds(comps))
	assert.Equal(t, "Bahnhofstrasse", text[comps[0].Start:comps[0].End])
	assert.Equal(t, "Zürich", text[comps[3].Start:comps[3].End])
	assert.Equal(t, "Schweiz", text[comps[4].Start:comps[4].End])

	got := NewLinker(DefaultConfig()).Link(text, comps)
	require.Len(t, got, 1)
	assert.True(t, got[0].Canonical)
	assert.True(t, got[0].KnownCity)
	assert.InDelta(t, 1.0, got[0].Confidence, 1e-9)
}

func TestClassifyTrimsLeadingWords(t *testing.T) {
	text := "Frau Meier wohnt an der Rue du Marché 4, 1204 Genève."
	comps := Classify(text, nil)
	require.Len(t, comps, 4)
	assert.Equal(t, "Rue du Marché", text[comps[0].Start:comps[0].End])
	assert.Equal(t, "4", text[comps[1].Start:comps[1].End])
	assert.Equal(t, "1204", text[comps[2].Start:comps[2].End])
	assert.Equal(t, "Genève", text[comps[3].Start:comps[3].End])
}

func TestClassifyRejectsDatesAndDocumentYears(t *testing.T) {
	for _, text := range []string{
		"Datum: 12.03.2024 Attestation",
		"am 12. März 2024",
		"Rechnung 2024 Januar",
		"Tel 044 123 45 67",
	} {
		assert.Empty(t, Classify(text, nil), text)
	}
}

func TestClassifyExtraCities(t *testing.T) {
	text := "Dorfweg 3, 3183 Albligen"
	comps := Classify(text, map[string]struct{}{"albligen": {}})
	require.Len(t, comps, 4)

	l := NewLinker(Config{ExtraCities: []string{"Albligen"}})
	got := l.Link(text, comps)
	require.Len(t, got, 1)
	assert.True(t, got[0].KnownCity)
}

func TestLinkScoring(t *testing.T) {
	text := "8001 Zürich Bahnhofstrasse"
	comps := []Component{
		{Kind: safety.TypePostalCode, Start: 0, End: 4},
		{Kind: safety.TypeCity, Start: 5, End: 12},
		{Kind: safety.TypeStreetName, Start: 13, End: len(text)},
	}
	got := NewLinker(DefaultConfig()).Link(text, comps)
	require.Len(t, got, 1)
	c := got[0]
	assert.False(t, c.Canonical)
	assert.True(t, c.PostalHit)
	assert.True(t, c.KnownCity)
	// three parts, postal hit, known city
	assert.InDelta(t, 0.9, c.Confidence, 1e-9)
	assert.Equal(t, StatusAutoAccepted, c.Status)
}

func TestLinkFlagsWeakComposites(t *testing.T) {
	text := "Bahnhofstrasse 12"
	comps := []Component{
		{Kind: safety.TypeStreetName, Start: 0, End: 14},
		{Kind: safety.TypeStreetNumber, Start: 15, End: 17},
	}
	assert.Empty(t, NewLinker(DefaultConfig()).Link(text, comps))

	got := NewLinker(Config{MinComponents: 2}).Link(text, comps)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.4, got[0].Confidence, 1e-9)
	assert.Equal(t, StatusNeedsReview, got[0].Status)
}

func TestLinkSplitsDistantComponents(t *testing.T) {
	text := "Bahnhofstrasse 12" + strings.Repeat(" ", 60) + "8001 Zürich"
	comps := Classify(text, nil)
	require.Len(t, comps, 4)
	assert.Empty(t, NewLinker(DefaultConfig()).Link(text, comps))

	text = "Bahnhofstrasse 12\n\n8001 Zürich"
	assert.Empty(t, NewLinker(DefaultConfig()).Link(text, Classify(text, nil)))
}

func TestLinkSplitsRepeatedKinds(t *testing.T) {
	text := "Rue du Lac 1, 1003 Lausanne; Rue du Port 2, 2000 Neuchâtel"
	got := NewLinker(DefaultConfig()).Link(text, Classify(text, nil))
	require.Len(t, got, 2)
	assert.Equal(t, "Rue du Lac 1, 1003 Lausanne", text[got[0].Start:got[0].End])
	assert.Equal(t, "Rue du Port 2, 2000 Neuchâtel", text[got[1].Start:got[1].End])
}

func TestPassMarksPostalAddressLinked(t *testing.T) {
	text := "Kundin: Bahnhofstrasse 12, 8001 Zürich"
	rc := newRC()
	postal := tag(rc, text, safety.TypeSwissPostalAddress, "8001 Zürich")
	out, err := NewPass(nil).Execute(context.Background(), text, []safety.Entity{postal}, rc)
	require.NoError(t, err)

	require.Len(t, addresses(out), 1)
	assert.True(t, out[0].Linked)
	for _, e := range out {
		assert.True(t, e.SpanValid(text), e.Type)
	}
}

func TestPassIsIdempotent(t *testing.T) {
	text := "Rue de Lausanne 12, 1000 Lausanne"
	p := NewPass(nil)
	first, err := p.Execute(context.Background(), text, nil, newRC())
	require.NoError(t, err)
	second, err := p.Execute(context.Background(), text, safety.CloneAll(first), newRC())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPassWithoutAddress(t *testing.T) {
	rc := newRC()
	in := []safety.Entity{rc.NewEntity("mail a@b.ch", safety.TypeEmail, 5, 11, 0.9, safety.SourceRule)}
	out, err := NewPass(nil).Execute(context.Background(), "mail a@b.ch", in, rc)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, "0", rc.Metadata["address_composites"])
}
