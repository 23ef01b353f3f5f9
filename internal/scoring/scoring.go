// Package scoring adjusts entity confidence from the text around each span:
// label keywords, repetition and the header/footer zone.
package scoring

import (
	"context"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/straja-ai/docshield/internal/lexicon"
	"github.com/straja-ai/docshield/internal/pipeline"
	"github.com/straja-ai/docshield/internal/safety"
)

// PassName identifies the scoring pass in pass results.
const PassName = "context_scoring"

// Config tunes the multiplier. Zero fields take defaults.
type Config struct {
	// Window is the number of bytes inspected on each side of a span.
	Window          int
	ReviewThreshold float64
	KeywordBoost    float64
	// RepetitionStep is added to the multiplier per extra occurrence of the
	// same text, up to RepetitionCap.
	RepetitionStep float64
	RepetitionCap  float64
	// ZoneFactor applies to address entities in the first or last ZoneLines
	// lines of documents with at least ZoneMinLines lines.
	ZoneFactor    float64
	ZoneLines     int
	ZoneMinLines  int
	MinMultiplier float64
	MaxMultiplier float64
}

// DefaultConfig returns the standard scoring parameters.
func DefaultConfig() Config {
	return Config{
		Window:          50,
		ReviewThreshold: 0.4,
		KeywordBoost:    1.2,
		RepetitionStep:  0.05,
		RepetitionCap:   1.15,
		ZoneFactor:      0.8,
		ZoneLines:       3,
		ZoneMinLines:    10,
		MinMultiplier:   0.5,
		MaxMultiplier:   1.3,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Window <= 0 {
		c.Window = def.Window
	}
	if c.ReviewThreshold <= 0 {
		c.ReviewThreshold = def.ReviewThreshold
	}
	if c.KeywordBoost <= 0 {
		c.KeywordBoost = def.KeywordBoost
	}
	if c.RepetitionStep <= 0 {
		c.RepetitionStep = def.RepetitionStep
	}
	if c.RepetitionCap <= 0 {
		c.RepetitionCap = def.RepetitionCap
	}
	if c.ZoneFactor <= 0 {
		c.ZoneFactor = def.ZoneFactor
	}
	if c.ZoneLines <= 0 {
		c.ZoneLines = def.ZoneLines
	}
	if c.ZoneMinLines <= 0 {
		c.ZoneMinLines = def.ZoneMinLines
	}
	if c.MinMultiplier <= 0 {
		c.MinMultiplier = def.MinMultiplier
	}
	if c.MaxMultiplier <= 0 {
		c.MaxMultiplier = def.MaxMultiplier
	}
	return c
}

// Pass is the context scoring pass.
type Pass struct {
	cfg Config
}

// NewPass builds a scoring pass.
func NewPass(cfg Config) *Pass {
	return &Pass{cfg: cfg.withDefaults()}
}

func (p *Pass) Name() string { return PassName }

// Execute multiplies each entity's confidence by its context multiplier and
// flags entities that end below the review threshold. Manual entities are
// left alone.
func (p *Pass) Execute(ctx context.Context, text string, entities []safety.Entity, rc *pipeline.RunContext) ([]safety.Entity, error) {
	zones := newZones(text, p.cfg.ZoneLines, p.cfg.ZoneMinLines)
	repeats := make(map[string]int)
	keywords := make(map[string][]string)
	flagged := 0

	for i := range entities {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		e := &entities[i]
		if e.Source == safety.SourceManual {
			continue
		}

		key := keywordType(e.Type)
		kw, ok := keywords[key]
		if !ok {
			kw = lexicon.LabelKeywords(key, rc.Language)
			keywords[key] = kw
		}
		n, ok := repeats[e.Text]
		if !ok {
			n = countToken(text, e.Text)
			repeats[e.Text] = n
		}

		m := p.multiplier(text, *e, kw, n, zones)
		e.Confidence = safety.ClampConfidence(e.Confidence * m)
		if e.Confidence < p.cfg.ReviewThreshold {
			e.NeedsReview = true
		}
		if e.NeedsReview {
			flagged++
		}
	}
	rc.SetMetadata("scoring_needs_review", strconv.Itoa(flagged))
	return entities, nil
}

// Multiplier exposes the context multiplier for one entity, for diagnostics.
func (p *Pass) Multiplier(text string, e safety.Entity, language string) float64 {
	key := keywordType(e.Type)
	return p.multiplier(text, e, lexicon.LabelKeywords(key, language), countToken(text, e.Text), newZones(text, p.cfg.ZoneLines, p.cfg.ZoneMinLines))
}

func (p *Pass) multiplier(text string, e safety.Entity, kw []string, occurrences int, z zones) float64 {
	m := 1.0
	if len(kw) > 0 {
		before, after := window(text, e.Start, e.End, p.cfg.Window)
		if lexicon.ContainsKeyword(lexicon.Fold(before), kw) || lexicon.ContainsKeyword(lexicon.Fold(after), kw) {
			m *= p.cfg.KeywordBoost
		}
	}
	if occurrences > 1 {
		rep := 1 + p.cfg.RepetitionStep*float64(occurrences-1)
		if rep > p.cfg.RepetitionCap {
			rep = p.cfg.RepetitionCap
		}
		m *= rep
	}
	if isAddressType(e.Type) && z.contains(e.Start) {
		m *= p.cfg.ZoneFactor
	}
	if m < p.cfg.MinMultiplier {
		m = p.cfg.MinMultiplier
	}
	if m > p.cfg.MaxMultiplier {
		m = p.cfg.MaxMultiplier
	}
	return m
}

// countToken counts occurrences of s that are not glued to a letter or digit
// on either side, so "12" does not match inside "2012".
func countToken(text, s string) int {
	if s == "" {
		return 0
	}
	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	n := 0
	for i := 0; ; {
		j := strings.Index(text[i:], s)
		if j < 0 {
			return n
		}
		start := i + j
		end := start + len(s)
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if !(isWord(first) && start > 0 && isWord(before)) && !(isWord(last) && end < len(text) && isWord(after)) {
			n++
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		i = start + size
	}
}

func isWord(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

func keywordType(t safety.EntityType) string {
	if t.IsAddressComponent() {
		return string(safety.TypeAddress)
	}
	return string(t)
}

func isAddressType(t safety.EntityType) bool {
	return t == safety.TypeAddress || t == safety.TypeSwissPostalAddress || t.IsAddressComponent()
}

// window returns up to n bytes on each side of [start,end), cut at rune
// boundaries.
func window(text string, start, end, n int) (string, string) {
	from := start - n
	if from < 0 {
		from = 0
	}
	for from < start && !utf8.RuneStart(text[from]) {
		from++
	}
	to := end + n
	if to > len(text) {
		to = len(text)
	}
	for to > end && to < len(text) && !utf8.RuneStart(text[to]) {
		to--
	}
	return text[from:start], text[end:to]
}

// zones holds the byte ranges of the header and footer.
type zones struct {
	headerEnd   int
	footerStart int
	active      bool
}

func newZones(text string, lines, minLines int) zones {
	total := strings.Count(text, "\n") + 1
	if total < minLines {
		return zones{}
	}
	z := zones{active: true, footerStart: len(text)}
	idx := 0
	for i := 0; i < lines; i++ {
		nl := strings.IndexByte(text[idx:], '\n')
		if nl < 0 {
			break
		}
		idx += nl + 1
	}
	z.headerEnd = idx
	idx = len(text)
	for i := 0; i < lines; i++ {
		nl := strings.LastIndexByte(text[:idx], '\n')
		if nl < 0 {
			break
		}
		idx = nl
	}
	z.footerStart = idx
	return z
}

func (z zones) contains(pos int) bool {
	return z.active && (pos < z.headerEnd || pos > z.footerStart)
}
