package address

import (
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/straja-ai/docshield/internal/lexicon"
	"github.com/straja-ai/docshield/internal/safety"
)

// Status is the review disposition of a composite address.
type Status string

const (
	StatusNeedsReview  Status = "needs_review"
	StatusPending      Status = "pending"
	StatusAutoAccepted Status = "auto_accepted"
)

// Scoring weights and linking defaults.
const (
	componentWeight    = 0.2
	maxScoredParts     = 5
	canonicalWeight    = 0.3
	postalHitWeight    = 0.2
	knownCityWeight    = 0.1
	paragraphBreak     = "\n\n"
	defaultWindow      = 50
	defaultMinParts    = 3
	defaultReviewBelow = 0.6
	defaultAcceptAbove = 0.8
)

// canonicalOrders are the component sequences of a well-formed Swiss
// address. Either may be followed by a country.
var canonicalOrders = [][]safety.EntityType{
	{safety.TypeStreetName, safety.TypeStreetNumber, safety.TypePostalCode, safety.TypeCity},
	{safety.TypePostalCode, safety.TypeCity, safety.TypeStreetName, safety.TypeStreetNumber},
}

// Config tunes linking.
type Config struct {
	// Window is the largest gap in bytes between two consecutive components
	// of one address.
	Window int
	// MinComponents is the smallest group that becomes a composite. A bare
	// postal code and city is already covered by SWISS_POSTAL_ADDRESS.
	MinComponents int
	ReviewBelow   float64
	AcceptAbove   float64
	ExtraCities   []string
}

// DefaultConfig returns the standard linking thresholds.
func DefaultConfig() Config {
	return Config{
		Window:        defaultWindow,
		MinComponents: defaultMinParts,
		ReviewBelow:   defaultReviewBelow,
		AcceptAbove:   defaultAcceptAbove,
	}
}

// Composite is a linked address candidate.
type Composite struct {
	Start      int
	End        int
	Components []Component
	Confidence float64
	Canonical  bool
	PostalHit  bool
	KnownCity  bool
	Status     Status
}

// Linker groups components into composites. It holds no per-document state.
type Linker struct {
	cfg   Config
	extra map[string]struct{}
}

// NewLinker applies defaults to zero fields of cfg.
func NewLinker(cfg Config) *Linker {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MinComponents <= 0 {
		cfg.MinComponents = def.MinComponents
	}
	if cfg.ReviewBelow <= 0 {
		cfg.ReviewBelow = def.ReviewBelow
	}
	if cfg.AcceptAbove <= 0 {
		cfg.AcceptAbove = def.AcceptAbove
	}
	extra := make(map[string]struct{}, len(cfg.ExtraCities))
	for _, c := range cfg.ExtraCities {
		extra[lexicon.Key(c)] = struct{}{}
	}
	return &Linker{cfg: cfg, extra: extra}
}

// Link groups proximate components and scores every group of at least
// MinComponents distinct kinds.
func (l *Linker) Link(text string, comps []Component) []Composite {
	comps = append([]Component(nil), comps...)
	sortComponents(comps)

	var out []Composite
	var group []Component
	flush := func() {
		if len(group) >= l.cfg.MinComponents {
			out = append(out, l.score(text, group))
		}
		group = nil
	}
	for _, c := range comps {
		if c.Start < 0 || c.End > len(text) || c.Start >= c.End {
			continue
		}
		if len(group) == 0 {
			group = append(group, c)
			continue
		}
		last := group[len(group)-1]
		if c.Start < last.End {
			// Overlapping components: keep the first.
			continue
		}
		gap := text[last.End:c.Start]
		if len(gap) > l.cfg.Window || strings.Contains(gap, paragraphBreak) || hasKind(group, c.Kind) {
			flush()
		}
		group = append(group, c)
	}
	flush()
	return out
}

func (l *Linker) score(text string, group []Component) Composite {
	c := Composite{
		Start:      group[0].Start,
		End:        group[len(group)-1].End,
		Components: group,
	}
	parts := len(group)
	if parts > maxScoredParts {
		parts = maxScoredParts
	}
	score := componentWeight * float64(parts)

	if isCanonical(group) {
		c.Canonical = true
		score += canonicalWeight
	}
	for _, comp := range group {
		switch comp.Kind {
		case safety.TypePostalCode:
			if code, err := strconv.Atoi(strings.TrimSpace(text[comp.Start:comp.End])); err == nil &&
				(lexicon.InSwissPostalRange(code) || lexicon.IsKnownPostalCode(code)) {
				c.PostalHit = true
			}
		case safety.TypeCity:
			if isKnownCity(text[comp.Start:comp.End], l.extra) {
				c.KnownCity = true
			}
		}
	}
	if c.PostalHit {
		score += postalHitWeight
	}
	if c.KnownCity {
		score += knownCityWeight
	}
	c.Confidence = safety.ClampConfidence(score)

	switch {
	case c.Confidence < l.cfg.ReviewBelow:
		c.Status = StatusNeedsReview
	case c.Confidence > l.cfg.AcceptAbove:
		c.Status = StatusAutoAccepted
	default:
		c.Status = StatusPending
	}
	return c
}

func isCanonical(group []Component) bool {
	kinds := make([]safety.EntityType, 0, len(group))
	for _, c := range group {
		kinds = append(kinds, c.Kind)
	}
	if n := len(kinds); n > 0 && kinds[n-1] == safety.TypeCountry {
		kinds = kinds[:n-1]
	}
	for _, order := range canonicalOrders {
		if slices.Equal(kinds, order) {
			return true
		}
	}
	return false
}

func hasKind(group []Component, k safety.EntityType) bool {
	for _, c := range group {
		if c.Kind == k {
			return true
		}
	}
	return false
}

func sortComponents(in []Component) {
	sort.SliceStable(in, func(i, j int) bool {
		if in[i].Start != in[j].Start {
			return in[i].Start < in[j].Start
		}
		return in[i].End > in[j].End
	})
}
