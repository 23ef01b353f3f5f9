package pipeline

import (
	"github.com/straja-ai/docshield/internal/safety"
)

// Dedup collapses each cluster of overlapping same-type entities into one.
// The survivor is the manual copy if any, else the higher-confidence one,
// else the longer span. It takes the cluster's full extent so no detected
// byte loses coverage, and sources are merged. Output is sorted by span.
func Dedup(text, documentID string, in []safety.Entity) []safety.Entity {
	if len(in) < 2 {
		return in
	}
	sorted := safety.CloneAll(in)
	safety.SortBySpan(sorted)

	type extent struct{ start, end int }
	out := make([]safety.Entity, 0, len(sorted))
	spans := make([]extent, 0, len(sorted))
	open := make(map[safety.EntityType]int)
	for _, e := range sorted {
		if i, ok := open[e.Type]; ok && e.Start < spans[i].end {
			out[i] = mergeDuplicate(out[i], e)
			spans[i].end = max(spans[i].end, e.End)
			continue
		}
		open[e.Type] = len(out)
		out = append(out, e)
		spans = append(spans, extent{e.Start, e.End})
	}

	for i := range out {
		e := &out[i]
		s := spans[i]
		if e.Start == s.start && e.End == s.end {
			continue
		}
		e.Start, e.End = s.start, s.end
		e.Text = text[s.start:s.end]
		e.ID = safety.EntityID(documentID, e.Type, s.start, s.end)
	}
	return out
}

func mergeDuplicate(a, b safety.Entity) safety.Entity {
	winner, loser := a, b
	if preferred(b, a) {
		winner, loser = b, a
	}
	winner.Source = safety.MergeSource(winner.Source, loser.Source)
	winner.Linked = winner.Linked || loser.Linked
	return winner
}

// preferred reports whether a should survive over b.
func preferred(a, b safety.Entity) bool {
	aManual, bManual := a.Source == safety.SourceManual, b.Source == safety.SourceManual
	if aManual != bManual {
		return aManual
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.Len() > b.Len()
}
