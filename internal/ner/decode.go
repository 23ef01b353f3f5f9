package ner

import (
	"math"
	"sort"
	"strings"

	"github.com/straja-ai/docshield/internal/safety"
)

// tokenLabel is the argmax label for one token plus its probability.
type tokenLabel struct {
	Label string
	Prob  float64
}

// labelTokens turns a flat [seqLen*numLabels] logits slice into per-token
// labels. Positions past len(offsets) are ignored.
func labelTokens(logits []float32, numLabels int, labels []string, n int) []tokenLabel {
	out := make([]tokenLabel, n)
	if numLabels <= 0 {
		return out
	}
	for i := 0; i < n; i++ {
		base := i * numLabels
		if base+numLabels > len(logits) {
			break
		}
		probs := softmax(logits[base : base+numLabels])
		best := 0
		for j := 1; j < len(probs); j++ {
			if probs[j] > probs[best] {
				best = j
			}
		}
		if best < len(labels) {
			out[i] = tokenLabel{Label: labels[best], Prob: float64(probs[best])}
		}
	}
	return out
}

// decodeBIO groups labelled tokens into predictions. A B- tag or a type
// change opens a new entity; I- extends the current one. Confidence is the
// mean token probability.
func decodeBIO(tokens []tokenLabel, offsets []span) []safety.Prediction {
	var out []safety.Prediction
	var cur *safety.Prediction
	var sum float64
	var count int

	closeCur := func() {
		if cur != nil {
			cur.Confidence = sum / float64(count)
			out = append(out, *cur)
			cur = nil
		}
	}

	for i, tok := range tokens {
		if i >= len(offsets) {
			break
		}
		off := offsets[i]
		if !off.valid() {
			continue
		}
		prefix, typ := splitLabel(tok.Label)
		if typ == "" || strings.EqualFold(typ, "O") {
			closeCur()
			continue
		}
		if prefix == "B" || cur == nil || !strings.EqualFold(cur.Label, typ) {
			closeCur()
			cur = &safety.Prediction{Label: typ, Start: off.Start, End: off.End, Origin: Origin}
			sum, count = tok.Prob, 1
			continue
		}
		if off.End > cur.End {
			cur.End = off.End
		}
		sum += tok.Prob
		count++
	}
	closeCur()
	return out
}

func splitLabel(lbl string) (string, string) {
	lbl = strings.TrimSpace(lbl)
	if lbl == "" {
		return "", ""
	}
	prefix, typ, ok := strings.Cut(lbl, "-")
	if !ok {
		return "", lbl
	}
	return strings.ToUpper(prefix), typ
}

// mergePredictions collapses same-label predictions that touch or overlap,
// keeping the higher confidence.
func mergePredictions(in []safety.Prediction) []safety.Prediction {
	if len(in) == 0 {
		return nil
	}
	sort.SliceStable(in, func(i, j int) bool {
		if in[i].Start == in[j].Start {
			return in[i].End < in[j].End
		}
		return in[i].Start < in[j].Start
	})
	out := make([]safety.Prediction, 0, len(in))
	cur := in[0]
	for _, p := range in[1:] {
		if p.Start <= cur.End && strings.EqualFold(p.Label, cur.Label) {
			if p.End > cur.End {
				cur.End = p.End
			}
			cur.Confidence = math.Max(cur.Confidence, p.Confidence)
			continue
		}
		out = append(out, cur)
		cur = p
	}
	return append(out, cur)
}

func softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	sum := 0.0
	out := make([]float32, len(logits))
	for i, v := range logits {
		e := math.Exp(float64(v - maxVal))
		out[i] = float32(e)
		sum += e
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
