package safety

import "unicode/utf8"

// CharIndex maps byte offsets of one text to code-point offsets.
type CharIndex struct {
	ascii bool
	runes []int32
}

// NewCharIndex indexes text. ASCII text needs no table.
func NewCharIndex(text string) *CharIndex {
	ascii := true
	for i := 0; i < len(text); i++ {
		if text[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return &CharIndex{ascii: true}
	}
	runes := make([]int32, len(text)+1)
	var n int32
	for i := 0; i < len(text); {
		_, size := utf8.DecodeRuneInString(text[i:])
		for k := i; k < i+size; k++ {
			runes[k] = n
		}
		n++
		i += size
	}
	runes[len(text)] = n
	return &CharIndex{runes: runes}
}

// At returns the code-point offset of byte offset b. Offsets inside a
// multi-byte rune map to that rune.
func (c *CharIndex) At(b int) int {
	if c.ascii || b < 0 {
		return b
	}
	if b >= len(c.runes) {
		return int(c.runes[len(c.runes)-1])
	}
	return int(c.runes[b])
}

// Annotate fills CharStart and CharEnd on entities and their components.
func (c *CharIndex) Annotate(entities []Entity) {
	for i := range entities {
		e := &entities[i]
		e.CharStart, e.CharEnd = c.At(e.Start), c.At(e.End)
		c.Annotate(e.Components)
	}
}
