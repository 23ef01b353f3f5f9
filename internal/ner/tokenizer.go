package ner

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// span is a byte range in the source text. Special and padding tokens carry
// {-1, -1}.
type span struct {
	Start int
	End   int
}

var noSpan = span{Start: -1, End: -1}

func (s span) valid() bool {
	return s.Start >= 0 && s.End > s.Start
}

// word is a pre-tokenized run of the input: either a maximal run of letters
// and digits, or a single punctuation rune.
type word struct {
	Text  string
	Start int
	End   int
}

// encoded is one model window.
type encoded struct {
	IDs       []int64
	Attention []int64
	Offsets   []span
}

// WordPiece is a BERT-style tokenizer that keeps byte offsets for every
// piece, so token labels map back onto the document.
type WordPiece struct {
	vocab        map[string]int64
	lowerCase    bool
	continuation string
	clsID        int64
	sepID        int64
	padID        int64
	unkID        int64
	maxWordBytes int
}

// NewWordPiece builds a tokenizer over an in-memory vocabulary.
func NewWordPiece(vocab map[string]int64, lowerCase bool) *WordPiece {
	return &WordPiece{
		vocab:        vocab,
		lowerCase:    lowerCase,
		continuation: "##",
		clsID:        vocab["[CLS]"],
		sepID:        vocab["[SEP]"],
		padID:        vocab["[PAD]"],
		unkID:        vocab["[UNK]"],
		maxWordBytes: 100,
	}
}

// LoadWordPiece reads a vocab.txt file, one token per line.
func LoadWordPiece(path string, lowerCase bool) (*WordPiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	sc := bufio.NewScanner(f)
	var idx int64
	for sc.Scan() {
		token := strings.TrimRight(sc.Text(), "\r\n")
		if token == "" {
			idx++
			continue
		}
		vocab[token] = idx
		idx++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan vocab: %w", err)
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("vocab %s is empty", path)
	}
	return NewWordPiece(vocab, lowerCase), nil
}

// loadTokenizer looks for vocab.txt first and falls back to the vocab
// embedded in a WordPiece tokenizer.json.
func loadTokenizer(dir string, lowerCase bool) (*WordPiece, error) {
	for _, path := range []string{
		filepath.Join(dir, "vocab.txt"),
		filepath.Join(dir, "tokenizer", "vocab.txt"),
	} {
		if _, err := os.Stat(path); err == nil {
			return LoadWordPiece(path, lowerCase)
		}
	}
	for _, path := range []string{
		filepath.Join(dir, "tokenizer.json"),
		filepath.Join(dir, "tokenizer", "tokenizer.json"),
	} {
		if _, err := os.Stat(path); err == nil {
			return loadTokenizerJSON(path, lowerCase)
		}
	}
	return nil, fmt.Errorf("tokenizer assets not found in %s (vocab.txt or tokenizer.json)", dir)
}

func loadTokenizerJSON(path string, lowerCase bool) (*WordPiece, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tokenizer.json: %w", err)
	}
	var raw struct {
		Model struct {
			Type  string           `json:"type"`
			Vocab map[string]int64 `json:"vocab"`
		} `json:"model"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode tokenizer.json: %w", err)
	}
	if t := strings.ToLower(strings.TrimSpace(raw.Model.Type)); t != "" && t != "wordpiece" {
		return nil, fmt.Errorf("unsupported tokenizer model %q", raw.Model.Type)
	}
	if len(raw.Model.Vocab) == 0 {
		return nil, fmt.Errorf("tokenizer.json missing vocab")
	}
	return NewWordPiece(raw.Model.Vocab, lowerCase), nil
}

// splitWords runs BERT basic pre-tokenization: split on whitespace and
// isolate every punctuation rune.
func splitWords(text string) []word {
	var words []word
	start := -1
	flush := func(end int) {
		if start >= 0 {
			words = append(words, word{Text: text[start:end], Start: start, End: end})
			start = -1
		}
	}
	for idx, r := range text {
		switch {
		case unicode.IsSpace(r) || unicode.IsControl(r):
			flush(idx)
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush(idx)
			end := idx + len(string(r))
			words = append(words, word{Text: text[idx:end], Start: idx, End: end})
		default:
			if start < 0 {
				start = idx
			}
		}
	}
	flush(len(text))
	return words
}

type piece struct {
	id    int64
	start int
	end   int
}

// pieces splits one word greedily, longest match first. Offsets are relative
// to the word. Lowercasing must not change byte lengths for offsets to hold,
// so words whose lowercase form differs in length are looked up as-is.
func (t *WordPiece) pieces(w string) []piece {
	if len(w) > t.maxWordBytes {
		return []piece{{id: t.unkID, start: 0, end: len(w)}}
	}
	key := w
	if t.lowerCase {
		if lower := strings.ToLower(w); len(lower) == len(w) {
			key = lower
		}
	}
	if id, ok := t.vocab[key]; ok {
		return []piece{{id: id, start: 0, end: len(w)}}
	}

	var out []piece
	start := 0
	for start < len(key) {
		end := len(key)
		found := false
		for end > start {
			sub := key[start:end]
			if start > 0 {
				sub = t.continuation + sub
			}
			if id, ok := t.vocab[sub]; ok {
				out = append(out, piece{id: id, start: start, end: end})
				start = end
				found = true
				break
			}
			end--
		}
		if !found {
			return []piece{{id: t.unkID, start: 0, end: len(w)}}
		}
	}
	return out
}

// encodeWindow packs words[from:] into one sequence of seqLen tokens and
// returns the index of the first word that did not fit. A word is never
// split across windows unless it alone exceeds the window.
func (t *WordPiece) encodeWindow(words []word, from, seqLen int) (encoded, int) {
	ids := make([]int64, 0, seqLen)
	offsets := make([]span, 0, seqLen)
	ids = append(ids, t.clsID)
	offsets = append(offsets, noSpan)

	limit := seqLen - 1
	next := from
	for next < len(words) {
		w := words[next]
		ps := t.pieces(w.Text)
		if len(ids)+len(ps) > limit {
			if next == from {
				ps = ps[:limit-len(ids)]
			} else {
				break
			}
		}
		for _, p := range ps {
			ids = append(ids, p.id)
			offsets = append(offsets, span{Start: w.Start + p.start, End: w.Start + p.end})
		}
		next++
	}
	ids = append(ids, t.sepID)
	offsets = append(offsets, noSpan)

	attn := make([]int64, seqLen)
	for i := range ids {
		attn[i] = 1
	}
	for len(ids) < seqLen {
		ids = append(ids, t.padID)
		offsets = append(offsets, noSpan)
	}
	return encoded{IDs: ids, Attention: attn, Offsets: offsets}, next
}

// Encode tokenizes text into as many windows as needed to cover it.
func (t *WordPiece) Encode(text string, seqLen int) []encoded {
	if seqLen < 3 {
		return nil
	}
	words := splitWords(text)
	var out []encoded
	for from := 0; from < len(words); {
		enc, next := t.encodeWindow(words, from, seqLen)
		out = append(out, enc)
		from = next
	}
	return out
}
