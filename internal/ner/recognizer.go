// Package ner runs a token-classification ONNX model over document text and
// reports its entities as predictions for the high-recall pass.
package ner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
	"gopkg.in/yaml.v3"

	"github.com/straja-ai/docshield/internal/detecterr"
	"github.com/straja-ai/docshield/internal/intel"
	"github.com/straja-ai/docshield/internal/redact"
	"github.com/straja-ai/docshield/internal/safety"
)

// Origin tags predictions produced by this package.
const Origin = "ner"

const (
	defaultSeqLen       = 256
	defaultPoolSize     = 1
	defaultIntraThreads = 1
	defaultInterThreads = 1
)

// Config locates a model bundle. A bundle directory holds model.onnx (or
// model.int8.onnx), vocab.txt or tokenizer.json, a label map (config.json
// id2label or label_map.json) and an optional thresholds.yaml.
type Config struct {
	BundleDir    string
	Version      string
	SeqLen       int
	PoolSize     int
	IntraThreads int
	InterThreads int
	LowerCase    bool
}

// Recognizer is an intel.EntitySource backed by an ONNX session pool.
type Recognizer struct {
	version    string
	seqLen     int
	numLabels  int
	labels     []string
	thresholds map[string]float64
	tokenizer  *WordPiece
	sessions   chan *session
	poolSize   int
}

var _ intel.EntitySource = (*Recognizer)(nil)

type session struct {
	session       *ort.AdvancedSession
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
}

func (s *session) destroy() {
	if s.session != nil {
		s.session.Destroy()
	}
	if s.inputIDs != nil {
		s.inputIDs.Destroy()
	}
	if s.attentionMask != nil {
		s.attentionMask.Destroy()
	}
	if s.tokenTypeIDs != nil {
		s.tokenTypeIDs.Destroy()
	}
	if s.output != nil {
		s.output.Destroy()
	}
}

// Load initializes the onnxruntime environment and builds a session pool.
func Load(cfg Config) (*Recognizer, error) {
	if strings.TrimSpace(cfg.BundleDir) == "" {
		return nil, detecterr.New(detecterr.KindConfig, "ner.load", errors.New("bundle dir is empty"))
	}
	seqLen := cfg.SeqLen
	if seqLen <= 0 {
		seqLen = defaultSeqLen
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	intraThr := cfg.IntraThreads
	if intraThr <= 0 {
		intraThr = defaultIntraThreads
	}
	interThr := cfg.InterThreads
	if interThr <= 0 {
		interThr = defaultInterThreads
	}

	libPath := resolveSharedLibraryPath(cfg.BundleDir)
	if libPath == "" {
		return nil, detecterr.New(detecterr.KindModel, "ner.load",
			fmt.Errorf("%w: onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH", detecterr.ErrModelUnavailable))
	}
	if !ort.IsInitialized() {
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, detecterr.New(detecterr.KindModel, "ner.load", fmt.Errorf("initialize onnxruntime: %w", err))
		}
	}

	modelPath := resolveModelPath(cfg.BundleDir)
	if modelPath == "" {
		return nil, detecterr.New(detecterr.KindModel, "ner.load", fmt.Errorf("%w: no model.onnx in %s", detecterr.ErrModelUnavailable, cfg.BundleDir))
	}
	tok, err := loadTokenizer(cfg.BundleDir, cfg.LowerCase)
	if err != nil {
		return nil, detecterr.New(detecterr.KindModel, "ner.load", err)
	}
	meta, err := loadMeta(cfg.BundleDir)
	if err != nil {
		return nil, detecterr.New(detecterr.KindModel, "ner.load", fmt.Errorf("load label map: %w", err))
	}
	if len(meta.Labels) == 0 {
		return nil, detecterr.New(detecterr.KindModel, "ner.load", errors.New("model has no token labels"))
	}
	thresholds, err := loadThresholds(filepath.Join(cfg.BundleDir, "thresholds.yaml"))
	if err != nil {
		return nil, detecterr.New(detecterr.KindModel, "ner.load", fmt.Errorf("load thresholds: %w", err))
	}

	outputName, outputDims, err := selectOutput(modelPath)
	if err != nil {
		return nil, detecterr.New(detecterr.KindModel, "ner.load", fmt.Errorf("output selection: %w", err))
	}
	if debugML() {
		redact.Logf("ner debug: output=%s dims=%v labels=%d", outputName, outputDims, len(meta.Labels))
	}

	sessions := make(chan *session, poolSize)
	for i := 0; i < poolSize; i++ {
		s, err := newSession(modelPath, seqLen, len(meta.Labels), intraThr, interThr, meta.RequiresTokenType, outputName)
		if err != nil {
			close(sessions)
			for s := range sessions {
				s.destroy()
			}
			return nil, detecterr.New(detecterr.KindModel, "ner.load", fmt.Errorf("create onnx session %d/%d: %w", i+1, poolSize, err))
		}
		sessions <- s
	}

	version := cfg.Version
	if version == "" {
		version = filepath.Base(filepath.Clean(cfg.BundleDir))
	}
	redact.Logf("ner: loaded model=%s labels=%d seq_len=%d pool=%d", filepath.Base(modelPath), len(meta.Labels), seqLen, poolSize)
	return &Recognizer{
		version:    version,
		seqLen:     seqLen,
		numLabels:  len(meta.Labels),
		labels:     meta.Labels,
		thresholds: thresholds,
		tokenizer:  tok,
		sessions:   sessions,
		poolSize:   poolSize,
	}, nil
}

func (r *Recognizer) Status() intel.Status {
	if r == nil {
		return intel.Status{}
	}
	return intel.Status{Enabled: true, SourceID: Origin, SourceVersion: r.version}
}

// Predict labels every window of text and returns merged predictions with
// byte offsets into text.
func (r *Recognizer) Predict(ctx context.Context, text string) ([]safety.Prediction, error) {
	if r == nil || r.sessions == nil {
		return nil, detecterr.New(detecterr.KindModel, "ner.predict", detecterr.ErrModelUnavailable)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var ss *session
	select {
	case ss = <-r.sessions:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { r.sessions <- ss }()

	var out []safety.Prediction
	for _, win := range r.tokenizer.Encode(text, r.seqLen) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		preds, err := r.run(ss, win)
		if err != nil {
			return nil, detecterr.New(detecterr.KindModel, "ner.predict", err)
		}
		out = append(out, preds...)
	}
	return r.filter(mergePredictions(out)), nil
}

func (r *Recognizer) run(ss *session, win encoded) ([]safety.Prediction, error) {
	copy(ss.inputIDs.GetData(), win.IDs)
	copy(ss.attentionMask.GetData(), win.Attention)
	if ss.tokenTypeIDs != nil {
		clear(ss.tokenTypeIDs.GetData())
	}
	if err := ss.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	logits := ss.output.GetData()
	if debugML() {
		n := 0
		for _, v := range win.Attention {
			n += int(v)
		}
		redact.Logf("ner debug: tokens=%d logits=%d", n, len(logits))
	}
	tokens := labelTokens(logits, r.numLabels, r.labels, len(win.Offsets))
	return decodeBIO(tokens, win.Offsets), nil
}

func (r *Recognizer) filter(in []safety.Prediction) []safety.Prediction {
	if len(r.thresholds) == 0 {
		return in
	}
	out := in[:0]
	for _, p := range in {
		if floor, ok := r.thresholds[strings.ToUpper(p.Label)]; ok && p.Confidence < floor {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Close releases every pooled session.
func (r *Recognizer) Close() {
	if r == nil || r.sessions == nil {
		return
	}
	for i := 0; i < r.poolSize; i++ {
		(<-r.sessions).destroy()
	}
	r.sessions = nil
}

type modelMeta struct {
	Labels            []string
	RequiresTokenType bool
}

func loadMeta(dir string) (modelMeta, error) {
	var meta modelMeta
	if data, err := os.ReadFile(filepath.Join(dir, "config.json")); err == nil {
		var cfg struct {
			ID2Label      map[string]string `json:"id2label"`
			TypeVocabSize int               `json:"type_vocab_size"`
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return meta, fmt.Errorf("decode config.json: %w", err)
		}
		labels, err := labelsFromIDMap(cfg.ID2Label)
		if err != nil {
			return meta, err
		}
		meta.Labels = labels
		meta.RequiresTokenType = cfg.TypeVocabSize > 0
	}
	if data, err := os.ReadFile(filepath.Join(dir, "label_map.json")); err == nil {
		var list []string
		if err := json.Unmarshal(data, &list); err == nil && len(list) > 0 {
			meta.Labels = list
			return meta, nil
		}
		var idMap map[string]string
		if err := json.Unmarshal(data, &idMap); err != nil {
			return meta, fmt.Errorf("decode label_map.json: %w", err)
		}
		labels, err := labelsFromIDMap(idMap)
		if err != nil {
			return meta, err
		}
		meta.Labels = labels
	}
	return meta, nil
}

func labelsFromIDMap(m map[string]string) ([]string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make([]string, len(m))
	for k, v := range m {
		idx, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("invalid label index %q: %w", k, err)
		}
		if idx < 0 || idx >= len(m) {
			return nil, fmt.Errorf("label index %d out of range", idx)
		}
		out[idx] = v
	}
	return out, nil
}

// loadThresholds reads per-label minimum confidences. A missing file means
// no thresholds.
func loadThresholds(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		Thresholds map[string]float64 `yaml:"thresholds"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(wrapper.Thresholds))
	for k, v := range wrapper.Thresholds {
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("threshold for %s out of range: %v", k, v)
		}
		out[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out, nil
}

func debugML() bool {
	return strings.TrimSpace(os.Getenv("DOCSHIELD_DEBUG_ML")) == "1"
}
