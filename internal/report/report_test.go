package report

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/straja-ai/docshield/internal/doctype"
	"github.com/straja-ai/docshield/internal/pipeline"
	"github.com/straja-ai/docshield/internal/safety"
)

const secretMail = "maria.keller@example.ch"

type emailPass struct{}

func (emailPass) Name() string { return "fake_email" }

func (emailPass) Execute(_ context.Context, text string, entities []safety.Entity, rc *pipeline.RunContext) ([]safety.Entity, error) {
	start := strings.Index(text, secretMail)
	e := rc.NewEntity(text, safety.TypeEmail, start, start+len(secretMail), 0.3, safety.SourceRule)
	e.NeedsReview = true
	return append(entities, e), nil
}

type panicPass struct{}

func (panicPass) Name() string { return "fake_panic" }

func (panicPass) Execute(context.Context, string, []safety.Entity, *pipeline.RunContext) ([]safety.Entity, error) {
	panic("cannot parse " + secretMail)
}

func TestBuildEventOmitsEntityText(t *testing.T) {
	p := pipeline.New(pipeline.WithPasses(emailPass{}, panicPass{}))
	res, err := p.Process(context.Background(), "Kontakt: "+secretMail, "doc-7", "de", pipeline.WithDocumentType(doctype.Letter))
	require.NoError(t, err)

	ev := BuildEvent(res)
	require.NotNil(t, ev)
	assert.Equal(t, "doc-7", ev.DocumentID)
	assert.Equal(t, string(doctype.Letter), ev.DocumentType)
	assert.Equal(t, "de", ev.Language)
	assert.Equal(t, 1, ev.Entities)
	assert.Equal(t, map[string]int{string(safety.TypeEmail): 1}, ev.Counts)
	assert.Equal(t, 1, ev.NeedsReview)
	require.Len(t, ev.Passes, 2)
	assert.Equal(t, 1, ev.Passes[0].Added)
	assert.Equal(t, []string{"fake_panic"}, ev.FailedPasses())

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.NotContains(t, string(data), secretMail)
	assert.Contains(t, string(data), "[EMAIL]")
}

func TestBuildEventNil(t *testing.T) {
	assert.Nil(t, BuildEvent(nil))
	var ev *Event
	assert.Nil(t, ev.FailedPasses())
}

func TestFileSinkWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "reports.jsonl")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	require.NoError(t, sink.Deliver(context.Background(), &Event{Version: EventVersion, DocumentID: "a"}))
	require.NoError(t, sink.Deliver(context.Background(), &Event{Version: EventVersion, DocumentID: "b"}))
	require.NoError(t, sink.Close(context.Background()))
	require.NoError(t, sink.Close(context.Background()))
	require.Error(t, sink.Deliver(context.Background(), &Event{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &decoded))
	assert.Equal(t, "b", decoded.DocumentID)
}

func TestFileSinkRejectsEmptyPath(t *testing.T) {
	_, err := NewFileSink("")
	require.Error(t, err)
}

func TestEmitterObservesPipelineResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.jsonl")
	sink, err := NewFileSink(path)
	require.NoError(t, err)
	em := NewEmitter(EmitterConfig{QueueSize: 8, Workers: 2, ShutdownTimeout: time.Second}, sink)

	p := pipeline.New(pipeline.WithPasses(emailPass{}), pipeline.WithObserver(em))
	for _, id := range []string{"d1", "d2", "d3"} {
		_, err := p.Process(context.Background(), "mail "+secretMail, id, "en")
		require.NoError(t, err)
	}
	em.Close(context.Background())

	m := em.MetricsSnapshot()
	assert.Equal(t, uint64(3), m.Enqueued)
	assert.Equal(t, uint64(3), m.SinkSuccess[sink.Name()])
	assert.Zero(t, m.Dropped)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 3)
	assert.NotContains(t, string(data), secretMail)

	// closed emitters drop
	em.Emit(context.Background(), &Event{})
	assert.Equal(t, uint64(1), em.MetricsSnapshot().Dropped)
}

func TestEmitterDropsWhenQueueFull(t *testing.T) {
	wait := make(chan struct{})
	sink := &blockingSink{wait: wait}
	em := NewEmitter(EmitterConfig{QueueSize: 1, Workers: 1, ShutdownTimeout: time.Second}, sink)

	for i := 0; i < 3; i++ {
		em.Emit(context.Background(), &Event{DocumentID: "d"})
	}
	assert.NotZero(t, em.MetricsSnapshot().Dropped)

	close(wait)
	em.Close(context.Background())
}

func TestEmitterCountsSinkFailures(t *testing.T) {
	sink := failingSink{}
	em := NewEmitter(EmitterConfig{}, sink)
	em.Emit(context.Background(), &Event{})
	em.Close(context.Background())
	assert.Equal(t, uint64(1), em.MetricsSnapshot().SinkFailure[sink.Name()])
}

func TestNilEmitter(t *testing.T) {
	var em *Emitter
	em.Emit(context.Background(), &Event{})
	em.Close(context.Background())
	assert.Zero(t, em.MetricsSnapshot().Enqueued)
}

type blockingSink struct {
	wait chan struct{}
}

func (s *blockingSink) Name() string { return "blocking" }

func (s *blockingSink) Deliver(context.Context, *Event) error {
	<-s.wait
	return nil
}

func (s *blockingSink) Close(context.Context) error { return nil }

type failingSink struct{}

func (failingSink) Name() string                          { return "failing" }
func (failingSink) Deliver(context.Context, *Event) error { return errors.New("disk full") }
func (failingSink) Close(context.Context) error           { return nil }
