package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/historyguide/apiserver/internal/archive"
	"github.com/historyguide/apiserver/internal/enrich"
	"github.com/historyguide/apiserver/internal/events"
	"github.com/historyguide/apiserver/internal/llm"
	"github.com/historyguide/apiserver/types"
	"github.com/stretchr/testify/require"
)

type stubEnricher struct {
	result enrich.Result
	err    error
}

func (s stubEnricher) Enrich(ctx context.Context, prompt string) (enrich.Result, error) {
	if s.err != nil {
		return enrich.Result{}, s.err
	}
	res := s.result
	res.Prompt = prompt
	return res, nil
}

type stubModel struct {
	answer     string
	err        error
	gotSystem  string
	gotPrompt  string
	calledOnce bool
}

func (m *stubModel) Ask(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.calledOnce = true
	m.gotSystem = systemPrompt
	m.gotPrompt = userPrompt
	return m.answer, m.err
}

type memRecorder struct {
	transcripts []types.Transcript
}

func (m *memRecorder) Record(ctx context.Context, t types.Transcript) {
	m.transcripts = append(m.transcripts, t)
}

func TestAskRelaysEnrichedPrompt(t *testing.T) {
	model := &stubModel{answer: "It ended the war."}
	recorder := &memRecorder{}
	emitter := &recordingEmitter{}
	svc := NewAskService(stubEnricher{result: enrich.Result{Enriched: "enriched text", Year: 1945}}, model, recorder, emitter)

	answer, err := svc.Ask(context.Background(), 3, "What happened in 1945?")
	require.NoError(t, err)
	require.Equal(t, "It ended the war.", answer)
	require.Equal(t, SystemPrompt, model.gotSystem)
	require.Equal(t, "enriched text", model.gotPrompt)

	require.Len(t, recorder.transcripts, 1)
	tr := recorder.transcripts[0]
	require.Equal(t, 3, tr.UserID)
	require.Equal(t, "What happened in 1945?", tr.Prompt)
	require.Equal(t, 1945, tr.Year)
	require.Equal(t, []types.EventType{types.EventPromptAsked}, emitter.events)
}

func TestAskEmptyPromptSkipsModel(t *testing.T) {
	model := &stubModel{}
	svc := NewAskService(stubEnricher{err: enrich.ErrEmptyPrompt}, model, &memRecorder{}, &recordingEmitter{})

	_, err := svc.Ask(context.Background(), 1, " ")
	require.ErrorIs(t, err, enrich.ErrEmptyPrompt)
	require.False(t, model.calledOnce)
}

func TestAskPropagatesUpstreamError(t *testing.T) {
	model := &stubModel{err: &llm.UpstreamError{StatusCode: 503}}
	recorder := &memRecorder{}
	emitter := &recordingEmitter{}
	svc := NewAskService(stubEnricher{}, model, recorder, emitter)

	_, err := svc.Ask(context.Background(), 1, "hi")

	var upstream *llm.UpstreamError
	require.True(t, errors.As(err, &upstream))
	require.Equal(t, 503, upstream.StatusCode)
	require.Empty(t, recorder.transcripts)
	require.Empty(t, emitter.events)
}

// hungStore accepts writes and never answers until the write deadline.
type hungStore struct{}

func (hungStore) EnsureBucket(ctx context.Context) error { return nil }

func (hungStore) Put(ctx context.Context, obj archive.Object) error {
	<-ctx.Done()
	return ctx.Err()
}

func (hungStore) Bucket() string { return "hung" }

func TestAskDoesNotWaitForArchiveOrBroker(t *testing.T) {
	svc := NewAskService(
		stubEnricher{result: enrich.Result{Enriched: "enriched"}},
		&stubModel{answer: "answer"},
		archive.New(hungStore{}, nil),
		events.NewPublisher(hungBroker{}, "audit", nil),
	)

	start := time.Now()
	answer, err := svc.Ask(context.Background(), 1, "What happened in 1066?")
	require.NoError(t, err)
	require.Equal(t, "answer", answer)
	require.Less(t, time.Since(start), time.Second)
}
