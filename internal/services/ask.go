package services

import (
	"context"
	"fmt"

	"github.com/historyguide/apiserver/internal/enrich"
	"github.com/historyguide/apiserver/types"
)

// SystemPrompt establishes the assistant persona for every ask.
const SystemPrompt = "You are a History Guide AI.\n\n" +
	"You explain historical events clearly and accurately.\n" +
	"You can use any provided historical context to enhance your answers."

// PromptEnricher adds context to a raw prompt.
type PromptEnricher interface {
	Enrich(ctx context.Context, prompt string) (enrich.Result, error)
}

// ChatModel answers a prompt given a system instruction.
type ChatModel interface {
	Ask(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// TranscriptRecorder keeps a record of answered prompts. Failures are its own concern.
type TranscriptRecorder interface {
	Record(ctx context.Context, t types.Transcript)
}

// AskService enriches a prompt and relays it to the chat model.
type AskService struct {
	enricher    PromptEnricher
	model       ChatModel
	transcripts TranscriptRecorder
	events      EventEmitter
}

func NewAskService(enricher PromptEnricher, model ChatModel, transcripts TranscriptRecorder, events EventEmitter) *AskService {
	return &AskService{
		enricher:    enricher,
		model:       model,
		transcripts: transcripts,
		events:      events,
	}
}

// Ask returns the model's answer to prompt on behalf of userID.
func (s *AskService) Ask(ctx context.Context, userID int, prompt string) (string, error) {
	enriched, err := s.enricher.Enrich(ctx, prompt)
	if err != nil {
		return "", err
	}

	answer, err := s.model.Ask(ctx, SystemPrompt, enriched.Enriched)
	if err != nil {
		return "", fmt.Errorf("ask model: %w", err)
	}

	s.events.Emit(ctx, types.EventPromptAsked, userID)
	s.transcripts.Record(ctx, types.Transcript{
		UserID:         userID,
		Prompt:         enriched.Prompt,
		EnrichedPrompt: enriched.Enriched,
		Year:           enriched.Year,
		Person:         enriched.Person,
		Response:       answer,
	})
	return answer, nil
}
