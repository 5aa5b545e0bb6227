// Package enrich appends historical and biographical context to a prompt
// before it is sent to the language model.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ErrEmptyPrompt is returned for an empty or all-whitespace prompt.
var ErrEmptyPrompt = errors.New("prompt is required")

// SummaryFetcher returns a short text summary for a page title.
type SummaryFetcher interface {
	Summary(ctx context.Context, title string) (string, error)
}

// Result is the outcome of enriching one prompt.
type Result struct {
	Prompt   string
	Enriched string
	// Year is zero when no year was detected.
	Year   int
	Person string
}

// Enricher detects years and people in a prompt and appends a summary for each.
type Enricher struct {
	fetcher SummaryFetcher
	logger  *slog.Logger
}

func NewEnricher(fetcher SummaryFetcher, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{fetcher: fetcher, logger: logger}
}

// Enrich returns prompt with context blocks appended. Summary fetch failures
// never fail the call; fallback text is used instead.
func (e *Enricher) Enrich(ctx context.Context, prompt string) (Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return Result{}, ErrEmptyPrompt
	}

	res := Result{Prompt: prompt}
	year, hasYear := ExtractYear(prompt)
	if hasYear {
		res.Year = year
	}
	if HasPersonTrigger(prompt) {
		res.Person, _ = ExtractPerson(prompt)
	}

	var yearText, personText string
	g, gctx := errgroup.WithContext(ctx)
	if hasYear {
		g.Go(func() error {
			yearText = e.summaryOr(gctx, strconv.Itoa(year), YearNoData(year), YearFallback(year))
			return nil
		})
	}
	if res.Person != "" {
		g.Go(func() error {
			personText = e.summaryOr(gctx, res.Person, PersonNoData(res.Person), PersonFallback(res.Person))
			return nil
		})
	}
	_ = g.Wait()

	var b strings.Builder
	b.WriteString(prompt)
	if hasYear {
		fmt.Fprintf(&b, "\n\nHistorical context for %d: %s", year, yearText)
	}
	if res.Person != "" {
		fmt.Fprintf(&b, "\n\nBiographical info: %s", personText)
	}
	res.Enriched = b.String()
	return res, nil
}

// summaryOr returns the fetched summary for title. A blank summary yields
// noData and a failed fetch yields fallback.
func (e *Enricher) summaryOr(ctx context.Context, title, noData, fallback string) string {
	text, err := e.fetcher.Summary(ctx, title)
	if err != nil {
		e.logger.WarnContext(ctx, "summary unavailable, using fallback", "title", title, "error", err)
		return fallback
	}
	if strings.TrimSpace(text) == "" {
		return noData
	}
	return text
}
