package pipeline

import (
	"context"

	"github.com/scribe-cloud/quill/internal/domain"
)

// retriever fetches exemplars; failures have already degraded to empty results.
type retriever interface {
	Search(ctx context.Context, query, section, category string) []domain.RetrievedDocument
	SearchSections(ctx context.Context, query string, sections []string, category string) map[string][]domain.RetrievedDocument
}

// generator produces text from an assembled prompt.
type generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// matchCache memoizes expensive composite results.
type matchCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}

// TitleRequest asks for a title for an article body.
type TitleRequest struct {
	Content  string
	Category string
	Locale   string
}

// DescriptionRequest asks for a preview description for an article body.
type DescriptionRequest struct {
	Content  string
	Category string
	Locale   string
}

// ExpandRequest asks for an expanded and improved article body. The content
// may carry embedded inline images; they survive the round-trip untouched.
type ExpandRequest struct {
	Content  string
	Category string
	Locale   string
}

// CVSectionRequest asks for a rewrite of one CV section.
type CVSectionRequest struct {
	Section string
	Text    string
	Locale  string
}

// MatchRequest asks for a CV-vs-job match report.
type MatchRequest struct {
	CV     string
	Job    string
	Locale string
}
