package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/scribe-cloud/quill/internal/content"
	"github.com/scribe-cloud/quill/internal/domain"
	"github.com/scribe-cloud/quill/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

type stubRetriever struct {
	mu       sync.Mutex
	sections []string
	docs     []domain.RetrievedDocument
}

func (r *stubRetriever) Search(_ context.Context, _, section, _ string) []domain.RetrievedDocument {
	r.mu.Lock()
	r.sections = append(r.sections, section)
	r.mu.Unlock()
	return r.docs
}

func (r *stubRetriever) SearchSections(ctx context.Context, query string, sections []string, category string) map[string][]domain.RetrievedDocument {
	out := make(map[string][]domain.RetrievedDocument, len(sections))
	for _, s := range sections {
		out[s] = r.Search(ctx, query, s, category)
	}
	return out
}

type stubGenerator struct {
	fn      func(prompt string) (string, error)
	prompts []string
	calls   int
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.fn != nil {
		return g.fn(prompt)
	}
	return "generated", nil
}

// echoInput returns the content portion of the prompt unchanged, standing in
// for a model that reproduces its input.
func echoInput(prompt string) (string, error) {
	const marker = "## Input\n"
	i := strings.LastIndex(prompt, marker)
	if i < 0 {
		return "", fmt.Errorf("prompt has no input block")
	}
	return strings.TrimSuffix(prompt[i+len(marker):], "\n"), nil
}

type mapCache struct {
	data map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string][]byte)} }

func (c *mapCache) Get(key string) ([]byte, bool) {
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Set(key string, value []byte) { c.data[key] = value }

func newService(t *testing.T, r *stubRetriever, g *stubGenerator) *Service {
	t.Helper()
	return New(content.NewPreserver(zap.NewNop()), r, g, newMapCache(), zap.NewNop())
}

func TestGenerateTitle_Success(t *testing.T) {
	r := &stubRetriever{docs: []domain.RetrievedDocument{
		{ID: "t1", Text: "A reference title", Score: 0.9},
	}}
	g := &stubGenerator{fn: func(string) (string, error) { return "Fresh Title", nil }}
	svc := newService(t, r, g)

	got, err := svc.GenerateTitle(context.Background(), TitleRequest{Content: "article body", Category: "tech"})
	if err != nil {
		t.Fatalf("GenerateTitle: %v", err)
	}
	if got != "Fresh Title" {
		t.Errorf("got %q", got)
	}
	if len(r.sections) != 1 || r.sections[0] != "title" {
		t.Errorf("retrieval sections = %v", r.sections)
	}
	if !strings.Contains(g.prompts[0], "A reference title") {
		t.Error("exemplar text missing from prompt")
	}
	if !strings.Contains(g.prompts[0], "article body") {
		t.Error("input text missing from prompt")
	}
}

func TestGenerateTitle_EmptyContent(t *testing.T) {
	svc := newService(t, &stubRetriever{}, &stubGenerator{})

	_, err := svc.GenerateTitle(context.Background(), TitleRequest{Content: "   "})
	var perr *domain.PipelineError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if perr.Kind != domain.KindNotFound {
		t.Errorf("kind = %q, want not_found", perr.Kind)
	}
}

func TestGenerateDescription_StripsImagePayloadFromPrompt(t *testing.T) {
	g := &stubGenerator{fn: func(string) (string, error) { return "A description.", nil }}
	svc := newService(t, &stubRetriever{}, g)

	html := `<p>Intro</p><img src="data:image/png;base64,AAAA"><p>More</p>`
	_, err := svc.GenerateDescription(context.Background(), DescriptionRequest{Content: html})
	if err != nil {
		t.Fatalf("GenerateDescription: %v", err)
	}
	if strings.Contains(g.prompts[0], "base64,AAAA") {
		t.Error("opaque image payload leaked into the prompt")
	}
	if !strings.Contains(g.prompts[0], "{{IMAGE_0}}") {
		t.Error("placeholder missing from prompt")
	}
}

func TestExpandContent_RoundTripThroughEcho(t *testing.T) {
	html := `<p>Hi</p><img src="data:image/png;base64,AAA"><p>Bye</p>`

	g := &stubGenerator{fn: echoInput}
	svc := newService(t, &stubRetriever{}, g)

	got, err := svc.ExpandContent(context.Background(), ExpandRequest{Content: html})
	if err != nil {
		t.Fatalf("ExpandContent: %v", err)
	}
	if got != html {
		t.Errorf("round trip mismatch:\n got  %q\n want %q", got, html)
	}
}

func TestExpandContent_TwoImagesDistinctPlaceholders(t *testing.T) {
	html := `<img src="data:a"><p>mid</p><img src='data:b'>`

	g := &stubGenerator{fn: echoInput}
	svc := newService(t, &stubRetriever{}, g)

	got, err := svc.ExpandContent(context.Background(), ExpandRequest{Content: html})
	if err != nil {
		t.Fatalf("ExpandContent: %v", err)
	}
	if got != html {
		t.Errorf("round trip mismatch:\n got  %q\n want %q", got, html)
	}
	if !strings.Contains(g.prompts[0], "{{IMAGE_0}}") || !strings.Contains(g.prompts[0], "{{IMAGE_1}}") {
		t.Error("expected two distinct placeholders in the prompt")
	}
}

func TestExpandContent_DroppedPlaceholderIsBestEffort(t *testing.T) {
	html := `<p>Hi</p><img src="data:image/png;base64,AAA">`

	g := &stubGenerator{fn: func(string) (string, error) { return "<p>Rewritten without image</p>", nil }}
	svc := newService(t, &stubRetriever{}, g)

	got, err := svc.ExpandContent(context.Background(), ExpandRequest{Content: html})
	if err != nil {
		t.Fatalf("ExpandContent: %v", err)
	}
	if strings.Contains(got, "{{IMAGE_") || strings.Contains(got, "img src") {
		t.Errorf("dropped placeholder should leave no image, got %q", got)
	}
}

func TestExpandContent_StripsGenerationArtifacts(t *testing.T) {
	g := &stubGenerator{fn: func(string) (string, error) {
		return "```html\n<p>Better text</p>\n```", nil
	}}
	svc := newService(t, &stubRetriever{}, g)

	got, err := svc.ExpandContent(context.Background(), ExpandRequest{Content: "<p>text</p>"})
	if err != nil {
		t.Fatalf("ExpandContent: %v", err)
	}
	if got != "<p>Better text</p>" {
		t.Errorf("got %q", got)
	}
}

func TestImproveCVSection_UsesSectionForRetrieval(t *testing.T) {
	r := &stubRetriever{}
	svc := newService(t, r, &stubGenerator{})

	_, err := svc.ImproveCVSection(context.Background(), CVSectionRequest{
		Section: "experience",
		Text:    "Worked on things.",
	})
	if err != nil {
		t.Fatalf("ImproveCVSection: %v", err)
	}
	if len(r.sections) != 1 || r.sections[0] != "experience" {
		t.Errorf("retrieval sections = %v", r.sections)
	}
}

func TestMatchCV_FansOutPerSection(t *testing.T) {
	r := &stubRetriever{}
	svc := newService(t, r, &stubGenerator{fn: func(string) (string, error) {
		return `{"overallScore": 70}`, nil
	}})

	_, err := svc.MatchCV(context.Background(), MatchRequest{CV: "cv text", Job: "job text"})
	if err != nil {
		t.Fatalf("MatchCV: %v", err)
	}

	seen := make(map[string]bool)
	for _, s := range r.sections {
		seen[s] = true
	}
	for _, want := range cvMatchSections {
		if !seen[want] {
			t.Errorf("missing retrieval for section %q", want)
		}
	}
}

func TestMatchCV_ReportIsCached(t *testing.T) {
	g := &stubGenerator{fn: func(string) (string, error) {
		return `{"overallScore": 70}`, nil
	}}
	svc := newService(t, &stubRetriever{}, g)

	req := MatchRequest{CV: "cv text", Job: "job text"}
	first, err := svc.MatchCV(context.Background(), req)
	if err != nil {
		t.Fatalf("first MatchCV: %v", err)
	}
	second, err := svc.MatchCV(context.Background(), req)
	if err != nil {
		t.Fatalf("second MatchCV: %v", err)
	}

	if g.calls != 1 {
		t.Errorf("identical match must be served from cache, generator calls = %d", g.calls)
	}
	if first != second {
		t.Errorf("cached report differs: %q vs %q", first, second)
	}
}

func TestMatchCV_MissingJob(t *testing.T) {
	svc := newService(t, &stubRetriever{}, &stubGenerator{})

	_, err := svc.MatchCV(context.Background(), MatchRequest{CV: "cv text"})
	var perr *domain.PipelineError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if perr.Kind != domain.KindNotFound {
		t.Errorf("kind = %q, want not_found", perr.Kind)
	}
}

func TestPipeline_GeneratorFailureClassified(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantKind  domain.ErrorKind
		retryable bool
	}{
		{"rate limited", fmt.Errorf("api: %w", domain.ErrRateLimited), domain.KindRateLimited, true},
		{"blocked", fmt.Errorf("filtered: %w", domain.ErrUpstreamBlocked), domain.KindUpstreamBlocked, false},
		{"timeout", fmt.Errorf("deadline: %w", domain.ErrTimeout), domain.KindTimeout, true},
		{"unknown", errors.New("boom"), domain.KindInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &stubGenerator{fn: func(string) (string, error) { return "", tt.err }}
			svc := newService(t, &stubRetriever{}, g)

			_, err := svc.GenerateTitle(context.Background(), TitleRequest{Content: "body"})
			var perr *domain.PipelineError
			if !errors.As(err, &perr) {
				t.Fatalf("expected PipelineError, got %v", err)
			}
			if perr.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", perr.Kind, tt.wantKind)
			}
			if perr.Retryable() != tt.retryable {
				t.Errorf("Retryable() = %v, want %v", perr.Retryable(), tt.retryable)
			}
		})
	}
}

func TestPipeline_NoExemplarsStillGenerates(t *testing.T) {
	g := &stubGenerator{fn: func(p string) (string, error) {
		if !strings.Contains(p, "no relevant reference material") {
			return "", fmt.Errorf("expected empty-exemplar note in prompt")
		}
		return "Title", nil
	}}
	svc := newService(t, &stubRetriever{}, g)

	got, err := svc.GenerateTitle(context.Background(), TitleRequest{Content: "body"})
	if err != nil {
		t.Fatalf("GenerateTitle: %v", err)
	}
	if got != "Title" {
		t.Errorf("got %q", got)
	}
}
