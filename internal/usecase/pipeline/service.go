// Package pipeline orchestrates the full RAG sequence for each content task:
// extract embedded payloads, retrieve exemplars, assemble the prompt,
// generate, clean artifacts, restore payloads. Every failure crossing the
// package boundary is a typed PipelineError.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/scribe-cloud/quill/internal/content"
	"github.com/scribe-cloud/quill/internal/domain"
	"github.com/scribe-cloud/quill/internal/metrics"
	"github.com/scribe-cloud/quill/internal/prompt"
)

// Retrieval sections per task. CV matching fans out one query per section.
const (
	sectionTitle       = "title"
	sectionDescription = "description"
	sectionContent     = "content"
)

var cvMatchSections = []string{"summary", "experience", "skills", "education"}

// queryRuneLimit caps the retrieval query length. Embedding a full article
// body is wasteful; the opening passage carries the topic.
const queryRuneLimit = 2000

// Service is the pipeline orchestrator.
type Service struct {
	preserver *content.Preserver
	retriever retriever
	generator generator
	matches   matchCache
	logger    *zap.Logger
}

// New creates the orchestrator.
func New(preserver *content.Preserver, r retriever, g generator, matches matchCache, logger *zap.Logger) *Service {
	return &Service{
		preserver: preserver,
		retriever: r,
		generator: g,
		matches:   matches,
		logger:    logger,
	}
}

// GenerateTitle produces one title for an article body.
func (s *Service) GenerateTitle(ctx context.Context, req TitleRequest) (string, error) {
	run := newRun(domain.TaskTitle, s.logger)
	if strings.TrimSpace(req.Content) == "" {
		return "", s.fail(run, fmt.Errorf("no content to generate a title from: %w", domain.ErrNotFound))
	}

	run.to(stateExtracting)
	clean := s.preserver.Extract(req.Content).CleanText

	run.to(stateRetrieving)
	docs := s.retriever.Search(ctx, truncateQuery(clean), sectionTitle, req.Category)

	text, err := s.generateAndClean(ctx, run, domain.TaskTitle, req.Locale,
		prompt.Input{Text: clean}, docTexts(docs))
	if err != nil {
		return "", s.fail(run, err)
	}

	return s.complete(run, text), nil
}

// GenerateDescription produces a preview description for an article body.
func (s *Service) GenerateDescription(ctx context.Context, req DescriptionRequest) (string, error) {
	run := newRun(domain.TaskDescription, s.logger)
	if strings.TrimSpace(req.Content) == "" {
		return "", s.fail(run, fmt.Errorf("no content to describe: %w", domain.ErrNotFound))
	}

	run.to(stateExtracting)
	clean := s.preserver.Extract(req.Content).CleanText

	run.to(stateRetrieving)
	docs := s.retriever.Search(ctx, truncateQuery(clean), sectionDescription, req.Category)

	text, err := s.generateAndClean(ctx, run, domain.TaskDescription, req.Locale,
		prompt.Input{Text: clean}, docTexts(docs))
	if err != nil {
		return "", s.fail(run, err)
	}

	return s.complete(run, text), nil
}

// ExpandContent rewrites an article body, preserving embedded images. Image
// tags are swapped for placeholder tokens before generation and swapped back
// after cleanup, so opaque payloads never pass through the model.
func (s *Service) ExpandContent(ctx context.Context, req ExpandRequest) (string, error) {
	run := newRun(domain.TaskContent, s.logger)
	if strings.TrimSpace(req.Content) == "" {
		return "", s.fail(run, fmt.Errorf("no content to expand: %w", domain.ErrNotFound))
	}

	run.to(stateExtracting)
	extraction := s.preserver.Extract(req.Content)
	if !s.preserver.Validate(extraction) {
		run.logger.Warn("Image extraction failed self-check",
			zap.Int("images", len(extraction.Images)))
	}

	run.to(stateRetrieving)
	docs := s.retriever.Search(ctx, truncateQuery(extraction.CleanText), sectionContent, req.Category)

	text, err := s.generateAndClean(ctx, run, domain.TaskContent, req.Locale,
		prompt.Input{Text: extraction.CleanText}, docTexts(docs))
	if err != nil {
		return "", s.fail(run, err)
	}

	run.to(stateRestoring)
	text = s.preserver.Restore(text, extraction.Images)

	return s.complete(run, text), nil
}

// ImproveCVSection rewrites one CV section.
func (s *Service) ImproveCVSection(ctx context.Context, req CVSectionRequest) (string, error) {
	run := newRun(domain.TaskCVSection, s.logger)
	if strings.TrimSpace(req.Text) == "" {
		return "", s.fail(run, fmt.Errorf("no section text to improve: %w", domain.ErrNotFound))
	}

	run.to(stateRetrieving)
	docs := s.retriever.Search(ctx, truncateQuery(req.Text), req.Section, "")

	text, err := s.generateAndClean(ctx, run, domain.TaskCVSection, req.Locale,
		prompt.Input{Text: req.Text, Section: req.Section}, docTexts(docs))
	if err != nil {
		return "", s.fail(run, err)
	}

	return s.complete(run, text), nil
}

// MatchCV produces a CV-vs-job match report. Exemplar retrieval fans out one
// concurrent query per CV section; the report is cached because it is the
// most expensive composite result in the system.
func (s *Service) MatchCV(ctx context.Context, req MatchRequest) (string, error) {
	run := newRun(domain.TaskCVMatch, s.logger)
	if strings.TrimSpace(req.CV) == "" || strings.TrimSpace(req.Job) == "" {
		return "", s.fail(run, fmt.Errorf("both CV and job description are required: %w", domain.ErrNotFound))
	}

	cacheKey := matchCacheKey(req)
	if cached, ok := s.matches.Get(cacheKey); ok {
		return s.complete(run, string(cached)), nil
	}

	run.to(stateRetrieving)
	bySection := s.retriever.SearchSections(ctx, truncateQuery(req.CV), cvMatchSections, "")

	var exemplars []string
	for _, section := range cvMatchSections {
		exemplars = append(exemplars, docTexts(bySection[section])...)
	}

	text, err := s.generateAndClean(ctx, run, domain.TaskCVMatch, req.Locale,
		prompt.Input{Text: req.CV, Job: req.Job}, exemplars)
	if err != nil {
		return "", s.fail(run, err)
	}

	s.matches.Set(cacheKey, []byte(text))
	return s.complete(run, text), nil
}

// generateAndClean runs the shared tail of every task: assemble the prompt,
// call the generator, strip artifacts.
func (s *Service) generateAndClean(ctx context.Context, run *run, task domain.Task, locale string, in prompt.Input, exemplars []string) (string, error) {
	p, err := prompt.Build(task, domain.ParseLocale(locale), in, exemplars)
	if err != nil {
		return "", fmt.Errorf("assemble prompt: %w", err)
	}

	run.to(stateGenerating)
	text, err := s.generator.Generate(ctx, p)
	if err != nil {
		return "", err
	}

	run.to(stateCleaning)
	return cleanArtifacts(text), nil
}

func (s *Service) complete(run *run, text string) string {
	run.to(stateCompleted)
	metrics.PipelineTasksTotal.WithLabelValues(string(run.task), "completed").Inc()
	return text
}

func (s *Service) fail(run *run, err error) error {
	perr := domain.ClassifyError(err)
	run.to(stateFailed)
	metrics.PipelineTasksTotal.WithLabelValues(string(run.task), string(perr.Kind)).Inc()
	run.logger.Error("Pipeline task failed",
		zap.String("kind", string(perr.Kind)),
		zap.Error(err))
	return perr
}

func docTexts(docs []domain.RetrievedDocument) []string {
	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		texts = append(texts, d.Text)
	}
	return texts
}

func truncateQuery(text string) string {
	runes := []rune(text)
	if len(runes) <= queryRuneLimit {
		return text
	}
	return string(runes[:queryRuneLimit])
}

func matchCacheKey(req MatchRequest) string {
	h := sha256.Sum256([]byte(req.CV + "|" + req.Job + "|" + req.Locale))
	return hex.EncodeToString(h[:])
}
