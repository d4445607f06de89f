package exemplar

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/scribe-cloud/quill/internal/db"
	"github.com/scribe-cloud/quill/internal/domain"
)

const (
	// IndexName is the FT index over curated exemplar documents.
	IndexName = domain.KeyPrefix + "exemplars:idx"

	keyPrefix = domain.KeyPrefix + "exemplars:"

	scoreField = "__vector_score"
)

// store is the consumer interface over the database facade (ISP).
type store interface {
	db.HashStore
	db.IndexManager
	db.Searcher
}

// Config tunes exemplar retrieval.
type Config struct {
	// VectorDim must match the embedding provider's output dimensions.
	VectorDim int
	// MinScore drops hits below this cosine similarity.
	MinScore float64
	// MinRating keeps only exemplars rated at or above this value.
	MinRating float64
}

// Exemplar is a curated reference document written to the index.
type Exemplar struct {
	ID       string
	Content  string
	Section  string
	Category string
	Rating   float64
	Vector   []float32
}

// Repository stores and searches exemplar documents in the vector index.
type Repository struct {
	store  store
	cfg    Config
	logger *zap.Logger
}

// New creates an exemplar repository.
func New(s store, cfg Config, logger *zap.Logger) *Repository {
	return &Repository{store: s, cfg: cfg, logger: logger}
}

// EnsureIndex creates the exemplar FT index if it does not exist yet.
func (r *Repository) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return fmt.Errorf("check exemplar index: %w", err)
	}
	if exists {
		return nil
	}

	def := db.NewIndex(IndexName).
		Prefix(keyPrefix).
		Tag("section").
		Tag("category").
		Numeric("rating").
		Text("content").
		VectorHNSW("vector", r.cfg.VectorDim, db.DistanceCosine, 16, 200).
		MustBuild()

	if err := r.store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create exemplar index: %w", err)
	}

	r.logger.Info("Created exemplar index",
		zap.String("index", IndexName),
		zap.Int("dimensions", r.cfg.VectorDim))
	return nil
}

// Upsert writes one exemplar document. Same ID overwrites in place.
func (r *Repository) Upsert(ctx context.Context, ex Exemplar) error {
	if ex.ID == "" {
		return fmt.Errorf("exemplar id is required")
	}
	if len(ex.Vector) != r.cfg.VectorDim {
		return fmt.Errorf("exemplar vector has %d dimensions, index expects %d",
			len(ex.Vector), r.cfg.VectorDim)
	}

	fields := map[string]string{
		"content":  ex.Content,
		"section":  ex.Section,
		"category": ex.Category,
		"rating":   strconv.FormatFloat(ex.Rating, 'g', -1, 64),
		"vector":   string(vectorToBytes(ex.Vector)),
	}

	if err := r.store.HSet(ctx, keyPrefix+ex.ID, fields); err != nil {
		return fmt.Errorf("upsert exemplar %s: %w", ex.ID, err)
	}
	return nil
}

// Search runs a KNN query filtered to the given section and category and
// returns hits above the similarity floor, highest-ranked first.
//
// An empty or "general" category widens the search to all categories within
// the section. The rating floor is always applied.
func (r *Repository) Search(ctx context.Context, vector []float32, section, category string, k int) ([]domain.RetrievedDocument, error) {
	clauses := []string{
		db.TagFilter("section", section),
		db.NumericMin("rating", r.cfg.MinRating),
	}
	if !isCategoryWildcard(category) {
		clauses = append(clauses, db.TagFilter("category", category))
	}

	result, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    IndexName,
		Prefilter:    db.AndFilters(clauses...),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"content", "section", "category", "rating", scoreField},
	})
	if err != nil {
		return nil, fmt.Errorf("search exemplars: %w", err)
	}

	docs := make([]domain.RetrievedDocument, 0, len(result.Entries))
	for _, entry := range result.Entries {
		if entry.Score < r.cfg.MinScore {
			continue
		}

		rating, err := strconv.ParseFloat(entry.Fields["rating"], 64)
		if err != nil {
			r.logger.Warn("Exemplar has unparseable rating",
				zap.String("key", entry.Key),
				zap.String("rating", entry.Fields["rating"]))
			rating = 0
		}

		docs = append(docs, domain.RetrievedDocument{
			ID:    strings.TrimPrefix(entry.Key, keyPrefix),
			Text:  entry.Fields["content"],
			Score: entry.Score,
			Metadata: domain.DocumentMetadata{
				Section:  entry.Fields["section"],
				Category: entry.Fields["category"],
				Rating:   rating,
			},
		})
	}

	return docs, nil
}

func isCategoryWildcard(category string) bool {
	return category == "" || strings.EqualFold(category, domain.CategoryGeneral)
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
