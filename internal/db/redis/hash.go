package redis

import (
	"context"

	"github.com/scribe-cloud/quill/internal/db"
)

// HSet writes hash fields for an exemplar document key.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	b := s.b().Hset().Key(key).FieldValue()
	for f, v := range fields {
		b = b.FieldValue(f, v)
	}
	if err := s.do(ctx, b.Build()).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}
