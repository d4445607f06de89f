package matchstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/scribe-cloud/quill/internal/db"
)

// fakeKV is an in-memory db.KVStore that can simulate failures.
type fakeKV struct {
	data    map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	getKeys []string
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	f.getKeys = append(f.getKeys, key)
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

func (f *fakeKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Del(_ context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func TestStore_RoundTrip(t *testing.T) {
	kv := newFakeKV()
	s := New(kv, 10*time.Minute, nil, zap.NewNop())

	s.Set("report-key", []byte(`{"score": 82}`))

	got, ok := s.Get("report-key")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if string(got) != `{"score": 82}` {
		t.Errorf("got %q", got)
	}
}

func TestStore_KeysAreNamespaced(t *testing.T) {
	kv := newFakeKV()
	s := New(kv, time.Minute, nil, zap.NewNop())

	s.Set("abc", []byte("v"))
	s.Get("abc")

	for key := range kv.data {
		if !strings.HasPrefix(key, "quill:match:") {
			t.Errorf("stored key %q lacks namespace prefix", key)
		}
	}
	if len(kv.getKeys) != 1 || kv.getKeys[0] != "quill:match:abc" {
		t.Errorf("read keys = %v", kv.getKeys)
	}
}

func TestStore_WritesUseConfiguredTTL(t *testing.T) {
	kv := newFakeKV()
	s := New(kv, 10*time.Minute, nil, zap.NewNop())

	s.Set("k", []byte("v"))

	if ttl := kv.ttls["quill:match:k"]; ttl != 10*time.Minute {
		t.Errorf("ttl = %v, want 10m", ttl)
	}
}

func TestStore_MissOnAbsentKey(t *testing.T) {
	s := New(newFakeKV(), time.Minute, nil, zap.NewNop())

	if _, ok := s.Get("never-written"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestStore_ReadFailureDegradesToMiss(t *testing.T) {
	kv := newFakeKV()
	kv.data["quill:match:k"] = []byte("v")
	kv.getErr = errors.New("connection reset")
	s := New(kv, time.Minute, nil, zap.NewNop())

	if _, ok := s.Get("k"); ok {
		t.Error("store failure must surface as a miss, not a hit")
	}
}

func TestStore_WriteFailureIsSwallowed(t *testing.T) {
	kv := newFakeKV()
	kv.setErr = errors.New("connection reset")
	s := New(kv, time.Minute, nil, zap.NewNop())

	s.Set("k", []byte("v")) // must not panic

	if _, ok := s.Get("k"); ok {
		t.Error("failed write must not be readable")
	}
}
