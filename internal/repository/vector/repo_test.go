package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/kindred-labs/resonance/internal/db"
	"github.com/kindred-labs/resonance/internal/domain"
)

// --- Mocks ---

type fakeVectorStore struct {
	hashes       map[string]map[string]string
	result       *db.SearchResult
	lastQuery    *db.KNNQuery
	indexCreated *db.IndexDefinition
	createErr    error
	indexExists  bool
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{hashes: make(map[string]map[string]string)}
}

func (f *fakeVectorStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	f.lastQuery = q
	return f.result, nil
}

func (f *fakeVectorStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	f.hashes[key] = fields
	return nil
}

func (f *fakeVectorStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return f.hashes[key], nil
}

func (f *fakeVectorStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.indexCreated = def
	return nil
}

func (f *fakeVectorStore) IndexExists(ctx context.Context, name string) (bool, error) {
	return f.indexExists, nil
}

// --- Tests ---

func TestUpsertAndGetVector(t *testing.T) {
	store := newFakeVectorStore()
	repo := New(store, "rbs:", 4)
	ctx := context.Background()

	vec := []float32{0.1, -0.5, 0.8, 0.3}
	if err := repo.Upsert(ctx, "u1", vec); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := repo.GetVector(ctx, "u1")
	if err != nil {
		t.Fatalf("GetVector failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d elements, want 4", len(got))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("element %d = %v, want %v", i, got[i], vec[i])
		}
	}
}

func TestUpsert_RejectsWrongWidth(t *testing.T) {
	repo := New(newFakeVectorStore(), "rbs:", 4)

	err := repo.Upsert(context.Background(), "u1", []float32{1, 2})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestGetVector_NotFound(t *testing.T) {
	repo := New(newFakeVectorStore(), "rbs:", 4)

	_, err := repo.GetVector(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrEmbeddingNotFound) {
		t.Errorf("expected ErrEmbeddingNotFound, got %v", err)
	}
}

func TestSearch_ExcludesSelfAndCapsAtLimit(t *testing.T) {
	store := newFakeVectorStore()
	store.result = &db.SearchResult{
		Total: 4,
		Entries: []db.SearchEntry{
			{Key: "rbs:uservec:u1", Score: 1.0}, // the query user's own row
			{Key: "rbs:uservec:c1", Score: 0.95, Fields: map[string]string{vectorField: vectorToBytes([]float32{1, 0, 0, 0})}},
			{Key: "rbs:uservec:c2", Score: 0.90},
			{Key: "rbs:uservec:c3", Score: 0.85},
		},
	}
	repo := New(store, "rbs:", 4)

	got, err := repo.Search(context.Background(), []float32{1, 0, 0, 0}, 2, "u1")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].UserID != "c1" || got[1].UserID != "c2" {
		t.Errorf("candidates = %s, %s; want c1, c2", got[0].UserID, got[1].UserID)
	}
	if got[0].Vector == nil || got[1].Vector != nil {
		t.Error("vector should carry through only when the index returned it")
	}

	// one extra hit requested to absorb the self row
	if store.lastQuery.K != 3 {
		t.Errorf("K = %d, want limit+1", store.lastQuery.K)
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	store := newFakeVectorStore()
	store.result = &db.SearchResult{Total: 0}
	repo := New(store, "rbs:", 4)

	got, err := repo.Search(context.Background(), []float32{1, 0, 0, 0}, 5, "u1")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no candidates, got %d", len(got))
	}
}

func TestEnsureIndex(t *testing.T) {
	store := newFakeVectorStore()
	repo := New(store, "rbs:", 256)

	if err := repo.EnsureIndex(context.Background(), HNSWConfig{M: 16, EFConstruct: 200}); err != nil {
		t.Fatalf("EnsureIndex failed: %v", err)
	}

	def := store.indexCreated
	if def == nil {
		t.Fatal("index was not created")
	}
	if def.Name != "rbs:uservec:idx" {
		t.Errorf("index name = %q", def.Name)
	}
	if len(def.Fields) != 1 || def.Fields[0].VectorDim != 256 {
		t.Errorf("index fields = %+v", def.Fields)
	}
	if def.Fields[0].VectorM != 16 || def.Fields[0].VectorEFConstruct != 200 {
		t.Errorf("hnsw params = %+v", def.Fields[0])
	}
}

func TestEnsureIndex_AlreadyExists(t *testing.T) {
	store := newFakeVectorStore()
	store.createErr = db.ErrIndexExists
	repo := New(store, "rbs:", 4)

	if err := repo.EnsureIndex(context.Background(), HNSWConfig{M: 16, EFConstruct: 200}); err != nil {
		t.Errorf("existing index must not be an error: %v", err)
	}
}

func TestVectorBytesRoundTrip(t *testing.T) {
	vec := []float32{0.5, -1.25, 3.0}
	got := bytesToVector(vectorToBytes(vec))
	if len(got) != 3 {
		t.Fatalf("got %d elements, want 3", len(got))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("element %d = %v, want %v", i, got[i], vec[i])
		}
	}

	if bytesToVector("abc") != nil {
		t.Error("truncated payload must return nil")
	}
}
