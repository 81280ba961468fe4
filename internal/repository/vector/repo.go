// Package vector adapts the Redis FT.SEARCH KNN index to the discovery
// pipeline's vector search contract. User embeddings are stored as hashes
// with a binary vector field under a common prefix.
package vector

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kindred-labs/resonance/internal/db"
	"github.com/kindred-labs/resonance/internal/domain"
)

const vectorField = "__vector"

// store is the consumer interface for vector operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo implements vector search over user embeddings.
type Repo struct {
	store  store
	prefix string
	dim    int
}

// HNSWConfig carries index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// New creates a vector repository.
func New(s store, keyPrefix string, dim int) *Repo {
	return &Repo{store: s, prefix: keyPrefix, dim: dim}
}

func (r *Repo) key(userID string) string {
	return r.prefix + "uservec:" + userID
}

func (r *Repo) indexName() string {
	return r.prefix + "uservec:idx"
}

// EnsureIndex creates the HNSW cosine index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context, hnsw HNSWConfig) error {
	def := &db.IndexDefinition{
		Name:        r.indexName(),
		StorageType: db.StorageHash,
		Prefixes:    []string{r.prefix + "uservec:"},
		Fields: []db.IndexField{{
			Name:              vectorField,
			Alias:             "vector",
			Type:              db.IndexFieldVector,
			VectorAlgo:        db.VectorHNSW,
			VectorDim:         r.dim,
			VectorDistance:    db.DistanceCosine,
			VectorM:           hnsw.M,
			VectorEFConstruct: hnsw.EFConstruct,
		}},
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create vector index: %w", err)
	}
	return nil
}

// IndexReady reports whether the vector index exists.
func (r *Repo) IndexReady(ctx context.Context) (bool, error) {
	return r.store.IndexExists(ctx, r.indexName())
}

// Upsert stores a user's embedding. The vector must already be validated
// by the caller against the configured width.
func (r *Repo) Upsert(ctx context.Context, userID string, vec []float32) error {
	if err := domain.ValidateVector(vec, r.dim); err != nil {
		return fmt.Errorf("upsert vector %s: %w", userID, err)
	}
	fields := map[string]string{vectorField: vectorToBytes(vec)}
	if err := r.store.HSet(ctx, r.key(userID), fields); err != nil {
		return fmt.Errorf("upsert vector %s: %w", userID, err)
	}
	return nil
}

// GetVector loads a user's embedding. Absence maps to domain.ErrEmbeddingNotFound.
func (r *Repo) GetVector(ctx context.Context, userID string) ([]float32, error) {
	fields, err := r.store.HGetAll(ctx, r.key(userID))
	if err != nil {
		return nil, fmt.Errorf("get vector %s: %w", userID, err)
	}
	raw, ok := fields[vectorField]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrEmbeddingNotFound)
	}
	vec := bytesToVector(raw)
	if vec == nil {
		return nil, fmt.Errorf("user %s: malformed stored vector", userID)
	}
	return vec, nil
}

// Search returns up to limit candidates most similar to the query vector,
// excluding excludeID. One extra hit is requested to absorb the query
// user's own row appearing in its results.
func (r *Repo) Search(
	ctx context.Context, query []float32, limit int, excludeID string,
) ([]domain.Candidate, error) {
	q := &db.KNNQuery{
		IndexName:     r.indexName(),
		Vector:        query,
		K:             limit + 1,
		ReturnFields:  []string{vectorField, "__vector_score"},
		IncludeVector: true,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	out := make([]domain.Candidate, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		userID := strings.TrimPrefix(entry.Key, r.prefix+"uservec:")
		if userID == excludeID {
			continue
		}
		c := domain.Candidate{UserID: userID, Similarity: entry.Score}
		if raw, ok := entry.Fields[vectorField]; ok {
			c.Vector = bytesToVector(raw)
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// vectorToBytes serializes a vector to the binary format FT.SEARCH expects.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
