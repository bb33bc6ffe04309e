// Package bolt implements the shared on-disk vector index on top of bbolt.
//
// The index is a directory holding a single bbolt file. The directory is
// either absent (no index) or holds a snapshot written by this package.
// Every operation opens the file, works inside one transaction and closes
// it again; no handle is kept between calls. Writers are serialised in
// process by a mutex and across processes by bbolt's file lock.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driven"
	"github.com/custodia-labs/ragchat/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// FileName is the snapshot file inside the index directory.
const FileName = "index.db"

const lockTimeout = 10 * time.Second

var (
	bucketMeta    = []byte("meta")
	bucketEntries = []byte("entries")
	bucketVectors = []byte("vectors")

	keyDimensions = []byte("dimensions")
	keyModel      = []byte("model")
	keyCount      = []byte("count")
	keyUpdatedAt  = []byte("updated_at")
)

// entry is the stored form of an indexed chunk, without its vector.
type entry struct {
	ChunkID  string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Index is a vector index rooted at a directory.
type Index struct {
	path     string
	embedder driven.EmbeddingService
	mu       sync.RWMutex
}

// New creates an index at dir that embeds text with embedder.
// Nothing is touched on disk until the first Add. A nil embedder leaves
// Stats and Clear usable; Add and Search on an existing snapshot then fail
// with domain.ErrEmbeddingUnavailable.
func New(dir string, embedder driven.EmbeddingService) *Index {
	return &Index{path: dir, embedder: embedder}
}

// Path returns the index directory.
func (i *Index) Path() string {
	return i.path
}

func (i *Index) file() string {
	return filepath.Join(i.path, FileName)
}

// Exists reports whether a snapshot is present.
func (i *Index) Exists() bool {
	_, err := os.Stat(i.file())
	return err == nil
}

// Add embeds the chunks and appends them to the snapshot.
func (i *Index) Add(ctx context.Context, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	if i.embedder == nil {
		return 0, domain.ErrEmbeddingUnavailable
	}

	texts := make([]string, len(chunks))
	for n, c := range chunks {
		texts[n] = c.Content
	}

	start := time.Now()
	vectors, err := i.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, embeddingError("embed chunks", err)
	}
	logger.Elapsed(fmt.Sprintf("embedding %d chunks", len(chunks)), start)
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("%w: got %d embeddings for %d chunks", domain.ErrEmbeddingService, len(vectors), len(chunks))
	}
	dims := len(vectors[0])
	for _, v := range vectors {
		if len(v) == 0 || len(v) != dims {
			return 0, fmt.Errorf("%w: inconsistent embedding dimensions", domain.ErrEmbeddingService)
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	created := !i.Exists()
	if err := os.MkdirAll(i.path, 0o755); err != nil {
		return 0, fmt.Errorf("create index directory: %w", err)
	}

	db, err := bbolt.Open(i.file(), 0o600, &bbolt.Options{Timeout: lockTimeout})
	if err != nil {
		if created {
			_ = os.RemoveAll(i.path)
		}
		return 0, fmt.Errorf("%w: open %s: %w", domain.ErrIndexLoad, i.file(), err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if err := i.checkCompatible(meta, dims); err != nil {
			return err
		}
		entries, err := tx.CreateBucketIfNotExists(bucketEntries)
		if err != nil {
			return err
		}
		vecs, err := tx.CreateBucketIfNotExists(bucketVectors)
		if err != nil {
			return err
		}

		for n, c := range chunks {
			seq, err := entries.NextSequence()
			if err != nil {
				return err
			}
			key := seqKey(seq)
			data, err := json.Marshal(entry{ChunkID: c.ID, Text: c.Content, Metadata: c.Metadata})
			if err != nil {
				return err
			}
			if err := entries.Put(key, data); err != nil {
				return err
			}
			if err := vecs.Put(key, encodeVector(vectors[n])); err != nil {
				return err
			}
		}

		if err := meta.Put(keyDimensions, seqKey(uint64(dims))); err != nil {
			return err
		}
		if err := meta.Put(keyModel, []byte(i.embedder.ModelName())); err != nil {
			return err
		}
		count := uint64(0)
		if v := meta.Get(keyCount); v != nil {
			count = binary.BigEndian.Uint64(v)
		}
		if err := meta.Put(keyCount, seqKey(count+uint64(len(chunks)))); err != nil {
			return err
		}
		return meta.Put(keyUpdatedAt, []byte(time.Now().UTC().Format(time.RFC3339Nano)))
	})
	closeErr := db.Close()

	if err != nil {
		if created {
			_ = os.RemoveAll(i.path)
		}
		if errors.Is(err, domain.ErrIndexLoad) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: write snapshot: %w", domain.ErrIndexLoad, err)
	}
	if closeErr != nil {
		return 0, fmt.Errorf("close index: %w", closeErr)
	}

	logger.Debug("indexed %d chunks into %s", len(chunks), i.path)
	return len(chunks), nil
}

func (i *Index) checkCompatible(meta *bbolt.Bucket, dims int) error {
	if stored := meta.Get(keyDimensions); stored != nil {
		if have := int(binary.BigEndian.Uint64(stored)); have != dims {
			return fmt.Errorf("%w: %w: index has %d dimensions, embeddings have %d (clear the index after changing embedding models)",
				domain.ErrIndexLoad, domain.ErrIndexDimension, have, dims)
		}
	}
	if stored := meta.Get(keyModel); stored != nil && i.embedder.ModelName() != "" {
		if have := string(stored); have != i.embedder.ModelName() {
			return fmt.Errorf("%w: index was built with %q, embedding model is %q (clear the index after changing embedding models)",
				domain.ErrIndexLoad, have, i.embedder.ModelName())
		}
	}
	return nil
}

// Search embeds the query and returns the most similar chunks.
func (i *Index) Search(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.RetrievedChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if !i.Exists() {
		return nil, domain.ErrNoIndex
	}
	if i.embedder == nil {
		return nil, fmt.Errorf("%w: cannot search the index at %s", domain.ErrEmbeddingUnavailable, i.path)
	}
	opts = opts.Normalised()

	queryVec, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, embeddingError("embed query", err)
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	var results []domain.RetrievedChunk
	err = i.view(func(tx *bbolt.Tx) error {
		meta, entries, vecs := tx.Bucket(bucketMeta), tx.Bucket(bucketEntries), tx.Bucket(bucketVectors)
		if meta == nil || entries == nil || vecs == nil {
			return fmt.Errorf("%w: snapshot is incomplete", domain.ErrIndexLoad)
		}
		if stored := meta.Get(keyDimensions); stored != nil {
			if have := int(binary.BigEndian.Uint64(stored)); have != len(queryVec) {
				return fmt.Errorf("%w: %w: index has %d dimensions, query has %d",
					domain.ErrIndexLoad, domain.ErrIndexDimension, have, len(queryVec))
			}
		}

		pool, err := scoreAll(vecs, queryVec)
		if err != nil {
			return err
		}
		pool = topN(pool, opts.FetchK)

		candidates := make([]candidate, 0, len(pool))
		seen := make(map[string]struct{}, len(pool))
		for _, c := range pool {
			data := entries.Get(c.key)
			if data == nil {
				return fmt.Errorf("%w: vector without entry", domain.ErrIndexLoad)
			}
			var e entry
			if err := json.Unmarshal(data, &e); err != nil {
				return fmt.Errorf("%w: decode entry: %w", domain.ErrIndexLoad, err)
			}
			if _, dup := seen[e.Text]; dup {
				continue
			}
			seen[e.Text] = struct{}{}
			c.entry = e
			candidates = append(candidates, c)
		}

		if opts.Type == domain.SearchMMR {
			candidates = maximalMarginalRelevance(candidates, opts.K, opts.Lambda)
		} else if len(candidates) > opts.K {
			candidates = candidates[:opts.K]
		}

		results = make([]domain.RetrievedChunk, len(candidates))
		for n, c := range candidates {
			results[n] = domain.RetrievedChunk{
				ChunkID:  c.entry.ChunkID,
				Content:  c.entry.Text,
				Metadata: c.entry.Metadata,
				Score:    c.score,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("retrieved %d chunks (k=%d fetch_k=%d type=%s)", len(results), opts.K, opts.FetchK, opts.Type)
	return results, nil
}

// Stats describes the snapshot.
func (i *Index) Stats(_ context.Context) (*domain.IndexStats, error) {
	if !i.Exists() {
		return nil, domain.ErrNoIndex
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	stats := &domain.IndexStats{Path: i.path}
	err := i.view(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta == nil {
			return fmt.Errorf("%w: snapshot is incomplete", domain.ErrIndexLoad)
		}
		if v := meta.Get(keyDimensions); v != nil {
			stats.Dimensions = int(binary.BigEndian.Uint64(v))
		}
		if v := meta.Get(keyCount); v != nil {
			stats.Entries = int(binary.BigEndian.Uint64(v))
		}
		stats.Model = string(meta.Get(keyModel))
		if v := meta.Get(keyUpdatedAt); v != nil {
			stats.UpdatedAt, _ = time.Parse(time.RFC3339Nano, string(v))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Clear deletes the index directory. Clearing an absent index succeeds.
func (i *Index) Clear(_ context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := os.RemoveAll(i.path); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	logger.Debug("cleared index at %s", i.path)
	return nil
}

// view opens the snapshot read-only for one transaction.
func (i *Index) view(fn func(tx *bbolt.Tx) error) error {
	db, err := bbolt.Open(i.file(), 0o600, &bbolt.Options{ReadOnly: true, Timeout: lockTimeout})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ErrNoIndex
		}
		return fmt.Errorf("%w: open %s: %w", domain.ErrIndexLoad, i.file(), err)
	}
	defer db.Close()
	return db.View(fn)
}

func embeddingError(op string, err error) error {
	if errors.Is(err, domain.ErrEmbeddingService) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrEmbeddingService, err)
}

func seqKey(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// encodeVector stores a float32 vector as little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for n, f := range v {
		binary.LittleEndian.PutUint32(buf[n*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: corrupt vector of %d bytes", domain.ErrIndexLoad, len(b))
	}
	v := make([]float32, len(b)/4)
	for n := range v {
		v[n] = math.Float32frombits(binary.LittleEndian.Uint32(b[n*4:]))
	}
	return v, nil
}
