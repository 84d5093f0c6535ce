package index

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mohammad-safakhou/courserag/models"
)

// snapshot is the on-disk representation of the index. The layout is owned
// by this package; callers only rely on save-then-reload round-tripping.
type snapshot struct {
	Catalog      map[string]models.Course
	TitleVectors map[string][]float32
	Chunks       map[string]chunkEntry
}

// SaveSnapshot persists both collections to the configured snapshot path so
// a restarted process re-serves the corpus without re-embedding. No-op when
// no path is configured.
func (h *Hybrid) SaveSnapshot() error {
	if h.snapshotPath == "" {
		return nil
	}
	h.mu.RLock()
	snap := snapshot{
		Catalog:      h.catalog,
		TitleVectors: h.titleVectors,
		Chunks:       h.chunks,
	}
	h.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(h.snapshotPath), 0o755); err != nil {
		return fmt.Errorf("snapshot dir: %w", err)
	}
	tmp := h.snapshotPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("snapshot create: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("snapshot encode: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("snapshot close: %w", err)
	}
	return os.Rename(tmp, h.snapshotPath)
}

// loadSnapshot restores collections from disk and rebuilds the BM25 index.
// A missing snapshot file is not an error; the index starts empty.
func (h *Hybrid) loadSnapshot() error {
	f, err := os.Open(h.snapshotPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("snapshot open: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("snapshot decode: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.catalog = snap.Catalog
	h.titleVectors = snap.TitleVectors
	h.chunks = snap.Chunks
	if h.catalog == nil {
		h.catalog = make(map[string]models.Course)
	}
	if h.titleVectors == nil {
		h.titleVectors = make(map[string][]float32)
	}
	if h.chunks == nil {
		h.chunks = make(map[string]chunkEntry)
	}
	for id, entry := range h.chunks {
		if err := h.bleve.Index(id, map[string]interface{}{"text": entry.Chunk.Text}); err != nil {
			return fmt.Errorf("%w: reindex snapshot: %v", models.ErrIndexUnavailable, err)
		}
	}
	h.logger.Printf("loaded snapshot: %d courses, %d chunks", len(h.catalog), len(h.chunks))
	return nil
}
