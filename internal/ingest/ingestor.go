package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mohammad-safakhou/courserag/internal/index"
	"github.com/mohammad-safakhou/courserag/models"
)

// Ingestor coordinates parsing, chunking and indexing of course documents.
type Ingestor struct {
	index   index.Index
	chunker *Chunker
	logger  *log.Logger
}

// Result summarizes one ingestion run.
type Result struct {
	CoursesAdded   int
	CoursesSkipped int
	ChunksAdded    int
	Failures       int
}

func NewIngestor(idx index.Index, chunker *Chunker, logger *log.Logger) *Ingestor {
	if logger == nil {
		logger = log.New(log.Writer(), "[INGEST] ", log.LstdFlags)
	}
	return &Ingestor{index: idx, chunker: chunker, logger: logger}
}

// IngestDocument parses, chunks and indexes a single course document.
func (in *Ingestor) IngestDocument(ctx context.Context, path, raw string) (models.Course, int, error) {
	course, lessons, err := ParseDocument(path, raw)
	if err != nil {
		return models.Course{}, 0, err
	}
	chunks := in.chunker.ChunkCourse(course, lessons)
	if err := in.index.UpsertCourse(ctx, course); err != nil {
		return models.Course{}, 0, err
	}
	if err := in.index.UpsertChunks(ctx, chunks); err != nil {
		return models.Course{}, 0, err
	}
	return course, len(chunks), nil
}

// IngestFolder ingests every readable document in dir. Courses whose title
// already exists in the catalog are skipped, so re-running against the same
// folder is idempotent. Parse failures skip the document and are counted;
// index failures abort the run.
func (in *Ingestor) IngestFolder(ctx context.Context, dir string, clearExisting bool) (Result, error) {
	var res Result

	if clearExisting {
		in.logger.Printf("clearing existing index for rebuild")
		if err := in.index.Clear(ctx); err != nil {
			return res, err
		}
	}

	existing, err := in.index.CourseTitles(ctx)
	if err != nil {
		return res, err
	}
	known := make(map[string]bool, len(existing))
	for _, t := range existing {
		known[t] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return res, fmt.Errorf("read docs dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isCourseDocument(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			in.logger.Printf("skipping %s: %v", name, err)
			res.Failures++
			continue
		}

		course, lessons, err := ParseDocument(path, string(raw))
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			in.logger.Printf("skipping %s: %v", name, err)
			res.Failures++
			continue
		}
		if err != nil {
			return res, err
		}
		if known[course.Title] {
			res.CoursesSkipped++
			continue
		}

		chunks := in.chunker.ChunkCourse(course, lessons)
		if err := in.index.UpsertCourse(ctx, course); err != nil {
			return res, err
		}
		if err := in.index.UpsertChunks(ctx, chunks); err != nil {
			return res, err
		}
		known[course.Title] = true
		res.CoursesAdded++
		res.ChunksAdded += len(chunks)
		in.logger.Printf("added course %q (%d chunks)", course.Title, len(chunks))
	}

	if res.Failures > 0 {
		in.logger.Printf("ingestion finished with %d failed documents", res.Failures)
	}
	return res, nil
}

func isCourseDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return true
	}
	return false
}
