package ingest

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/mohammad-safakhou/courserag/models"
)

// memIndex is a minimal in-memory Index for ingestion tests.
type memIndex struct {
	courses map[string]models.Course
	chunks  []models.Chunk
}

func newMemIndex() *memIndex {
	return &memIndex{courses: make(map[string]models.Course)}
}

func (m *memIndex) UpsertCourse(ctx context.Context, course models.Course) error {
	m.courses[course.Title] = course
	return nil
}

func (m *memIndex) UpsertChunks(ctx context.Context, chunks []models.Chunk) error {
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *memIndex) ResolveCourseName(ctx context.Context, name string) (string, error) {
	return "", models.ErrCourseNotFound
}

func (m *memIndex) Search(ctx context.Context, query string, filter models.SearchFilter, topK int) ([]models.SearchHit, error) {
	return nil, nil
}

func (m *memIndex) CourseOutline(ctx context.Context, title string) (models.Course, error) {
	c, ok := m.courses[title]
	if !ok {
		return models.Course{}, models.ErrCourseNotFound
	}
	return c, nil
}

func (m *memIndex) CourseTitles(ctx context.Context) ([]string, error) {
	var titles []string
	for t := range m.courses {
		titles = append(titles, t)
	}
	return titles, nil
}

func (m *memIndex) Clear(ctx context.Context) error {
	m.courses = make(map[string]models.Course)
	m.chunks = nil
	return nil
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestIngestDocument(t *testing.T) {
	idx := newMemIndex()
	in := NewIngestor(idx, NewChunker(800, 100), quietLogger())

	course, chunks, err := in.IngestDocument(context.Background(), "sample.txt", sampleDoc)
	if err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}
	if course.Title != "Intro to Testing" {
		t.Errorf("title = %q", course.Title)
	}
	if chunks != len(idx.chunks) || chunks == 0 {
		t.Errorf("reported %d chunks, index holds %d", chunks, len(idx.chunks))
	}
	if _, ok := idx.courses["Intro to Testing"]; !ok {
		t.Error("course record not indexed")
	}
}

func TestIngestDocumentMalformed(t *testing.T) {
	idx := newMemIndex()
	in := NewIngestor(idx, NewChunker(800, 100), quietLogger())

	_, _, err := in.IngestDocument(context.Background(), "broken.txt", "no header here\n")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if len(idx.courses) != 0 || len(idx.chunks) != 0 {
		t.Error("malformed document left index writes behind")
	}
}

func TestIngestFolderSkipsMalformedAndCountsFailures(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "good.txt", sampleDoc)
	writeDoc(t, dir, "broken.txt", "no header at all\njust text\n")

	idx := newMemIndex()
	in := NewIngestor(idx, NewChunker(800, 100), quietLogger())

	res, err := in.IngestFolder(context.Background(), dir, false)
	if err != nil {
		t.Fatalf("IngestFolder: %v", err)
	}
	if res.CoursesAdded != 1 {
		t.Errorf("courses added = %d, want 1", res.CoursesAdded)
	}
	if res.Failures != 1 {
		t.Errorf("failures = %d, want 1", res.Failures)
	}
	if len(idx.chunks) == 0 {
		t.Error("no chunks indexed for the valid document")
	}
}

func TestIngestFolderDedupesByTitle(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "course.txt", sampleDoc)

	idx := newMemIndex()
	in := NewIngestor(idx, NewChunker(800, 100), quietLogger())

	if _, err := in.IngestFolder(context.Background(), dir, false); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	firstChunks := len(idx.chunks)

	res, err := in.IngestFolder(context.Background(), dir, false)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if res.CoursesAdded != 0 || res.CoursesSkipped != 1 {
		t.Errorf("second run added=%d skipped=%d, want 0/1", res.CoursesAdded, res.CoursesSkipped)
	}
	if len(idx.chunks) != firstChunks {
		t.Errorf("chunks grew from %d to %d on re-ingest", firstChunks, len(idx.chunks))
	}
}

func TestIngestFolderClearExisting(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "course.txt", sampleDoc)

	idx := newMemIndex()
	in := NewIngestor(idx, NewChunker(800, 100), quietLogger())

	if _, err := in.IngestFolder(context.Background(), dir, false); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	res, err := in.IngestFolder(context.Background(), dir, true)
	if err != nil {
		t.Fatalf("rebuild ingest: %v", err)
	}
	if res.CoursesAdded != 1 {
		t.Errorf("rebuild added = %d, want 1 (index was cleared)", res.CoursesAdded)
	}
}
