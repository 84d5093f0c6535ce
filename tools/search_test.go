package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/courserag/models"
)

// fakeIndex serves canned catalog and search data for tool tests.
type fakeIndex struct {
	courses map[string]models.Course
	hits    []models.SearchHit

	lastQuery  string
	lastFilter models.SearchFilter
}

func (f *fakeIndex) UpsertCourse(ctx context.Context, course models.Course) error { return nil }
func (f *fakeIndex) UpsertChunks(ctx context.Context, chunks []models.Chunk) error {
	return nil
}

func (f *fakeIndex) ResolveCourseName(ctx context.Context, name string) (string, error) {
	for title := range f.courses {
		if strings.Contains(strings.ToLower(title), strings.ToLower(name)) {
			return title, nil
		}
	}
	return "", models.ErrCourseNotFound
}

func (f *fakeIndex) Search(ctx context.Context, query string, filter models.SearchFilter, topK int) ([]models.SearchHit, error) {
	f.lastQuery = query
	f.lastFilter = filter
	return f.hits, nil
}

func (f *fakeIndex) CourseOutline(ctx context.Context, title string) (models.Course, error) {
	c, ok := f.courses[title]
	if !ok {
		return models.Course{}, models.ErrCourseNotFound
	}
	return c, nil
}

func (f *fakeIndex) CourseTitles(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeIndex) Clear(ctx context.Context) error                   { return nil }

func lessonPtr(n int) *int { return &n }

func testCourse() models.Course {
	return models.Course{
		Title: "Intro to Testing",
		Link:  "https://example.com/course",
		Lessons: []models.Lesson{
			{Number: 1, Title: "Getting Started", Link: "https://example.com/lesson1"},
			{Number: 2, Title: "Assertions", Link: "https://example.com/lesson2"},
		},
	}
}

func TestSearchToolUnknownCourse(t *testing.T) {
	idx := &fakeIndex{courses: map[string]models.Course{"Intro to Testing": testCourse()}}
	tool := NewSearchTool(idx, 5)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"anything","course_name":"Quantum Chemistry"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Content != "No course found matching 'Quantum Chemistry'" {
		t.Errorf("content = %q", res.Content)
	}
	if len(res.Sources) != 0 {
		t.Errorf("sources = %v, want none", res.Sources)
	}
}

func TestSearchToolEmptyResults(t *testing.T) {
	idx := &fakeIndex{courses: map[string]models.Course{"Intro to Testing": testCourse()}}
	tool := NewSearchTool(idx, 5)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"nothing here","course_name":"Testing","lesson_number":2}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := "No relevant content found in course 'Testing' in lesson 2."
	if res.Content != want {
		t.Errorf("content = %q, want %q", res.Content, want)
	}
	if idx.lastFilter.CourseName != "Intro to Testing" {
		t.Errorf("filter course = %q, want resolved title", idx.lastFilter.CourseName)
	}
}

func TestSearchToolFormatsHitsAndSources(t *testing.T) {
	idx := &fakeIndex{
		courses: map[string]models.Course{"Intro to Testing": testCourse()},
		hits: []models.SearchHit{
			{Chunk: models.Chunk{Text: "Assertions check outcomes.", CourseTitle: "Intro to Testing", LessonNumber: lessonPtr(2), ChunkIndex: 3}, Score: 1},
			{Chunk: models.Chunk{Text: "Tests start with setup.", CourseTitle: "Intro to Testing", LessonNumber: lessonPtr(1), ChunkIndex: 0}, Score: 0.5},
		},
	}
	tool := NewSearchTool(idx, 5)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"assertions"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	blocks := strings.Split(res.Content, "\n\n")
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks: %q", len(blocks), res.Content)
	}
	if !strings.HasPrefix(blocks[0], "[Intro to Testing - Lesson 2]\n") {
		t.Errorf("first block = %q", blocks[0])
	}
	if len(res.Sources) != 2 {
		t.Fatalf("got %d sources", len(res.Sources))
	}
	if res.Sources[0].Text != "Intro to Testing - Lesson 2" || res.Sources[0].Link != "https://example.com/lesson2" {
		t.Errorf("first source = %+v", res.Sources[0])
	}
	if res.Sources[1].Link != "https://example.com/lesson1" {
		t.Errorf("second source link = %q", res.Sources[1].Link)
	}
}
