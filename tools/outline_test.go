package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/courserag/models"
)

func TestOutlineToolFormatsCourse(t *testing.T) {
	idx := &fakeIndex{courses: map[string]models.Course{"Intro to Testing": testCourse()}}
	tool := NewOutlineTool(idx)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"course_title":"testing"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{
		"Course Title: Intro to Testing",
		"Course Link: https://example.com/course",
		"Lessons (2 total):",
		"Lesson 1: Getting Started",
		"Lesson 2: Assertions",
	} {
		if !strings.Contains(res.Content, want) {
			t.Errorf("content missing %q:\n%s", want, res.Content)
		}
	}
	if len(res.Sources) != 1 {
		t.Fatalf("got %d sources", len(res.Sources))
	}
	if res.Sources[0].Text != "Intro to Testing" || res.Sources[0].Link != "https://example.com/course" {
		t.Errorf("source = %+v", res.Sources[0])
	}
}

func TestOutlineToolUnknownCourse(t *testing.T) {
	idx := &fakeIndex{courses: map[string]models.Course{}}
	tool := NewOutlineTool(idx)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"course_title":"Quantum Chemistry"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Content != "No course found matching 'Quantum Chemistry'" {
		t.Errorf("content = %q", res.Content)
	}
}

func TestOutlineToolNoLink(t *testing.T) {
	course := testCourse()
	course.Link = ""
	idx := &fakeIndex{courses: map[string]models.Course{"Intro to Testing": course}}
	tool := NewOutlineTool(idx)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"course_title":"testing"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(res.Content, "Course Link: No link available") {
		t.Errorf("content = %q", res.Content)
	}
}
