package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/courserag/internal/index"
	"github.com/mohammad-safakhou/courserag/models"
	"github.com/mohammad-safakhou/courserag/provider"
)

// OutlineTool returns a course's structure: title, link and lesson list.
type OutlineTool struct {
	index index.Index
}

func NewOutlineTool(idx index.Index) *OutlineTool {
	return &OutlineTool{index: idx}
}

func (t *OutlineTool) Definition() provider.ToolDefinition {
	return provider.ToolDefinition{
		Name:        "get_course_outline",
		Description: "Get the complete outline of a course including course title, course link, and all lessons with their numbers and titles. Use this tool when the user asks about what a course covers, its structure, lessons, or outline.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"course_title": map[string]interface{}{
					"type":        "string",
					"description": "The course title to look up (partial matches work, e.g. 'MCP', 'Introduction')",
				},
			},
			"required": []interface{}{"course_title"},
		},
	}
}

type outlineArgs struct {
	CourseTitle string `json:"course_title"`
}

func (t *OutlineTool) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	var in outlineArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return Result{}, fmt.Errorf("decode arguments: %w", err)
	}

	resolved, err := t.index.ResolveCourseName(ctx, in.CourseTitle)
	if errors.Is(err, models.ErrCourseNotFound) {
		return Result{Content: fmt.Sprintf("No course found matching '%s'", in.CourseTitle)}, nil
	}
	if err != nil {
		return Result{}, err
	}

	course, err := t.index.CourseOutline(ctx, resolved)
	if err != nil {
		return Result{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course Title: %s\n", course.Title)
	link := course.Link
	if link == "" {
		link = "No link available"
	}
	fmt.Fprintf(&b, "Course Link: %s\n", link)
	fmt.Fprintf(&b, "\nLessons (%d total):\n", len(course.Lessons))
	for _, lesson := range course.Lessons {
		fmt.Fprintf(&b, "  Lesson %d: %s\n", lesson.Number, lesson.Title)
	}

	return Result{
		Content: strings.TrimRight(b.String(), "\n"),
		Sources: []models.Source{{Text: course.Title, Link: course.Link}},
	}, nil
}
