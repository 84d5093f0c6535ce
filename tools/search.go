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

// SearchTool searches course content with fuzzy course name matching and
// optional lesson filtering.
type SearchTool struct {
	index      index.Index
	maxResults int
}

func NewSearchTool(idx index.Index, maxResults int) *SearchTool {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &SearchTool{index: idx, maxResults: maxResults}
}

func (t *SearchTool) Definition() provider.ToolDefinition {
	return provider.ToolDefinition{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "What to search for in the course content",
				},
				"course_name": map[string]interface{}{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": map[string]interface{}{
					"type":        "integer",
					"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			"required": []interface{}{"query"},
		},
	}
}

type searchArgs struct {
	Query        string `json:"query"`
	CourseName   string `json:"course_name"`
	LessonNumber *int   `json:"lesson_number"`
}

// Execute resolves the optional course filter and performs a scoped search.
// A course name with no catalog match and an empty result set are normal
// outcomes answered with explanatory text, not errors.
func (t *SearchTool) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	var in searchArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return Result{}, fmt.Errorf("decode arguments: %w", err)
	}

	filter := models.SearchFilter{LessonNumber: in.LessonNumber}
	if in.CourseName != "" {
		resolved, err := t.index.ResolveCourseName(ctx, in.CourseName)
		if errors.Is(err, models.ErrCourseNotFound) {
			return Result{Content: fmt.Sprintf("No course found matching '%s'", in.CourseName)}, nil
		}
		if err != nil {
			return Result{}, err
		}
		filter.CourseName = resolved
	}

	hits, err := t.index.Search(ctx, in.Query, filter, t.maxResults)
	if err != nil {
		return Result{}, err
	}
	if len(hits) == 0 {
		return Result{Content: emptyMessage(in.CourseName, in.LessonNumber)}, nil
	}
	return t.formatResults(ctx, hits), nil
}

func emptyMessage(courseName string, lessonNumber *int) string {
	msg := "No relevant content found"
	if courseName != "" {
		msg += fmt.Sprintf(" in course '%s'", courseName)
	}
	if lessonNumber != nil {
		msg += fmt.Sprintf(" in lesson %d", *lessonNumber)
	}
	return msg + "."
}

// formatResults renders hits as labeled blocks and records the source
// tuples backing them.
func (t *SearchTool) formatResults(ctx context.Context, hits []models.SearchHit) Result {
	var blocks []string
	var sources []models.Source
	for _, hit := range hits {
		c := hit.Chunk
		header := "[" + c.CourseTitle
		sourceText := c.CourseTitle
		if c.LessonNumber != nil {
			header += fmt.Sprintf(" - Lesson %d", *c.LessonNumber)
			sourceText += fmt.Sprintf(" - Lesson %d", *c.LessonNumber)
		}
		header += "]"
		blocks = append(blocks, header+"\n"+c.Text)

		link := ""
		if c.LessonNumber != nil {
			if course, err := t.index.CourseOutline(ctx, c.CourseTitle); err == nil {
				link = course.LessonLink(*c.LessonNumber)
			}
		}
		sources = append(sources, models.Source{Text: sourceText, Link: link})
	}
	return Result{Content: strings.Join(blocks, "\n\n"), Sources: sources}
}
