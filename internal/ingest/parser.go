package ingest

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mohammad-safakhou/courserag/models"
)

// ParseError reports a malformed course document. The offending document is
// skipped; ingestion of the remaining documents continues.
type ParseError struct {
	Path   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse course document: %s", e.Reason)
	}
	return fmt.Sprintf("parse %s: %s", e.Path, e.Reason)
}

// LessonContent is a lesson's body text before chunking.
type LessonContent struct {
	Number int
	Title  string
	Link   string
	Body   string
}

var lessonHeaderRe = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.+)$`)

// ParseDocument parses a raw course document of the form:
//
//	Course Title: <title>
//	Course Link: <url>
//	Course Instructor: <name>
//
//	Lesson 0: Introduction
//	Lesson Link: <url>
//	<body...>
//
//	Lesson 1: ...
//
// Header metadata becomes the Course record; lesson bodies are returned for
// chunking. A document without a course title fails with *ParseError.
func ParseDocument(path, raw string) (models.Course, []LessonContent, error) {
	course := models.Course{}
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var lessons []LessonContent
	var current *LessonContent
	var body []string
	inHeader := true

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		lessons = append(lessons, *current)
		current = nil
		body = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if inHeader {
			switch {
			case strings.HasPrefix(trimmed, "Course Title:"):
				course.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Title:"))
				continue
			case strings.HasPrefix(trimmed, "Course Link:"):
				course.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Link:"))
				continue
			case strings.HasPrefix(trimmed, "Course Instructor:"):
				course.Instructor = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Instructor:"))
				continue
			case trimmed == "":
				continue
			}
		}

		if m := lessonHeaderRe.FindStringSubmatch(trimmed); m != nil {
			inHeader = false
			flush()
			number, err := strconv.Atoi(m[1])
			if err != nil {
				return models.Course{}, nil, &ParseError{Path: path, Reason: fmt.Sprintf("invalid lesson number %q", m[1])}
			}
			current = &LessonContent{Number: number, Title: strings.TrimSpace(m[2])}
			continue
		}

		if current != nil && strings.HasPrefix(trimmed, "Lesson Link:") && len(body) == 0 {
			current.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Lesson Link:"))
			continue
		}

		if current != nil {
			body = append(body, line)
		}
		// Text before the first lesson header is not lesson content; dropped.
	}
	flush()

	if err := scanner.Err(); err != nil {
		return models.Course{}, nil, &ParseError{Path: path, Reason: err.Error()}
	}
	if course.Title == "" {
		return models.Course{}, nil, &ParseError{Path: path, Reason: "missing course title"}
	}

	for _, l := range lessons {
		course.Lessons = append(course.Lessons, models.Lesson{Number: l.Number, Title: l.Title, Link: l.Link})
	}
	return course, lessons, nil
}
