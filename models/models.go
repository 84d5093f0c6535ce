package models

import "errors"

// ErrCourseNotFound is returned when no course in the catalog clears the
// resolution confidence floor. It is a normal negative result, not a failure.
var ErrCourseNotFound = errors.New("course not found")

// ErrIndexUnavailable is returned when the backing index cannot be reached.
var ErrIndexUnavailable = errors.New("index unavailable")

// Lesson is one lesson within a course.
type Lesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}

// Course holds the full metadata of an ingested course document.
// Identity key is Title; courses are immutable after ingestion.
type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"course_link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// LessonLink returns the link of the given lesson, or "" when unknown.
func (c Course) LessonLink(number int) string {
	for _, l := range c.Lessons {
		if l.Number == number {
			return l.Link
		}
	}
	return ""
}

// Chunk is a bounded text segment tagged with course/lesson provenance,
// the unit of semantic search. LessonNumber is nil for chunks not tied
// to a specific lesson.
type Chunk struct {
	Text         string `json:"text"`
	CourseTitle  string `json:"course_title"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
	ChunkIndex   int    `json:"chunk_index"`
}

// SearchFilter scopes a content search. CourseName is free text resolved
// via fuzzy matching; LessonNumber is matched exactly when set.
type SearchFilter struct {
	CourseName   string
	LessonNumber *int
}

// SearchHit is one chunk with its retrieval score.
type SearchHit struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Source attributes an answer back to the course/lesson it was grounded in.
type Source struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// Exchange is one question/answer pair retained in session history.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
