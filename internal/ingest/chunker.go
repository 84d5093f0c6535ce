package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mohammad-safakhou/courserag/models"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 800
	// DefaultChunkOverlap is the number of characters shared between
	// consecutive chunks of the same lesson.
	DefaultChunkOverlap = 100
)

// Chunker splits lesson bodies into sentence-respecting windows with
// character overlap, so that context at a window boundary is not lost.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{size: size, overlap: overlap}
}

var sentenceRe = regexp.MustCompile(`[^.!?]*[.!?]+(?:\s+|$)|[^.!?]+$`)

// splitSentences breaks text into sentences on terminator punctuation.
// Trailing text without a terminator is kept as a final sentence.
func splitSentences(text string) []string {
	matches := sentenceRe.FindAllString(text, -1)
	var out []string
	for _, m := range matches {
		s := strings.TrimSpace(m)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ChunkText splits text into windows of at most the configured size whose
// boundaries fall on sentence terminators where possible. Consecutive
// windows share roughly the configured overlap, measured in whole
// sentences. A text that fits in one window yields exactly one chunk with
// no overlap applied.
func (c *Chunker) ChunkText(text string) []string {
	text = strings.TrimSpace(normalizeWhitespace(text))
	if text == "" {
		return nil
	}
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(sentences) {
		end := start
		size := 0
		for end < len(sentences) {
			add := len(sentences[end])
			if end > start {
				add++ // joining space
			}
			if size > 0 && size+add > c.size {
				break
			}
			size += add
			end++
		}
		if end == start {
			// A single sentence longer than the window still forms a chunk.
			end = start + 1
		}
		chunks = append(chunks, strings.Join(sentences[start:end], " "))
		if end >= len(sentences) {
			break
		}

		next := end
		if c.overlap > 0 {
			overlapChars := 0
			for next > start+1 {
				overlapChars += len(sentences[next-1]) + 1
				if overlapChars >= c.overlap {
					next--
					break
				}
				next--
			}
		}
		start = next
	}
	return chunks
}

// ChunkCourse produces the ordered chunk sequence for a parsed course.
// The first chunk of each lesson carries a "Course {title} Lesson {n}"
// context prefix so an isolated chunk retrieved later still identifies
// itself. Chunk indexes are monotonic across the whole course.
func (c *Chunker) ChunkCourse(course models.Course, lessons []LessonContent) []models.Chunk {
	var chunks []models.Chunk
	index := 0
	for _, lesson := range lessons {
		pieces := c.ChunkText(lesson.Body)
		for i, text := range pieces {
			if i == 0 {
				text = fmt.Sprintf("Course %s Lesson %d content: %s", course.Title, lesson.Number, text)
			}
			number := lesson.Number
			chunks = append(chunks, models.Chunk{
				Text:         text,
				CourseTitle:  course.Title,
				LessonNumber: &number,
				ChunkIndex:   index,
			})
			index++
		}
	}
	return chunks
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func normalizeWhitespace(text string) string {
	return whitespaceRe.ReplaceAllString(text, " ")
}
