package index

import (
	"context"

	"github.com/mohammad-safakhou/courserag/models"
)

// Embedder produces embedding vectors for texts. Implemented by the
// provider package; tests supply deterministic fakes.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is the dual-collection store backing retrieval: a course catalog
// used only for fuzzy course-name resolution, and a content collection
// holding every chunk for semantic search.
type Index interface {
	// UpsertCourse writes the catalog record for a course, replacing any
	// record with the same title.
	UpsertCourse(ctx context.Context, course models.Course) error

	// UpsertChunks writes content chunks. Chunk identity is
	// (course title, chunk index); re-upserting is idempotent.
	UpsertChunks(ctx context.Context, chunks []models.Chunk) error

	// ResolveCourseName fuzzy-matches free text against catalog titles and
	// returns the single best title above the confidence floor, or
	// models.ErrCourseNotFound. A miss is a normal negative outcome.
	ResolveCourseName(ctx context.Context, name string) (string, error)

	// Search embeds the query, restricts candidates to the filter (course
	// title exact post-resolution, lesson number exact when set) and
	// returns up to topK hits by descending similarity, ties broken by
	// ascending chunk index. An empty result is not an error.
	Search(ctx context.Context, query string, filter models.SearchFilter, topK int) ([]models.SearchHit, error)

	// CourseOutline returns the catalog record for an exact title.
	CourseOutline(ctx context.Context, title string) (models.Course, error)

	// CourseTitles lists all catalog titles.
	CourseTitles(ctx context.Context) ([]string, error)

	// Clear drops both collections for a full rebuild.
	Clear(ctx context.Context) error
}
