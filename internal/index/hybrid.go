package index

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/mohammad-safakhou/courserag/models"
)

const rrfK = 60 // reciprocal-rank-fusion constant

// Hybrid is an in-process Index combining bleve BM25 over chunk text with
// cosine similarity over embedding vectors, fused by reciprocal rank
// fusion. Reads during ingestion may observe a partially populated index;
// ingestion is expected to finish before serving traffic.
type Hybrid struct {
	embedder        Embedder
	confidenceFloor float64
	snapshotPath    string
	logger          *log.Logger

	mu           sync.RWMutex
	bleve        bleve.Index
	catalog      map[string]models.Course  // title -> course
	titleVectors map[string][]float32      // title -> embedding
	chunks       map[string]chunkEntry     // chunk id -> entry
	similarity   func(a, b []float32) float64
}

type chunkEntry struct {
	Chunk  models.Chunk
	Vector []float32
}

// Options configures a Hybrid index.
type Options struct {
	// ConfidenceFloor is the minimum similarity a catalog title must clear
	// during course-name resolution.
	ConfidenceFloor float64
	// SnapshotPath, when set, is the file the index persists itself to so
	// a restarted process re-serves the same corpus.
	SnapshotPath string
	Logger       *log.Logger
}

// NewHybrid builds a Hybrid index. When opts.SnapshotPath names an existing
// snapshot, its contents are loaded and re-indexed.
func NewHybrid(embedder Embedder, opts Options) (*Hybrid, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[INDEX] ", log.LstdFlags)
	}
	h := &Hybrid{
		embedder:        embedder,
		confidenceFloor: opts.ConfidenceFloor,
		snapshotPath:    opts.SnapshotPath,
		logger:          logger,
		bleve:           idx,
		catalog:         make(map[string]models.Course),
		titleVectors:    make(map[string][]float32),
		chunks:          make(map[string]chunkEntry),
		similarity:      cosine,
	}
	if opts.SnapshotPath != "" {
		if err := h.loadSnapshot(); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func chunkID(c models.Chunk) string {
	return fmt.Sprintf("%s#%d", c.CourseTitle, c.ChunkIndex)
}

// UpsertCourse writes the catalog record and its title embedding.
func (h *Hybrid) UpsertCourse(ctx context.Context, course models.Course) error {
	vecs, err := h.embedder.CreateEmbedding(ctx, []string{catalogText(course)})
	if err != nil {
		return fmt.Errorf("%w: embed catalog record: %v", models.ErrIndexUnavailable, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.catalog[course.Title] = course
	if len(vecs) == 1 {
		h.titleVectors[course.Title] = vecs[0]
	}
	return nil
}

// catalogText is the text embedded for fuzzy title resolution. Instructor
// and lesson titles help queries like "the MCP course by X" resolve.
func catalogText(course models.Course) string {
	parts := []string{course.Title}
	if course.Instructor != "" {
		parts = append(parts, course.Instructor)
	}
	for _, l := range course.Lessons {
		parts = append(parts, l.Title)
	}
	return strings.Join(parts, " ")
}

// UpsertChunks embeds and indexes chunks in one batch.
func (h *Hybrid) UpsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := h.embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: embed chunks: %v", models.ErrIndexUnavailable, err)
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("%w: embedder returned %d vectors for %d chunks", models.ErrIndexUnavailable, len(vecs), len(chunks))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, c := range chunks {
		id := chunkID(c)
		h.chunks[id] = chunkEntry{Chunk: c, Vector: vecs[i]}
		if err := h.bleve.Index(id, map[string]interface{}{"text": c.Text}); err != nil {
			return fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
		}
	}
	return nil
}

// ResolveCourseName returns the best catalog title for free text. A direct
// substring match wins outright; otherwise embedding similarity decides.
func (h *Hybrid) ResolveCourseName(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", models.ErrCourseNotFound
	}

	h.mu.RLock()
	for title := range h.catalog {
		if strings.EqualFold(title, name) || strings.Contains(strings.ToLower(title), strings.ToLower(name)) {
			h.mu.RUnlock()
			return title, nil
		}
	}
	h.mu.RUnlock()

	vecs, err := h.embedder.CreateEmbedding(ctx, []string{name})
	if err != nil {
		return "", fmt.Errorf("%w: embed course name: %v", models.ErrIndexUnavailable, err)
	}
	if len(vecs) != 1 {
		return "", fmt.Errorf("%w: embedder returned %d vectors for 1 input", models.ErrIndexUnavailable, len(vecs))
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	best := ""
	bestScore := -1.0
	for title, vec := range h.titleVectors {
		score := h.similarity(vecs[0], vec)
		if score > bestScore || (score == bestScore && title < best) {
			best = title
			bestScore = score
		}
	}
	if best == "" || bestScore < h.confidenceFloor {
		return "", models.ErrCourseNotFound
	}
	return best, nil
}

// Search performs hybrid retrieval restricted to the filter.
func (h *Hybrid) Search(ctx context.Context, query string, filter models.SearchFilter, topK int) ([]models.SearchHit, error) {
	if topK <= 0 {
		topK = 5
	}
	qvecs, err := h.embedder.CreateEmbedding(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", models.ErrIndexUnavailable, err)
	}
	if len(qvecs) != 1 {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for 1 input", models.ErrIndexUnavailable, len(qvecs))
	}

	bmHits, err := h.bm25Search(query, filter, topK)
	if err != nil {
		return nil, err
	}
	vecHits := h.vectorSearch(qvecs[0], filter, topK)
	return h.fuseRRF(bmHits, vecHits, topK), nil
}

type rankedHit struct {
	id    string
	chunk models.Chunk
	score float64
	rank  int
}

func (h *Hybrid) matchesFilter(c models.Chunk, filter models.SearchFilter) bool {
	if filter.CourseName != "" && c.CourseTitle != filter.CourseName {
		return false
	}
	if filter.LessonNumber != nil {
		if c.LessonNumber == nil || *c.LessonNumber != *filter.LessonNumber {
			return false
		}
	}
	return true
}

func (h *Hybrid) bm25Search(query string, filter models.SearchFilter, k int) ([]rankedHit, error) {
	mq := bleve.NewMatchQuery(query)
	mq.SetField("text")
	// Over-fetch, then filter; bleve has no metadata filtering of its own.
	req := bleve.NewSearchRequestOptions(mq, k*10, 0, false)

	h.mu.RLock()
	defer h.mu.RUnlock()
	res, err := h.bleve.Search(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
	}
	var out []rankedHit
	for _, hit := range res.Hits {
		entry, ok := h.chunks[hit.ID]
		if !ok || !h.matchesFilter(entry.Chunk, filter) {
			continue
		}
		out = append(out, rankedHit{id: hit.ID, chunk: entry.Chunk, score: hit.Score, rank: len(out) + 1})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func (h *Hybrid) vectorSearch(qvec []float32, filter models.SearchFilter, k int) []rankedHit {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var scored []rankedHit
	for id, entry := range h.chunks {
		if !h.matchesFilter(entry.Chunk, filter) {
			continue
		}
		scored = append(scored, rankedHit{id: id, chunk: entry.Chunk, score: h.similarity(qvec, entry.Vector)})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].chunk.ChunkIndex < scored[j].chunk.ChunkIndex
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	for i := range scored {
		scored[i].rank = i + 1
	}
	return scored
}

func (h *Hybrid) fuseRRF(a, b []rankedHit, k int) []models.SearchHit {
	type agg struct {
		chunk models.Chunk
		score float64
	}
	m := map[string]*agg{}
	add := func(list []rankedHit) {
		for _, hit := range list {
			x, ok := m[hit.id]
			if !ok {
				x = &agg{chunk: hit.chunk}
				m[hit.id] = x
			}
			x.score += 1.0 / float64(rrfK+hit.rank)
		}
	}
	add(a)
	add(b)

	fused := make([]models.SearchHit, 0, len(m))
	for _, v := range m {
		fused = append(fused, models.SearchHit{Chunk: v.chunk, Score: v.score})
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].Chunk.ChunkIndex < fused[j].Chunk.ChunkIndex
	})
	if len(fused) > k {
		fused = fused[:k]
	}
	return fused
}

// CourseOutline returns the catalog record for an exact title.
func (h *Hybrid) CourseOutline(ctx context.Context, title string) (models.Course, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	course, ok := h.catalog[title]
	if !ok {
		return models.Course{}, models.ErrCourseNotFound
	}
	return course, nil
}

// CourseTitles lists all catalog titles in sorted order.
func (h *Hybrid) CourseTitles(ctx context.Context) ([]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	titles := make([]string, 0, len(h.catalog))
	for title := range h.catalog {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles, nil
}

// Clear drops both collections for a full rebuild.
func (h *Hybrid) Clear(ctx context.Context) error {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = h.bleve.Close()
	h.bleve = idx
	h.catalog = make(map[string]models.Course)
	h.titleVectors = make(map[string][]float32)
	h.chunks = make(map[string]chunkEntry)
	return nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
