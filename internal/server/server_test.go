package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/courserag/models"
	"github.com/mohammad-safakhou/courserag/provider"
)

type fakeQuery struct {
	answer  string
	sources []models.Source
	err     error

	gotSessionID string
	gotQuestion  string
}

func (f *fakeQuery) Query(ctx context.Context, sessionID, question string) (string, []models.Source, error) {
	f.gotSessionID = sessionID
	f.gotQuestion = question
	return f.answer, f.sources, f.err
}

type fakeSessions struct {
	created string
	cleared string
}

func (f *fakeSessions) CreateSession() string { return f.created }
func (f *fakeSessions) GetHistory(ctx context.Context, sessionID string) ([]models.Exchange, error) {
	return nil, nil
}
func (f *fakeSessions) AppendExchange(ctx context.Context, sessionID, question, answer string) error {
	return nil
}
func (f *fakeSessions) ClearSession(ctx context.Context, sessionID string) error {
	f.cleared = sessionID
	return nil
}

type fakeCatalog struct {
	titles []string
}

func (f *fakeCatalog) UpsertCourse(ctx context.Context, course models.Course) error  { return nil }
func (f *fakeCatalog) UpsertChunks(ctx context.Context, chunks []models.Chunk) error { return nil }
func (f *fakeCatalog) ResolveCourseName(ctx context.Context, name string) (string, error) {
	return "", models.ErrCourseNotFound
}
func (f *fakeCatalog) Search(ctx context.Context, query string, filter models.SearchFilter, topK int) ([]models.SearchHit, error) {
	return nil, nil
}
func (f *fakeCatalog) CourseOutline(ctx context.Context, title string) (models.Course, error) {
	return models.Course{}, models.ErrCourseNotFound
}
func (f *fakeCatalog) CourseTitles(ctx context.Context) ([]string, error) { return f.titles, nil }
func (f *fakeCatalog) Clear(ctx context.Context) error                    { return nil }

func newTestServer(q *fakeQuery, sessions *fakeSessions, catalog *fakeCatalog) http.Handler {
	return New(Deps{
		Query:    q,
		Index:    catalog,
		Sessions: sessions,
		Logger:   log.New(io.Discard, "", 0),
	})
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestQueryEndpointCreatesSession(t *testing.T) {
	q := &fakeQuery{answer: "Paris.", sources: []models.Source{{Text: "Geo - Lesson 1", Link: "https://example.com/l1"}}}
	sessions := &fakeSessions{created: "session-123"}
	h := newTestServer(q, sessions, &fakeCatalog{})

	rec := postJSON(t, h, "/api/query", `{"query":"Capital of France?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Answer    string          `json:"answer"`
		Sources   []models.Source `json:"sources"`
		SessionID string          `json:"session_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "Paris." || resp.SessionID != "session-123" {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Link != "https://example.com/l1" {
		t.Errorf("sources = %+v", resp.Sources)
	}
	if q.gotSessionID != "session-123" || q.gotQuestion != "Capital of France?" {
		t.Errorf("pipeline called with session %q question %q", q.gotSessionID, q.gotQuestion)
	}
}

func TestQueryEndpointReusesGivenSession(t *testing.T) {
	q := &fakeQuery{answer: "ok"}
	h := newTestServer(q, &fakeSessions{created: "fresh"}, &fakeCatalog{})

	rec := postJSON(t, h, "/api/query", `{"query":"hi","session_id":"existing"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if q.gotSessionID != "existing" {
		t.Errorf("session = %q, want existing", q.gotSessionID)
	}
}

func TestQueryEndpointRejectsEmptyQuery(t *testing.T) {
	h := newTestServer(&fakeQuery{}, &fakeSessions{}, &fakeCatalog{})
	rec := postJSON(t, h, "/api/query", `{"query":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQueryEndpointHidesInternalErrors(t *testing.T) {
	q := &fakeQuery{err: &provider.CompletionError{StatusCode: 500, Message: "secret upstream detail"}}
	h := newTestServer(q, &fakeSessions{created: "s"}, &fakeCatalog{})

	rec := postJSON(t, h, "/api/query", `{"query":"boom"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != "unable to answer the question" {
		t.Errorf("error message = %q", resp["error"])
	}
	if strings.Contains(rec.Body.String(), "secret upstream detail") {
		t.Error("internal error detail leaked to the client")
	}
}

func TestCoursesEndpoint(t *testing.T) {
	h := newTestServer(&fakeQuery{}, &fakeSessions{}, &fakeCatalog{titles: []string{"Intro to Testing", "Stats"}})

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		TotalCourses int      `json:"total_courses"`
		CourseTitles []string `json:"course_titles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalCourses != 2 || len(resp.CourseTitles) != 2 {
		t.Errorf("response = %+v", resp)
	}
}

func TestClearSessionEndpoint(t *testing.T) {
	sessions := &fakeSessions{}
	h := newTestServer(&fakeQuery{}, sessions, &fakeCatalog{})

	rec := postJSON(t, h, "/api/sessions/abc/clear", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if sessions.cleared != "abc" {
		t.Errorf("cleared session = %q", sessions.cleared)
	}
}

func TestHealthz(t *testing.T) {
	h := newTestServer(&fakeQuery{}, &fakeSessions{}, &fakeCatalog{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
