package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/courserag/models"
)

// Handler serves the course RAG API endpoints.
type Handler struct {
	deps Deps
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type queryResponse struct {
	Answer    string          `json:"answer"`
	Sources   []models.Source `json:"sources"`
	SessionID string          `json:"session_id"`
}

// Query answers a question, creating a session when none is given.
func (h *Handler) Query(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = h.deps.Sessions.CreateSession()
	}

	answer, sources, err := h.deps.Query.Query(c.Request().Context(), sessionID, req.Query)
	if err != nil {
		return err
	}
	if sources == nil {
		sources = []models.Source{}
	}
	return c.JSON(http.StatusOK, queryResponse{Answer: answer, Sources: sources, SessionID: sessionID})
}

type coursesResponse struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// Courses returns catalog analytics for the UI.
func (h *Handler) Courses(c echo.Context) error {
	titles, err := h.deps.Index.CourseTitles(c.Request().Context())
	if err != nil {
		return err
	}
	if titles == nil {
		titles = []string{}
	}
	return c.JSON(http.StatusOK, coursesResponse{TotalCourses: len(titles), CourseTitles: titles})
}

// ClearSession drops the conversation history of a session.
func (h *Handler) ClearSession(c echo.Context) error {
	id := c.Param("id")
	if err := h.deps.Sessions.ClearSession(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
