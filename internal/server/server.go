package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/courserag/internal/index"
	"github.com/mohammad-safakhou/courserag/models"
	"github.com/mohammad-safakhou/courserag/session"
)

// QueryService answers questions within a session.
type QueryService interface {
	Query(ctx context.Context, sessionID, question string) (string, []models.Source, error)
}

// Deps are the injected collaborators of the HTTP API.
type Deps struct {
	Query    QueryService
	Index    index.Index
	Sessions session.Store
	Logger   *log.Logger
}

// New builds the echo server with all routes registered.
func New(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := deps.Logger
	if baseLogger == nil {
		baseLogger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	// Unified HTTP error handler with structured JSON and logging. Internal
	// failures surface as a generic unable-to-answer condition; no partial
	// answers are ever returned.
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := "unable to answer the question"
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	h := &Handler{deps: deps}
	api := e.Group("/api")
	api.POST("/query", h.Query)
	api.GET("/courses", h.Courses)
	api.POST("/sessions/:id/clear", h.ClearSession)

	return e
}
