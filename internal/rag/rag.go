package rag

import (
	"context"
	"log"
	"time"

	"github.com/mohammad-safakhou/courserag/internal/telemetry"
	"github.com/mohammad-safakhou/courserag/models"
	"github.com/mohammad-safakhou/courserag/session"
)

// Pipeline is the caller-facing query operation: history fetch, the
// tool-calling loop, source consumption and history append.
type Pipeline struct {
	generator *Generator
	sessions  session.Store
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

func NewPipeline(generator *Generator, sessions session.Store, tele *telemetry.Telemetry, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = telemetry.NewLogger("QUERY")
	}
	return &Pipeline{generator: generator, sessions: sessions, telemetry: tele, logger: logger}
}

// Sessions exposes the session store for transport-level session management.
func (p *Pipeline) Sessions() session.Store { return p.sessions }

// Query answers a question within a session. On failure the error
// propagates and the session history is left untouched; only successful
// question/answer pairs are persisted.
func (p *Pipeline) Query(ctx context.Context, sessionID, question string) (string, []models.Source, error) {
	start := time.Now()

	exchanges, err := p.sessions.GetHistory(ctx, sessionID)
	if err != nil {
		p.telemetry.RecordQuery(false, time.Since(start), 0, 0)
		return "", nil, err
	}
	history := session.FormatHistory(exchanges)

	answer, sources, usage, err := p.generator.Generate(ctx, question, history)
	if err != nil {
		p.telemetry.RecordQuery(false, time.Since(start), usage.InputTokens, usage.OutputTokens)
		p.logger.Printf("query failed for session %s: %v", sessionID, err)
		return "", nil, err
	}

	if err := p.sessions.AppendExchange(ctx, sessionID, question, answer); err != nil {
		// The answer is already produced; a history write failure should
		// not fail the query. Log and move on.
		p.logger.Printf("append history for session %s: %v", sessionID, err)
	}

	p.telemetry.RecordQuery(true, time.Since(start), usage.InputTokens, usage.OutputTokens)
	return answer, sources, nil
}
