package session

import (
	"testing"

	"github.com/mohammad-safakhou/courserag/config"
	"github.com/mohammad-safakhou/courserag/models"
)

func TestFormatHistory(t *testing.T) {
	if got := FormatHistory(nil); got != "" {
		t.Errorf("empty history formatted as %q", got)
	}

	got := FormatHistory([]models.Exchange{
		{Question: "What is RAG?", Answer: "Retrieval-augmented generation."},
		{Question: "And chunking?", Answer: "Splitting documents into pieces."},
	})
	want := "User: What is RAG?\nAssistant: Retrieval-augmented generation.\nUser: And chunking?\nAssistant: Splitting documents into pieces."
	if got != want {
		t.Errorf("formatted history:\n%q\nwant:\n%q", got, want)
	}
}

func TestValidateBackend(t *testing.T) {
	for _, backend := range []string{"", "inmemory", "redis"} {
		if err := Validate(config.SessionConfig{Backend: backend}); err != nil {
			t.Errorf("Validate(%q) = %v", backend, err)
		}
	}
	if err := Validate(config.SessionConfig{Backend: "dynamo"}); err == nil {
		t.Error("unsupported backend accepted")
	}
}
