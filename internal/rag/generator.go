package rag

import (
	"context"
	"log"

	"github.com/mohammad-safakhou/courserag/internal/telemetry"
	"github.com/mohammad-safakhou/courserag/models"
	"github.com/mohammad-safakhou/courserag/provider"
	"github.com/mohammad-safakhou/courserag/tools"
)

// systemPrompt instructs the model on tool usage. The loop enforces a
// single tool round regardless of what the model asks for.
const systemPrompt = `You are an AI assistant specialized in course materials and educational content with access to tools for course information.

Available Tools:
1. **search_course_content**: Search for specific course content or detailed educational materials
2. **get_course_outline**: Get course structure including title, link, and complete lesson list

Tool Usage Guidelines:
- **Course outline questions** (e.g., "What does X course cover?", "What are the lessons in X?"): Use the get_course_outline tool
- **Course content questions** (e.g., "How do I do X?", "Explain Y from course Z"): Use the search_course_content tool
- **One tool call per query maximum** - choose the single most relevant tool
- Synthesize tool results into accurate, fact-based responses
- If a tool yields no results, state this clearly without offering alternatives

Response Protocol:
- **General knowledge questions**: Answer using existing knowledge without using tools
- **Course-specific questions**: Use the appropriate tool first, then answer
- Provide direct answers only - no reasoning process, search explanations, or question-type analysis
- Do not mention "based on the search results" or "based on the tool results"

All responses must be:
1. **Brief, concise and focused** - Get to the point quickly
2. **Educational** - Maintain instructional value
3. **Clear** - Use accessible language
Provide only the direct answer to what was asked.`

// Usage aggregates token consumption over a full generation.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Generator drives at most one round of tool invocation between two
// completion calls. Capping at one round bounds latency and cost.
type Generator struct {
	completer provider.Completer
	registry  *tools.Registry
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

func NewGenerator(completer provider.Completer, registry *tools.Registry, tele *telemetry.Telemetry, logger *log.Logger) *Generator {
	if logger == nil {
		logger = telemetry.NewLogger("RAG")
	}
	return &Generator{completer: completer, registry: registry, telemetry: tele, logger: logger}
}

// Generate answers a question with optional conversation history. It
// returns the final answer text and the sources from the last tool call
// that produced any. A completion failure propagates as *CompletionError;
// tool execution errors are fed back to the model as error tool results,
// giving it a chance to recover in its final answer.
func (g *Generator) Generate(ctx context.Context, question, history string) (string, []models.Source, Usage, error) {
	system := systemPrompt
	if history != "" {
		system += "\n\nPrevious conversation:\n" + history
	}

	messages := []provider.Message{provider.UserMessage(question)}
	var usage Usage
	var sources []models.Source

	// Initial round: tool use enabled, the model decides whether to search.
	resp, err := g.completer.CreateCompletion(ctx, provider.CompletionRequest{
		System:   system,
		Messages: messages,
		Tools:    g.registry.Definitions(),
	})
	if err != nil {
		return "", nil, usage, err
	}
	usage.InputTokens += resp.InputTokens
	usage.OutputTokens += resp.OutputTokens

	calls := resp.ToolCalls()
	if resp.StopReason != provider.StopReasonToolUse || len(calls) == 0 {
		return resp.Text(), nil, usage, nil
	}

	// One tool round: execute the requested calls, then force a final
	// natural-language answer with tool use disabled.
	messages = append(messages, provider.Message{Role: provider.RoleAssistant, Content: resp.Content})

	var results []provider.ContentBlock
	for _, call := range calls {
		g.telemetry.RecordToolCall(call.Name)
		res, err := g.registry.Execute(ctx, call.Name, call.Input)
		if err != nil {
			g.logger.Printf("tool %s failed: %v", call.Name, err)
			results = append(results, provider.ToolResultBlock(call.ID, "Error: "+err.Error(), true))
			continue
		}
		results = append(results, provider.ToolResultBlock(call.ID, res.Content, false))
		if len(res.Sources) > 0 {
			// Last search wins: a later call's sources replace earlier ones.
			sources = res.Sources
		}
	}
	messages = append(messages, provider.Message{Role: provider.RoleUser, Content: results})

	final, err := g.completer.CreateCompletion(ctx, provider.CompletionRequest{
		System:       system,
		Messages:     messages,
		Tools:        g.registry.Definitions(),
		DisableTools: true,
	})
	if err != nil {
		return "", nil, usage, err
	}
	usage.InputTokens += final.InputTokens
	usage.OutputTokens += final.OutputTokens
	return final.Text(), sources, usage, nil
}
