// Package agent implements the tool-calling loop that turns inbound
// messages into replies, and the dispatcher that binds it to the channel
// adapters.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"supportagent/config"
	"supportagent/model"
	"supportagent/storage"
	"supportagent/tools"
)

const defaultSystemPrompt = `You are a helpful support agent for server infrastructure.
Use the available tools to inspect servers and answer questions.
Be concise and professional. Never invent command output.`

// Replies for turn-fatal conditions. The process stays up; only this turn
// ends here.
const (
	providerFailureReply = "Sorry, I'm having trouble reaching the language model right now. Please try again in a moment."
	loopExceededReply    = "Sorry, I couldn't complete that request: it needed more steps than I'm allowed to take. Try breaking it into smaller questions."
)

// Agent runs the per-turn state machine: send history to the LLM, execute
// requested tools, feed results back, repeat until a final answer or the
// round ceiling.
type Agent struct {
	provider       model.Provider
	registry       *tools.Registry
	store          *storage.ConversationStore
	transcripts    *storage.TranscriptStore // optional
	systemPrompt   string
	maxToolRounds  int
	sessionTimeout time.Duration
	llmTimeout     time.Duration

	mu    sync.Mutex
	turns map[string]*sync.Mutex // serializes turns per identity
}

// Options configures an Agent.
type Options struct {
	Provider       model.Provider
	Registry       *tools.Registry
	Store          *storage.ConversationStore
	Transcripts    *storage.TranscriptStore // nil disables archiving
	SystemPrompt   string                   // empty uses the default
	KnowledgeBase  string                   // appended to the system prompt
	MaxToolRounds  int
	SessionTimeout time.Duration
	LLMTimeout     time.Duration // bounds each model call; zero means no bound
}

func New(opts Options) *Agent {
	systemPrompt := opts.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	if opts.KnowledgeBase != "" {
		systemPrompt = systemPrompt + "\n\n# Knowledge Base\n\n" + opts.KnowledgeBase
	}

	maxRounds := opts.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = 5
	}

	return &Agent{
		provider:       opts.Provider,
		registry:       opts.Registry,
		store:          opts.Store,
		transcripts:    opts.Transcripts,
		systemPrompt:   systemPrompt,
		maxToolRounds:  maxRounds,
		sessionTimeout: opts.SessionTimeout,
		llmTimeout:     opts.LLMTimeout,
	}
}

// turnLock returns the mutex serializing turns for one identity.
func (a *Agent) turnLock(identity model.Identity) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.turns == nil {
		a.turns = make(map[string]*sync.Mutex)
	}
	key := identity.Key()
	lock, ok := a.turns[key]
	if !ok {
		lock = &sync.Mutex{}
		a.turns[key] = lock
	}
	return lock
}

// HandleInbound processes one inbound message for an identity and returns
// the reply text. This is the only surface the transports call. Turns for
// the same identity run strictly one at a time; different identities run
// concurrently.
func (a *Agent) HandleInbound(ctx context.Context, identity model.Identity, text string) string {
	lock := a.turnLock(identity)
	lock.Lock()
	defer lock.Unlock()

	if a.store.ResetIfExpired(identity, a.sessionTimeout) {
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[agent] session expired for %s, history cleared", identity)
		}
	}

	a.append(identity, model.NewUserMessage(text))

	for round := 0; round < a.maxToolRounds; round++ {
		finalText, toolCalls, err := a.callProvider(ctx, identity)
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[agent] provider error for %s: %v", identity, err)
			}
			return providerFailureReply
		}

		if len(toolCalls) == 0 {
			reply := strings.TrimSpace(finalText)
			if reply == "" {
				reply = "I don't have a response for that."
			}
			a.append(identity, model.NewAssistantMessage(reply))
			return reply
		}

		a.executeToolRound(ctx, identity, toolCalls)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[agent] tool round ceiling (%d) reached for %s", a.maxToolRounds, identity)
	}
	a.append(identity, model.NewAssistantMessage(loopExceededReply))
	return loopExceededReply
}

// callProvider sends the system prompt, history and tool catalogue to the
// LLM and accumulates the streamed response into either a final text or a
// list of tool calls.
func (a *Agent) callProvider(ctx context.Context, identity model.Identity) (string, []model.ToolCall, error) {
	if a.llmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.llmTimeout)
		defer cancel()
	}

	history := a.store.History(identity)
	messages := make([]model.Message, 0, len(history)+1)
	messages = append(messages, model.Message{Role: "system", Content: a.systemPrompt})
	messages = append(messages, history...)

	var textBuilder strings.Builder
	var toolCalls []model.ToolCall

	callback := func(chunk string, calls []model.ToolCall) error {
		textBuilder.WriteString(chunk)
		toolCalls = append(toolCalls, calls...)
		return nil
	}

	if err := a.provider.ChatWithTools(ctx, messages, a.registry.Catalogue(), callback); err != nil {
		return "", nil, err
	}

	return textBuilder.String(), toolCalls, nil
}

// executeToolRound runs all tool calls from one LLM response. Calls execute
// concurrently, but results are appended to history in the order the model
// requested them, and the round only finishes once every result is in.
func (a *Agent) executeToolRound(ctx context.Context, identity model.Identity, calls []model.ToolCall) {
	results := make([]model.ToolResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call model.ToolCall) {
			defer wg.Done()
			results[i] = a.invoke(ctx, call)
		}(i, call)
	}
	wg.Wait()

	for _, result := range results {
		a.append(identity, model.NewToolResultMessage(result))
	}
}

// invoke runs one tool call. Every failure mode the model can reason about
// comes back as an error-flagged result, not a Go error: unknown tools, bad
// arguments, missing servers and infrastructure failures are all data for
// the next LLM round.
func (a *Agent) invoke(ctx context.Context, call model.ToolCall) model.ToolResult {
	payload, err := a.registry.Invoke(ctx, call)
	if err != nil {
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[agent] tool %s failed: %v", call.Name, err)
		}
		return model.ToolResult{
			Name:    call.Name,
			Payload: describeToolError(err),
			IsError: true,
		}
	}

	return model.ToolResult{
		Name:    call.Name,
		Payload: payload,
	}
}

// describeToolError renders a tool failure for the model.
func describeToolError(err error) string {
	var execErr *tools.ExecutionError
	if errors.As(err, &execErr) {
		return fmt.Sprintf("execution failed: %v", execErr.Cause)
	}
	return err.Error()
}

// append adds a message to the conversation and archives it, best effort.
func (a *Agent) append(identity model.Identity, msg model.Message) {
	a.store.Append(identity, msg)

	if a.transcripts != nil {
		if err := a.transcripts.Record(identity, msg); err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[agent] transcript write failed: %v", err)
			}
		}
	}
}

// ClearConversation drops the history for one identity.
func (a *Agent) ClearConversation(identity model.Identity) {
	a.store.Clear(identity)
}
