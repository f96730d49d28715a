package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Thomaz-Klifson/car-search/internal/catalog"
	"github.com/Thomaz-Klifson/car-search/internal/llm"
	"github.com/Thomaz-Klifson/car-search/internal/observability"
	"github.com/Thomaz-Klifson/car-search/internal/search"
)

// ErrEmptyConversation is returned when a turn carries no messages.
var ErrEmptyConversation = errors.New("conversation has no messages")

// State is a step of the turn loop.
type State string

const (
	StateAwaitingModel    State = "AWAITING_MODEL"
	StateDispatchingTools State = "DISPATCHING_TOOLS"
	StateDone             State = "DONE"
)

// Fallback produces results for an utterance the model answered without tools.
type Fallback interface {
	Run(ctx context.Context, utterance string) *search.Outcome
}

// Publisher sends turn events to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// DriverConfig configures a Driver.
type DriverConfig struct {
	// MaxIterations caps tool dispatch rounds per turn
	MaxIterations int
	// TurnTimeout bounds the whole turn, model round-trips included
	TurnTimeout time.Duration
	// SystemPrompt overrides the default instruction when set
	SystemPrompt string
	// EventsChannel is the channel turn events are published to
	EventsChannel string
}

// DefaultDriverConfig returns the default driver configuration.
func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		MaxIterations: 5,
		TurnTimeout:   30 * time.Second,
		SystemPrompt:  SystemPrompt,
		EventsChannel: "car-search:turns",
	}
}

// Deps are the collaborators of a Driver. Presenter and Publisher are optional.
type Deps struct {
	Provider  llm.Provider
	Tools     *Registry
	Fallback  Fallback
	Presenter catalog.Presenter
	Publisher Publisher
	Logger    *observability.Logger
}

// TurnResult is everything a turn produced, ready to stream.
type TurnResult struct {
	TurnID string
	// ToolResults are the presented tool and fallback results in request order
	ToolResults []interface{}
	// Text is the humanized final reply
	Text       string
	Iterations int
	ToolCalls  []string
	Fallback   *search.Outcome
	Duration   time.Duration
}

// TurnEvent is the summary published after each turn.
type TurnEvent struct {
	TurnID        string    `json:"turnId"`
	Iterations    int       `json:"iterations"`
	Tools         []string  `json:"tools"`
	FallbackStage string    `json:"fallbackStage,omitempty"`
	ResultCount   int       `json:"resultCount"`
	DurationMs    int64     `json:"durationMs"`
	Timestamp     time.Time `json:"timestamp"`
}

// Driver runs conversation turns against the model.
type Driver struct {
	provider  llm.Provider
	tools     *Registry
	fallback  Fallback
	presenter catalog.Presenter
	publisher Publisher
	logger    *observability.Logger
	config    DriverConfig
}

// NewDriver creates a turn driver.
func NewDriver(deps Deps, config DriverConfig) (*Driver, error) {
	if deps.Provider == nil {
		return nil, errors.New("chat driver requires a provider")
	}
	if deps.Tools == nil {
		return nil, errors.New("chat driver requires a tool registry")
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = 5
	}
	if config.TurnTimeout <= 0 {
		config.TurnTimeout = 30 * time.Second
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = SystemPrompt
	}
	if deps.Logger == nil {
		deps.Logger = observability.Nop()
	}

	return &Driver{
		provider:  deps.Provider,
		tools:     deps.Tools,
		fallback:  deps.Fallback,
		presenter: deps.Presenter,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		config:    config,
	}, nil
}

// Run handles one turn. The last message is the user's utterance and the
// ones before it are history. Only provider failures are returned as errors.
func (d *Driver) Run(ctx context.Context, conversation []llm.Message) (*TurnResult, error) {
	if len(conversation) == 0 {
		return nil, ErrEmptyConversation
	}

	start := time.Now()
	turnID := observability.TurnIDFromContext(ctx)
	if turnID == "" {
		turnID = uuid.NewString()
		ctx = observability.ContextWithTurnID(ctx, turnID)
	}
	log := d.logger.WithTurn(turnID)

	ctx, cancel := context.WithTimeout(ctx, d.config.TurnTimeout)
	defer cancel()

	utterance := conversation[len(conversation)-1].Content
	messages := make([]llm.Message, 0, len(conversation)+2*d.config.MaxIterations)
	for _, m := range conversation[:len(conversation)-1] {
		messages = append(messages, llm.Message{Role: historyRole(m.Role), Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: utterance})

	result := &TurnResult{TurnID: turnID}
	specs := d.tools.Specs()

	var (
		reply   *llm.Reply
		results []interface{}
	)

	state := StateAwaitingModel
	for state != StateDone {
		switch state {
		case StateAwaitingModel:
			var err error
			reply, err = d.provider.Complete(ctx, &llm.Request{
				System:   d.config.SystemPrompt,
				Messages: messages,
				Tools:    specs,
			})
			if err != nil {
				log.Error().Err(err).Int("iteration", result.Iterations).Msg("Model request failed")
				return nil, fmt.Errorf("model request: %w", err)
			}

			if len(reply.ToolCalls) > 0 && result.Iterations < d.config.MaxIterations {
				state = StateDispatchingTools
			} else {
				state = StateDone
			}

		case StateDispatchingTools:
			result.Iterations++
			calls := withCallIDs(reply.ToolCalls)
			outputs := d.tools.DispatchAll(ctx, calls)

			messages = append(messages, llm.Message{
				Role:      llm.RoleAssistant,
				Content:   reply.Content,
				ToolCalls: calls,
			})
			for i, call := range calls {
				messages = append(messages, llm.Message{
					Role:       llm.RoleTool,
					ToolCallID: call.ID,
					Name:       call.Name,
					Content:    encodeResult(outputs[i]),
				})
				result.ToolCalls = append(result.ToolCalls, call.Name)
			}
			results = append(results, outputs...)

			log.Debug().
				Int("iteration", result.Iterations).
				Int("calls", len(calls)).
				Msg("Dispatched tool calls")

			state = StateAwaitingModel
		}
	}

	if len(results) == 0 && d.fallback != nil {
		outcome := d.fallback.Run(ctx, utterance)
		result.Fallback = outcome
		if outcome != nil && outcome.Found {
			results = append(results, outcome.Result)
		}
	}

	result.ToolResults = make([]interface{}, len(results))
	for i, r := range results {
		result.ToolResults[i] = d.presenter.Present(r)
	}
	result.Text = Humanize(reply.Content)
	result.Duration = time.Since(start)

	log.Info().
		Int("iterations", result.Iterations).
		Strs("tools", result.ToolCalls).
		Int("results", len(result.ToolResults)).
		Dur("duration", result.Duration).
		Msg("Turn completed")

	d.publish(ctx, result)

	return result, nil
}

func (d *Driver) publish(ctx context.Context, result *TurnResult) {
	if d.publisher == nil || d.config.EventsChannel == "" {
		return
	}

	event := TurnEvent{
		TurnID:      result.TurnID,
		Iterations:  result.Iterations,
		Tools:       result.ToolCalls,
		ResultCount: len(result.ToolResults),
		DurationMs:  result.Duration.Milliseconds(),
		Timestamp:   time.Now().UTC(),
	}
	if result.Fallback != nil {
		event.FallbackStage = string(result.Fallback.Stage)
	}

	if err := d.publisher.Publish(ctx, d.config.EventsChannel, event); err != nil {
		d.logger.WithTurn(result.TurnID).Warn().Err(err).Msg("Failed to publish turn event")
	}
}

// historyRole maps client roles onto provider roles: anything that is not
// the user is the assistant.
func historyRole(role string) string {
	if role == llm.RoleUser {
		return llm.RoleUser
	}
	return llm.RoleAssistant
}

// withCallIDs assigns ids to calls the provider left unnamed so tool replies
// can reference them.
func withCallIDs(calls []llm.ToolCall) []llm.ToolCall {
	out := make([]llm.ToolCall, len(calls))
	for i, c := range calls {
		if c.ID == "" {
			c.ID = "call_" + uuid.NewString()
		}
		out[i] = c
	}
	return out
}

func encodeResult(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `{"error":"unserializable result"}`
	}
	return string(data)
}
