package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thomaz-Klifson/car-search/internal/catalog"
	"github.com/Thomaz-Klifson/car-search/internal/llm"
	"github.com/Thomaz-Klifson/car-search/internal/observability"
	"github.com/Thomaz-Klifson/car-search/internal/search"
)

// scriptedProvider replays canned replies and records every request.
type scriptedProvider struct {
	replies  []*llm.Reply
	err      error
	requests []*llm.Request
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, req *llm.Request) (*llm.Reply, error) {
	snapshot := *req
	snapshot.Messages = append([]llm.Message(nil), req.Messages...)
	p.requests = append(p.requests, &snapshot)

	if p.err != nil {
		return nil, p.err
	}
	if len(p.replies) == 0 {
		return &llm.Reply{Content: "fim"}, nil
	}
	r := p.replies[0]
	if len(p.replies) > 1 {
		p.replies = p.replies[1:]
	}
	return r, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	events   []interface{}
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.events = append(p.events, message)
	return p.err
}

func newDriver(t *testing.T, provider llm.Provider, pub Publisher) *Driver {
	t.Helper()
	c := fixture()
	exec := search.NewCatalogExecutor(c)

	d, err := NewDriver(Deps{
		Provider:  provider,
		Tools:     NewRegistry(exec, nil),
		Fallback:  search.NewOrchestrator(exec, c, nil),
		Publisher: pub,
	}, DefaultDriverConfig())
	require.NoError(t, err)
	return d
}

func userTurn(content string) []llm.Message {
	return []llm.Message{{Role: llm.RoleUser, Content: content}}
}

func TestDriver_ToolCallThenText(t *testing.T) {
	provider := &scriptedProvider{replies: []*llm.Reply{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: ToolSearchCars, Arguments: `{"name":"BYD Dolphin"}`}}},
		{Content: "Sinto muito pela demora! O BYD Dolphin custa R$ 120.000,00."},
	}}
	d := newDriver(t, provider, nil)

	result, err := d.Run(context.Background(), userTurn("Quero um BYD Dolphin"))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, []string{ToolSearchCars}, result.ToolCalls)
	assert.Nil(t, result.Fallback)
	assert.Equal(t, "Vamos encontrar algo incrível! pela demora! O BYD Dolphin custa R$ 120.000,00.", result.Text)
	assert.NotEmpty(t, result.TurnID)

	require.Len(t, result.ToolResults, 1)
	view, ok := result.ToolResults[0].(catalog.SearchView)
	require.True(t, ok)
	require.Len(t, view.Cars, 1)
	assert.Equal(t, "https://img.example/dolphin.jpg", *view.Cars[0].Image)
	assert.Equal(t, "R$ 120.000,00", view.Cars[0].FormattedPrice)

	// The second request carries the assistant tool call and the tool reply.
	require.Len(t, provider.requests, 2)
	second := provider.requests[1].Messages
	require.Len(t, second, 3)
	assert.Equal(t, llm.RoleAssistant, second[1].Role)
	assert.Equal(t, "c1", second[1].ToolCalls[0].ID)
	assert.Equal(t, llm.RoleTool, second[2].Role)
	assert.Equal(t, "c1", second[2].ToolCallID)

	var toolReply map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(second[2].Content), &toolReply))
	assert.Equal(t, true, toolReply["found"])
}

func TestDriver_SendsSystemPromptAndTools(t *testing.T) {
	provider := &scriptedProvider{replies: []*llm.Reply{{Content: "Olá"}}}
	d := newDriver(t, provider, nil)

	_, err := d.Run(context.Background(), userTurn("Oi"))
	require.NoError(t, err)

	require.Len(t, provider.requests, 1)
	assert.Equal(t, SystemPrompt, provider.requests[0].System)
	assert.Len(t, provider.requests[0].Tools, 2)
}

func TestDriver_HistoryMapping(t *testing.T) {
	provider := &scriptedProvider{replies: []*llm.Reply{{Content: "ok"}}}
	d := newDriver(t, provider, nil)

	_, err := d.Run(context.Background(), []llm.Message{
		{Role: "user", Content: "Oi"},
		{Role: "assistant", Content: "Olá! Como posso ajudar?"},
		{Role: "model", Content: "Posso ajudar?"},
		{Role: "user", Content: "Quero um carro"},
	})
	require.NoError(t, err)

	msgs := provider.requests[0].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, []string{llm.RoleUser, llm.RoleAssistant, llm.RoleAssistant, llm.RoleUser},
		[]string{msgs[0].Role, msgs[1].Role, msgs[2].Role, msgs[3].Role})
	assert.Equal(t, "Quero um carro", msgs[3].Content)
}

func TestDriver_IterationCap(t *testing.T) {
	provider := &scriptedProvider{replies: []*llm.Reply{
		{Content: "buscando", ToolCalls: []llm.ToolCall{{Name: ToolSearchCars, Arguments: `{}`}}},
	}}
	d := newDriver(t, provider, nil)

	result, err := d.Run(context.Background(), userTurn("Carros"))
	require.NoError(t, err)

	assert.Equal(t, 5, result.Iterations)
	assert.Len(t, provider.requests, 6)
	assert.Len(t, result.ToolResults, 5)
	assert.Equal(t, "buscando", result.Text)
	assert.Nil(t, result.Fallback)
}

func TestDriver_AssignsMissingCallIDs(t *testing.T) {
	provider := &scriptedProvider{replies: []*llm.Reply{
		{ToolCalls: []llm.ToolCall{{Name: ToolGetSimilarCars, Arguments: map[string]interface{}{"referenceCar": "Fiat"}}}},
		{Content: "ok"},
	}}
	d := newDriver(t, provider, nil)

	_, err := d.Run(context.Background(), userTurn("Fiat"))
	require.NoError(t, err)

	msgs := provider.requests[1].Messages
	id := msgs[1].ToolCalls[0].ID
	assert.NotEmpty(t, id)
	assert.Equal(t, id, msgs[2].ToolCallID)
}

func TestDriver_UnknownToolReportedToModel(t *testing.T) {
	provider := &scriptedProvider{replies: []*llm.Reply{
		{ToolCalls: []llm.ToolCall{{ID: "x", Name: "bookTestDrive"}}},
		{Content: "Não consigo agendar."},
	}}
	d := newDriver(t, provider, nil)

	result, err := d.Run(context.Background(), userTurn("Agende um test drive"))
	require.NoError(t, err)

	assert.Equal(t, `{"error":"Unknown function"}`, provider.requests[1].Messages[2].Content)
	require.Len(t, result.ToolResults, 1)
	assert.Equal(t, ToolError{Error: "Unknown function"}, result.ToolResults[0])
	assert.Nil(t, result.Fallback)
}

func TestDriver_FallbackWhenNoToolCalls(t *testing.T) {
	provider := &scriptedProvider{replies: []*llm.Reply{{Content: "Temos ótimas opções!"}}}
	d := newDriver(t, provider, nil)

	result, err := d.Run(context.Background(), userTurn("Procuro um Fiat Pulse em São Paulo por até R$ 110.000"))
	require.NoError(t, err)

	require.NotNil(t, result.Fallback)
	assert.Equal(t, search.StageExact, result.Fallback.Stage)
	require.Len(t, result.ToolResults, 1)

	view, ok := result.ToolResults[0].(catalog.SearchView)
	require.True(t, ok)
	require.Len(t, view.Cars, 1)
	assert.Equal(t, "Pulse", view.Cars[0].Model)
	assert.Nil(t, view.Cars[0].Image)
	assert.Equal(t, "Temos ótimas opções!", result.Text)
}

func TestDriver_FallbackFindsNothing(t *testing.T) {
	provider := &scriptedProvider{replies: []*llm.Reply{{Content: "Hmm"}}}
	d := newDriver(t, provider, nil)

	result, err := d.Run(context.Background(), userTurn("Quero uma Ferrari até R$ 10.000"))
	require.NoError(t, err)

	require.NotNil(t, result.Fallback)
	assert.Equal(t, search.StageExpand, result.Fallback.Stage)
	assert.Empty(t, result.ToolResults)
	assert.NotNil(t, result.ToolResults)
}

func TestDriver_ProviderError(t *testing.T) {
	boom := errors.New("connection refused")
	d := newDriver(t, &scriptedProvider{err: boom}, nil)

	_, err := d.Run(context.Background(), userTurn("Oi"))
	assert.ErrorIs(t, err, boom)
}

func TestDriver_EmptyConversation(t *testing.T) {
	d := newDriver(t, &scriptedProvider{}, nil)

	_, err := d.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyConversation)
}

func TestDriver_UsesTurnIDFromContext(t *testing.T) {
	d := newDriver(t, &scriptedProvider{}, nil)

	ctx := observability.ContextWithTurnID(context.Background(), "turn-42")
	result, err := d.Run(ctx, userTurn("Oi"))
	require.NoError(t, err)
	assert.Equal(t, "turn-42", result.TurnID)
}

func TestDriver_PublishesTurnEvent(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis down")}
	provider := &scriptedProvider{replies: []*llm.Reply{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: ToolSearchCars, Arguments: `{"name":"Onix"}`}}},
		{Content: "ok"},
	}}
	d := newDriver(t, provider, pub)

	result, err := d.Run(context.Background(), userTurn("Onix"))
	require.NoError(t, err, "publish failures do not fail the turn")

	require.Len(t, pub.events, 1)
	assert.Equal(t, "car-search:turns", pub.channels[0])

	event, ok := pub.events[0].(TurnEvent)
	require.True(t, ok)
	assert.Equal(t, result.TurnID, event.TurnID)
	assert.Equal(t, 1, event.Iterations)
	assert.Equal(t, []string{ToolSearchCars}, event.Tools)
	assert.Equal(t, 1, event.ResultCount)
	assert.Empty(t, event.FallbackStage)
}

func TestDriver_TurnTimeout(t *testing.T) {
	provider := &blockingProvider{}
	c := fixture()
	exec := search.NewCatalogExecutor(c)

	cfg := DefaultDriverConfig()
	cfg.TurnTimeout = 20 * time.Millisecond
	d, err := NewDriver(Deps{Provider: provider, Tools: NewRegistry(exec, nil)}, cfg)
	require.NoError(t, err)

	_, err = d.Run(context.Background(), userTurn("Oi"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type blockingProvider struct{}

func (blockingProvider) Name() string { return "blocking" }

func (blockingProvider) Complete(ctx context.Context, _ *llm.Request) (*llm.Reply, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestNewDriver_RequiresDeps(t *testing.T) {
	_, err := NewDriver(Deps{}, DefaultDriverConfig())
	assert.Error(t, err)

	_, err = NewDriver(Deps{Provider: &scriptedProvider{}}, DefaultDriverConfig())
	assert.Error(t, err)
}
