package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/rolo/internal/adapter/llm"
	"github.com/xiaot623/rolo/internal/config"
	"github.com/xiaot623/rolo/internal/dispatch"
	"github.com/xiaot623/rolo/internal/domain"
	"github.com/xiaot623/rolo/internal/tools"
	"github.com/xiaot623/rolo/policy"
	"github.com/xiaot623/rolo/tests/helpers"
)

type harness struct {
	svc     *Service
	fx      *helpers.Fixture
	mock    *llm.MockClient
	session string
	events  []domain.TurnEvent
}

func newHarness(t *testing.T, cfg *config.Config, script ...llm.MockReply) *harness {
	t.Helper()
	ctx := context.Background()
	fx := helpers.NewFixture(t)

	registry := tools.NewRegistry(nil, nil)
	require.NoError(t, tools.RegisterBuiltins(registry, fx.Store, fx.Backups))
	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy, policy.Settings{ConfirmDestructive: true})
	require.NoError(t, err)
	d, err := dispatch.New(registry, fx.Backups, engine, dispatch.Options{Retention: 10}, nil)
	require.NoError(t, err)

	if cfg == nil {
		cfg = config.Default()
	}
	cfg.LLMModel = "mock-llama"
	mock := llm.NewMockClient(script...)
	h := &harness{svc: New(fx.Store, d, mock, fx.Backups, cfg, nil), fx: fx, mock: mock}

	resp, err := h.svc.CreateSession(ctx, domain.CreateSessionRequest{})
	require.NoError(t, err)
	h.session = resp.SessionID
	return h
}

func (h *harness) send(content string) (*domain.TurnResponse, error) {
	return h.svc.SendMessage(context.Background(), h.session, content, func(e domain.TurnEvent) {
		h.events = append(h.events, e)
	})
}

func (h *harness) eventTypes() []domain.EventType {
	out := make([]domain.EventType, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Type)
	}
	return out
}

func TestSendMessagePlainAnswer(t *testing.T) {
	h := newHarness(t, nil, llm.MockReply{Content: "You have no contacts yet."})

	resp, err := h.send("who do I know?")
	require.NoError(t, err)
	assert.Equal(t, "You have no contacts yet.", resp.Content)
	assert.Equal(t, 0, resp.Iterations)
	assert.Nil(t, resp.Error)

	reqs := h.mock.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Messages, 2)
	assert.Equal(t, "system", reqs[0].Messages[0].Role)
	assert.Equal(t, "user", reqs[0].Messages[1].Role)
	assert.Equal(t, "mock-llama", reqs[0].Model)
	assert.NotEmpty(t, reqs[0].Tools)

	sess, err := h.svc.session(context.Background(), h.session)
	require.NoError(t, err)
	assert.Equal(t, domain.TurnStateAwaitingInput, sess.State())

	msgs, err := h.svc.ListMessages(context.Background(), h.session, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Message.Role)

	assert.Equal(t, []domain.EventType{
		domain.EventTypeLLMCallStarted,
		domain.EventTypeLLMCallDone,
		domain.EventTypeTurnDone,
	}, h.eventTypes())
}

func TestSendMessageRunsToolCallsInOrder(t *testing.T) {
	h := newHarness(t, nil,
		llm.MockReply{ToolCalls: []llm.ToolCall{
			llm.MockToolCall("call_1", "add_tag_to_contact", map[string]interface{}{"contact_id": 1, "tag_name": "friend"}),
			llm.MockToolCall("call_2", "get_contact", map[string]interface{}{"contact_id": 1}),
		}},
		llm.MockReply{Content: "Tagged Ada as a friend."},
	)
	helpers.SeedContacts(t, h.fx.Store, [2]string{"Ada", "Lovelace"})

	resp, err := h.send("tag Ada as friend")
	require.NoError(t, err)
	assert.Equal(t, "Tagged Ada as a friend.", resp.Content)
	assert.Equal(t, 1, resp.Iterations)

	require.Len(t, resp.ToolCalls, 2)
	first, second := resp.ToolCalls[0], resp.ToolCalls[1]
	assert.Equal(t, "add_tag_to_contact", first.Request.Name)
	assert.True(t, first.Result.Success, first.Result.Message)
	require.NotNil(t, first.Result.BackupID)
	assert.Equal(t, int64(1), *first.Result.BackupID)
	assert.Equal(t, "get_contact", second.Request.Name)
	assert.True(t, second.Result.Success)
	assert.Nil(t, second.Result.BackupID)

	reqs := h.mock.Requests()
	require.Len(t, reqs, 2)
	followUp := reqs[1].Messages
	require.Len(t, followUp, 5)
	assert.Equal(t, "assistant", followUp[2].Role)
	require.Len(t, followUp[2].ToolCalls, 2)
	assert.Equal(t, "tool", followUp[3].Role)
	assert.Equal(t, "call_1", followUp[3].ToolCallID)
	assert.Contains(t, followUp[3].Content, `"backup_id":1`)
	assert.Equal(t, "call_2", followUp[4].ToolCallID)

	records, err := h.svc.ListToolCalls(context.Background(), h.session, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []domain.EventType{
		domain.EventTypeLLMCallStarted,
		domain.EventTypeLLMCallDone,
		domain.EventTypeToolCallCreated,
		domain.EventTypeToolResult,
		domain.EventTypeToolCallCreated,
		domain.EventTypeToolResult,
		domain.EventTypeLLMCallStarted,
		domain.EventTypeLLMCallDone,
		domain.EventTypeTurnDone,
	}, h.eventTypes())
}

func TestSendMessageIterationCap(t *testing.T) {
	cfg := config.Default()
	cfg.MaxToolIterations = 2
	loop := llm.MockReply{ToolCalls: []llm.ToolCall{llm.MockToolCall("", "list_tags", nil)}}
	h := newHarness(t, cfg, loop, loop, loop)

	resp, err := h.send("loop forever")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIterationCap))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ITERATION_CAP", resp.Error.Code)
	assert.Len(t, resp.ToolCalls, 2)
	assert.Len(t, h.mock.Requests(), 3)
	assert.Equal(t, domain.EventTypeTurnFailed, h.events[len(h.events)-1].Type)

	for _, exec := range resp.ToolCalls {
		assert.NotEmpty(t, exec.Request.ID)
	}

	// The session accepts the next turn.
	resp, err = h.send("hello again")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Content)
}

func TestSendMessageInferenceFailureKeepsCommittedCalls(t *testing.T) {
	h := newHarness(t, nil,
		llm.MockReply{ToolCalls: []llm.ToolCall{
			llm.MockToolCall("call_1", "create_contact", map[string]interface{}{"first_name": "Grace", "last_name": "Hopper"}),
		}},
		llm.MockReply{Err: errors.New("connection refused")},
	)

	resp, err := h.send("add Grace Hopper")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInference))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INFERENCE_ERROR", resp.Error.Code)

	found, err := h.fx.Store.FindContactsByName(context.Background(), "Grace Hopper")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	backups, err := h.fx.Backups.ListBackups(context.Background())
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	sess, err := h.svc.session(context.Background(), h.session)
	require.NoError(t, err)
	assert.Equal(t, domain.TurnStateAwaitingInput, sess.State())
}

func TestSendMessageCancelledContext(t *testing.T) {
	h := newHarness(t, nil, llm.MockReply{Content: "never seen"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.svc.SendMessage(ctx, h.session, "hi", nil)
	assert.True(t, errors.Is(err, ErrInference))
}

func TestSendMessageMalformedArguments(t *testing.T) {
	bad := llm.ToolCall{ID: "call_1", Type: "function", Function: llm.ToolCallFunction{Name: "get_contact", Arguments: "{not json"}}
	h := newHarness(t, nil,
		llm.MockReply{ToolCalls: []llm.ToolCall{bad}},
		llm.MockReply{Content: "Sorry, let me try that differently."},
	)

	resp, err := h.send("show contact 1")
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.False(t, resp.ToolCalls[0].Result.Success)
	assert.Equal(t, domain.ErrorKindValidation, resp.ToolCalls[0].Result.Error)
}

func TestSendMessageDeleteWithoutConfirmation(t *testing.T) {
	h := newHarness(t, nil,
		llm.MockReply{ToolCalls: []llm.ToolCall{
			llm.MockToolCall("call_1", "delete_contact", map[string]interface{}{"contact_id": 1}),
		}},
		llm.MockReply{Content: "Are you sure you want to delete Ada?"},
	)
	helpers.SeedContacts(t, h.fx.Store, [2]string{"Ada", "Lovelace"})

	resp, err := h.send("delete Ada")
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, domain.ErrorKindConfirmationRequired, resp.ToolCalls[0].Result.Error)

	c, err := h.fx.Store.GetContact(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, c)

	backups, err := h.fx.Backups.ListBackups(context.Background())
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestSendMessageAmbiguousName(t *testing.T) {
	h := newHarness(t, nil,
		llm.MockReply{ToolCalls: []llm.ToolCall{
			llm.MockToolCall("call_1", "add_relationship_by_name", map[string]interface{}{
				"contact_name":      "John",
				"related_name":      "Ada Lovelace",
				"relationship_type": "friend",
			}),
		}},
		llm.MockReply{Content: "Which John do you mean?"},
	)
	helpers.SeedContacts(t, h.fx.Store,
		[2]string{"John", "Smith"}, [2]string{"John", "Doe"}, [2]string{"Ada", "Lovelace"})

	resp, err := h.send("John is friends with Ada")
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, domain.ErrorKindAmbiguousMatch, resp.ToolCalls[0].Result.Error)

	rels, err := h.fx.Store.ListRelationships(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestSendMessageValidation(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.svc.SendMessage(context.Background(), h.session, "   ", nil)
	assert.Error(t, err)

	_, err = h.svc.SendMessage(context.Background(), "sess_missing", "hi", nil)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestSessionRehydratesFromStore(t *testing.T) {
	h := newHarness(t, nil, llm.MockReply{Content: "Noted."})
	_, err := h.send("remember me")
	require.NoError(t, err)

	fresh := New(h.fx.Store, h.svc.executor, h.mock, h.fx.Backups, config.Default(), nil)
	sess, err := fresh.session(context.Background(), h.session)
	require.NoError(t, err)
	history := sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, "remember me", history[0].Content)
	assert.Equal(t, "Noted.", history[1].Content)
}

func TestInvokeToolIsAudited(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	res := h.svc.InvokeTool(ctx, h.session, "create_contact", map[string]interface{}{"first_name": "Alan"})
	require.True(t, res.Success, res.Message)
	require.NotNil(t, res.BackupID)

	res = h.svc.InvokeTool(ctx, h.session, "no_such_tool", nil)
	assert.Equal(t, domain.ErrorKindValidation, res.Error)

	records, err := h.svc.ListToolCalls(ctx, h.session, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	names := []string{records[0].ToolName, records[1].ToolName}
	assert.ElementsMatch(t, []string{"create_contact", "no_such_tool"}, names)
}

func TestManualBackups(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	b, err := h.svc.CreateBackup(ctx, "")
	require.NoError(t, err)
	assert.False(t, b.IsAuto)
	assert.Equal(t, "manual backup", b.Comment)

	list, err := h.svc.ListBackups(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}
