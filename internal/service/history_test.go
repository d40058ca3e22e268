package service

import (
	"testing"

	"github.com/xiaot623/rolo/internal/domain"
)

func msg(role domain.Role, content string) domain.ConversationMessage {
	return domain.ConversationMessage{Role: role, Content: content}
}

func contents(history []domain.ConversationMessage) []string {
	out := make([]string, len(history))
	for i, m := range history {
		out[i] = m.Content
	}
	return out
}

func TestSessionKeepsSystemPromptWhenPruning(t *testing.T) {
	sess := NewSession("s1", "system prompt", 3)
	for _, c := range []string{"u1", "a1", "u2", "a2", "u3"} {
		role := domain.RoleUser
		if c[0] == 'a' {
			role = domain.RoleAssistant
		}
		sess.Append(msg(role, c))
	}

	msgs := sess.Messages()
	if len(msgs) != 4 {
		t.Fatalf("expected system prompt plus 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != domain.RoleSystem || msgs[0].Content != "system prompt" {
		t.Fatalf("system prompt not first: %+v", msgs[0])
	}
	got := contents(msgs[1:])
	want := []string{"u2", "a2", "u3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestPruneHistoryDropsOrphanedToolMessages(t *testing.T) {
	history := []domain.ConversationMessage{
		msg(domain.RoleUser, "u1"),
		{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCallRequest{{ID: "c1", Name: "list_tags"}, {ID: "c2", Name: "list_notes"}}},
		{Role: domain.RoleTool, Content: "t1", ToolCallID: "c1"},
		{Role: domain.RoleTool, Content: "t2", ToolCallID: "c2"},
		msg(domain.RoleAssistant, "a1"),
	}

	pruned := pruneHistory(history, 3)
	if len(pruned) != 1 || pruned[0].Content != "a1" {
		t.Fatalf("expected only the final answer to survive, got %v", contents(pruned))
	}

	pruned = pruneHistory(history, 4)
	if len(pruned) != 4 || pruned[0].Role != domain.RoleAssistant {
		t.Fatalf("expected history to start at the assistant request, got %v", contents(pruned))
	}
}

func TestPruneHistoryKeepsNewestToolGroup(t *testing.T) {
	history := []domain.ConversationMessage{
		msg(domain.RoleUser, "u1"),
		{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCallRequest{{ID: "c1", Name: "list_tags"}, {ID: "c2", Name: "list_notes"}}},
		{Role: domain.RoleTool, Content: "t1", ToolCallID: "c1"},
		{Role: domain.RoleTool, Content: "t2", ToolCallID: "c2"},
	}

	for _, limit := range []int{1, 2, 3} {
		pruned := pruneHistory(history, limit)
		if len(pruned) != 3 || pruned[0].Role != domain.RoleAssistant || pruned[2].Content != "t2" {
			t.Fatalf("limit %d: expected the request with both results, got %v", limit, contents(pruned))
		}
	}

	sess := NewSession("s1", "sys", 1)
	for _, m := range history {
		sess.Append(m)
	}
	if got := sess.History(); len(got) != 3 || got[0].Role != domain.RoleAssistant {
		t.Fatalf("expected the tool group to survive mid-turn pruning, got %v", contents(got))
	}
}

func TestPruneHistoryUnderLimitIsUnchanged(t *testing.T) {
	history := []domain.ConversationMessage{msg(domain.RoleUser, "u1"), msg(domain.RoleAssistant, "a1")}
	if got := pruneHistory(history, 10); len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
}

func TestSessionRestoreDropsLeadingToolMessages(t *testing.T) {
	sess := NewSession("s1", "sys", 10)
	sess.Restore([]domain.ConversationMessage{
		{Role: domain.RoleTool, Content: "t1", ToolCallID: "c1"},
		msg(domain.RoleAssistant, "a1"),
		msg(domain.RoleUser, "u2"),
	})
	if got := contents(sess.History()); len(got) != 2 || got[0] != "a1" {
		t.Fatalf("unexpected history %v", got)
	}
}

func TestTurnStateMachine(t *testing.T) {
	sess := NewSession("s1", "sys", 10)
	if sess.State() != domain.TurnStateAwaitingInput {
		t.Fatalf("expected AWAITING_INPUT, got %s", sess.State())
	}

	path := []domain.TurnState{
		domain.TurnStateInferencePending,
		domain.TurnStateToolRequested,
		domain.TurnStateToolExecuting,
		domain.TurnStateResultAppended,
		domain.TurnStateToolExecuting,
		domain.TurnStateResultAppended,
		domain.TurnStateInferencePending,
		domain.TurnStateFinalAnswer,
		domain.TurnStateAwaitingInput,
	}
	for _, next := range path {
		if err := sess.advance(next); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}

	if err := sess.advance(domain.TurnStateToolExecuting); err == nil {
		t.Fatal("expected AWAITING_INPUT -> TOOL_EXECUTING to be rejected")
	}

	if err := sess.advance(domain.TurnStateInferencePending); err != nil {
		t.Fatal(err)
	}
	sess.reset()
	if sess.State() != domain.TurnStateAwaitingInput {
		t.Fatalf("expected reset to AWAITING_INPUT, got %s", sess.State())
	}
}
