package service

import (
	"fmt"
	"sync"

	"github.com/xiaot623/rolo/internal/domain"
)

// transitions lists the legal moves of the turn state machine. Any state may
// fall back to AWAITING_INPUT when a turn fails.
var transitions = map[domain.TurnState][]domain.TurnState{
	domain.TurnStateAwaitingInput:    {domain.TurnStateInferencePending},
	domain.TurnStateInferencePending: {domain.TurnStateToolRequested, domain.TurnStateFinalAnswer},
	domain.TurnStateToolRequested:    {domain.TurnStateToolExecuting},
	domain.TurnStateToolExecuting:    {domain.TurnStateResultAppended},
	domain.TurnStateResultAppended:   {domain.TurnStateToolExecuting, domain.TurnStateInferencePending},
	domain.TurnStateFinalAnswer:      {domain.TurnStateAwaitingInput},
}

// Session is the conversation context of one chat. It holds the system
// prompt, the bounded history and the turn state. turn serializes turns.
type Session struct {
	ID string

	turn       sync.Mutex
	mu         sync.Mutex
	state      domain.TurnState
	system     domain.ConversationMessage
	history    []domain.ConversationMessage
	maxHistory int
}

// NewSession creates a session whose history keeps at most maxHistory
// messages besides the system prompt.
func NewSession(id, systemPrompt string, maxHistory int) *Session {
	if maxHistory <= 0 {
		maxHistory = 1
	}
	return &Session{
		ID:         id,
		state:      domain.TurnStateAwaitingInput,
		system:     domain.ConversationMessage{Role: domain.RoleSystem, Content: systemPrompt},
		maxHistory: maxHistory,
	}
}

// State returns the current turn state.
func (s *Session) State() domain.TurnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) advance(to domain.TurnState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, next := range transitions[s.state] {
		if next == to {
			s.state = to
			return nil
		}
	}
	return fmt.Errorf("illegal turn transition %s -> %s", s.state, to)
}

func (s *Session) reset() {
	s.mu.Lock()
	s.state = domain.TurnStateAwaitingInput
	s.mu.Unlock()
}

// Append adds msg to the history and prunes it.
func (s *Session) Append(msg domain.ConversationMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = pruneHistory(append(s.history, msg), s.maxHistory)
}

// Restore replaces the history, e.g. with messages loaded from the store.
func (s *Session) Restore(history []domain.ConversationMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = pruneHistory(append([]domain.ConversationMessage(nil), history...), s.maxHistory)
}

// Messages returns the system prompt followed by a copy of the history.
func (s *Session) Messages() []domain.ConversationMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ConversationMessage, 0, len(s.history)+1)
	out = append(out, s.system)
	return append(out, s.history...)
}

// History returns a copy of the history without the system prompt.
func (s *Session) History() []domain.ConversationMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ConversationMessage(nil), s.history...)
}

// pruneHistory drops the oldest messages until at most limit remain. An
// assistant message and the tool results that answer it are dropped
// together, and the newest such group is always kept even when it alone
// exceeds limit. Leading tool messages without their request are dropped.
func pruneHistory(history []domain.ConversationMessage, limit int) []domain.ConversationMessage {
	start := 0
	for start < len(history) && history[start].Role == domain.RoleTool {
		start++
	}
	for len(history)-start > limit {
		next := start + 1
		for next < len(history) && history[next].Role == domain.RoleTool {
			next++
		}
		if next == len(history) {
			break
		}
		start = next
	}
	if start == 0 {
		return history
	}
	return append([]domain.ConversationMessage(nil), history[start:]...)
}
