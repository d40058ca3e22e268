// Package service drives conversations between the user, the language model
// and the tool dispatcher.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/rolo/internal/adapter/llm"
	"github.com/xiaot623/rolo/internal/config"
	"github.com/xiaot623/rolo/internal/domain"
	"github.com/xiaot623/rolo/internal/metrics"
	"github.com/xiaot623/rolo/internal/repository"
	"go.uber.org/zap"
)

const defaultUserID = "local"

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// ToolExecutor runs tool calls. It is satisfied by *dispatch.Dispatcher.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]interface{}) domain.ToolCallResult
	Tools() []domain.ToolSchema
	Classification(name string) (domain.Classification, bool)
}

// Service owns the conversation sessions of one process.
type Service struct {
	store     store.ConversationStore
	executor  ToolExecutor
	llmClient llm.LLMClient
	backups   store.BackupStore
	config    *config.Config
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// New creates a Service.
func New(st store.ConversationStore, executor ToolExecutor, llmClient llm.LLMClient, backups store.BackupStore, cfg *config.Config, logger *zap.Logger) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     st,
		executor:  executor,
		llmClient: llmClient,
		backups:   backups,
		config:    cfg,
		logger:    logger,
		sessions:  make(map[string]*Session),
	}
}

// CreateSession opens a conversation. A caller-chosen id that already exists
// is reused.
func (s *Service) CreateSession(ctx context.Context, req domain.CreateSessionRequest) (*domain.CreateSessionResponse, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "sess_" + uuid.New().String()[:8]
	}
	userID := req.UserID
	if userID == "" {
		userID = defaultUserID
	}
	if _, err := s.store.GetOrCreateSession(ctx, sessionID, userID); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if _, err := s.session(ctx, sessionID); err != nil {
		return nil, err
	}
	return &domain.CreateSessionResponse{SessionID: sessionID}, nil
}

// session returns the in-memory session, rehydrating it from the store on
// first use. Unknown ids yield ErrSessionNotFound.
func (s *Service) session(ctx context.Context, sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sessionID]; ok {
		return sess, nil
	}

	stored, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if stored == nil {
		return nil, ErrSessionNotFound
	}

	messages, err := s.store.GetMessages(ctx, sessionID, s.config.MaxHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	history := make([]domain.ConversationMessage, 0, len(messages))
	for _, m := range messages {
		if m.Message.Role == domain.RoleSystem {
			continue
		}
		history = append(history, m.Message)
	}

	sess := NewSession(sessionID, SystemPrompt(time.Now()), s.config.MaxHistory)
	sess.Restore(history)
	s.sessions[sessionID] = sess
	return sess, nil
}

// ListMessages returns the persisted transcript of a session.
func (s *Service) ListMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	if err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}
	messages, err := s.store.GetMessages(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return messages, nil
}

// ListToolCalls returns the tool call audit of a session, newest first.
func (s *Service) ListToolCalls(ctx context.Context, sessionID string, limit int) ([]domain.ToolCallRecord, error) {
	if err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}
	records, err := s.store.ListToolCalls(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tool calls: %w", err)
	}
	return records, nil
}

func (s *Service) requireSession(ctx context.Context, sessionID string) error {
	stored, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if stored == nil {
		return ErrSessionNotFound
	}
	return nil
}

// ListTools returns the schemas of the enabled tools.
func (s *Service) ListTools() []domain.ToolSchema {
	return s.executor.Tools()
}

// InvokeTool runs a single tool outside of a model turn, e.g. from the CLI or
// the HTTP API. The call goes through the same dispatcher as model requests
// and is audited under sessionID when one is given.
func (s *Service) InvokeTool(ctx context.Context, sessionID, toolName string, args map[string]interface{}) domain.ToolCallResult {
	if args == nil {
		args = map[string]interface{}{}
	}
	result := s.executor.Execute(ctx, toolName, args)
	s.audit(ctx, sessionID, toolName, args, result)
	return result
}

// ListBackups returns all backups, oldest first.
func (s *Service) ListBackups(ctx context.Context) ([]domain.Backup, error) {
	backups, err := s.backups.ListBackups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	return backups, nil
}

// CreateBackup takes a manual backup. Manual backups are never pruned.
func (s *Service) CreateBackup(ctx context.Context, comment string) (*domain.Backup, error) {
	if comment == "" {
		comment = "manual backup"
	}
	backup, err := s.backups.CreateBackup(ctx, comment, false)
	if err != nil {
		metrics.RecordBackupFailure()
		return nil, fmt.Errorf("failed to create backup: %w", err)
	}
	metrics.RecordBackupCreated(false)
	s.logger.Info("manual backup created", zap.Int64("backup_id", backup.ID), zap.String("comment", comment))
	return backup, nil
}

// ListModels retrieves the models served by the inference endpoint.
func (s *Service) ListModels(ctx context.Context) ([]llm.Model, error) {
	return s.llmClient.ListModels(ctx)
}
