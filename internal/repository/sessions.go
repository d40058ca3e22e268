package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xiaot623/rolo/internal/domain"
)

// CreateSession creates a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, user_id, created_at, metadata) VALUES (?, ?, ?, ?)`,
		session.SessionID, session.UserID, session.CreatedAt, nullStringBytes(session.Metadata))
	return err
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	var metadata sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, created_at, metadata FROM sessions WHERE session_id = ?`,
		sessionID).Scan(&session.SessionID, &session.UserID, &session.CreatedAt, &metadata)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if metadata.Valid {
		session.Metadata = json.RawMessage(metadata.String)
	}
	return &session, nil
}

// GetOrCreateSession gets an existing session or creates a new one.
func (s *SQLiteStore) GetOrCreateSession(ctx context.Context, sessionID, userID string) (*domain.Session, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}

	// Create new session
	session = &domain.Session{
		SessionID: sessionID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// CreateMessage appends a message to a session's transcript.
func (s *SQLiteStore) CreateMessage(ctx context.Context, message *domain.Message) error {
	var toolCalls []byte
	if len(message.Message.ToolCalls) > 0 {
		var err error
		toolCalls, err = json.Marshal(message.Message.ToolCalls)
		if err != nil {
			return fmt.Errorf("failed to marshal tool calls: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, session_id, role, content, tool_calls, tool_call_id, tool_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		message.MessageID, message.SessionID, message.Message.Role, message.Message.Content,
		nullStringBytes(toolCalls), nullString(message.Message.ToolCallID), nullString(message.Message.ToolName),
		message.CreatedAt)
	return err
}

// GetMessages retrieves the latest limit messages of a session in
// chronological order. limit <= 0 returns the whole transcript.
func (s *SQLiteStore) GetMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	query := `SELECT seq, message_id, session_id, role, content, tool_calls, tool_call_id, tool_name, created_at
		FROM messages WHERE session_id = ? ORDER BY seq DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var seq int64
		var toolCalls, toolCallID, toolName sql.NullString
		if err := rows.Scan(&seq, &msg.MessageID, &msg.SessionID, &msg.Message.Role, &msg.Message.Content,
			&toolCalls, &toolCallID, &toolName, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if toolCalls.Valid {
			if err := json.Unmarshal([]byte(toolCalls.String), &msg.Message.ToolCalls); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tool calls of %s: %w", msg.MessageID, err)
			}
		}
		msg.Message.ToolCallID = toolCallID.String
		msg.Message.ToolName = toolName.String
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// CreateToolCall records the outcome of a dispatched tool call.
func (s *SQLiteStore) CreateToolCall(ctx context.Context, record *domain.ToolCallRecord) error {
	var backupID sql.NullInt64
	if record.BackupID != nil {
		backupID = sql.NullInt64{Int64: *record.BackupID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_calls (tool_call_id, session_id, tool_name, classification, args, success, error_kind, message, backup_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ToolCallID, record.SessionID, record.ToolName, nullString(string(record.Classification)),
		nullStringBytes(record.Args), record.Success, nullString(string(record.ErrorKind)), record.Message,
		backupID, record.CreatedAt)
	return err
}

// ListToolCalls returns the tool call audit of a session, newest first.
func (s *SQLiteStore) ListToolCalls(ctx context.Context, sessionID string, limit int) ([]domain.ToolCallRecord, error) {
	query := `SELECT tool_call_id, session_id, tool_name, classification, args, success, error_kind, message, backup_id, created_at
		FROM tool_calls WHERE session_id = ? ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ToolCallRecord
	for rows.Next() {
		var r domain.ToolCallRecord
		var classification, args, errorKind, message sql.NullString
		var backupID sql.NullInt64
		if err := rows.Scan(&r.ToolCallID, &r.SessionID, &r.ToolName, &classification, &args, &r.Success,
			&errorKind, &message, &backupID, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Classification = domain.Classification(classification.String)
		if args.Valid {
			r.Args = json.RawMessage(args.String)
		}
		r.ErrorKind = domain.ErrorKind(errorKind.String)
		r.Message = message.String
		if backupID.Valid {
			id := backupID.Int64
			r.BackupID = &id
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
