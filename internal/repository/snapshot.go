package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xiaot623/rolo/internal/domain"
)

// SnapshotStore implements BackupStore by copying the contact database into
// standalone SQLite files with VACUUM INTO. Backup metadata lives in a
// separate index database inside the backup directory so that restoring a
// snapshot never rewinds the backup list itself.
type SnapshotStore struct {
	mu     sync.Mutex
	source *sql.DB
	index  *sql.DB
	dir    string
}

var _ BackupStore = (*SnapshotStore)(nil)

// NewSnapshotStore opens (or creates) the backup index in dir.
func NewSnapshotStore(source *SQLiteStore, dir string) (*SnapshotStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("backup directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	index, err := sql.Open("sqlite3", "file:"+filepath.Join(dir, "index.db")+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open backup index: %w", err)
	}
	index.SetMaxOpenConns(1)

	if _, err := index.Exec(`CREATE TABLE IF NOT EXISTS backups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME NOT NULL,
		comment TEXT NOT NULL,
		is_auto INTEGER NOT NULL,
		path TEXT NOT NULL DEFAULT ''
	)`); err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to migrate backup index: %w", err)
	}

	return &SnapshotStore{source: source.DB(), index: index, dir: dir}, nil
}

// CreateBackup snapshots the contact database. The index row and the
// snapshot file are committed together: if the snapshot fails, neither
// remains.
func (s *SnapshotStore) CreateBackup(ctx context.Context, comment string, isAuto bool) (*domain.Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.index.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin backup: %w", err)
	}
	defer tx.Rollback()

	backup := &domain.Backup{
		Timestamp: time.Now().UTC(),
		Comment:   comment,
		IsAuto:    isAuto,
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO backups (created_at, comment, is_auto) VALUES (?, ?, ?)`,
		backup.Timestamp, backup.Comment, backup.IsAuto)
	if err != nil {
		return nil, fmt.Errorf("failed to record backup: %w", err)
	}
	if backup.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}

	backup.Path = filepath.Join(s.dir, fmt.Sprintf("rolo-%06d.db", backup.ID))
	// A leftover file from an earlier failed attempt would make VACUUM INTO fail.
	_ = os.Remove(backup.Path)
	if _, err := s.source.ExecContext(ctx, "VACUUM INTO "+quoteLiteral(backup.Path)); err != nil {
		_ = os.Remove(backup.Path)
		return nil, fmt.Errorf("failed to snapshot database: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE backups SET path = ? WHERE id = ?`, backup.Path, backup.ID); err != nil {
		_ = os.Remove(backup.Path)
		return nil, fmt.Errorf("failed to record backup path: %w", err)
	}
	if err := tx.Commit(); err != nil {
		_ = os.Remove(backup.Path)
		return nil, fmt.Errorf("failed to commit backup: %w", err)
	}
	return backup, nil
}

// ListBackups returns all backups, oldest first.
func (s *SnapshotStore) ListBackups(ctx context.Context) ([]domain.Backup, error) {
	rows, err := s.index.QueryContext(ctx,
		`SELECT id, created_at, comment, is_auto, path FROM backups WHERE path != '' ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	backups := []domain.Backup{}
	for rows.Next() {
		var b domain.Backup
		if err := rows.Scan(&b.ID, &b.Timestamp, &b.Comment, &b.IsAuto, &b.Path); err != nil {
			return nil, err
		}
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

// GetBackup retrieves a backup by ID.
func (s *SnapshotStore) GetBackup(ctx context.Context, id int64) (*domain.Backup, error) {
	var b domain.Backup
	err := s.index.QueryRowContext(ctx,
		`SELECT id, created_at, comment, is_auto, path FROM backups WHERE id = ? AND path != ''`, id).
		Scan(&b.ID, &b.Timestamp, &b.Comment, &b.IsAuto, &b.Path)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// DeleteBackup removes a backup and its snapshot file.
func (s *SnapshotStore) DeleteBackup(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.GetBackup(ctx, id)
	if err != nil {
		return err
	}
	if b == nil {
		return nil
	}
	if _, err := s.index.ExecContext(ctx, `DELETE FROM backups WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete backup %d: %w", id, err)
	}
	if err := os.Remove(b.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove snapshot %s: %w", b.Path, err)
	}
	return nil
}

// Restore replaces the contact tables with their content in backup id.
// Sessions, messages and the tool call audit are left untouched. Callers are
// expected to have taken a backup of the current state first.
func (s *SnapshotStore) Restore(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.GetBackup(ctx, id)
	if err != nil {
		return err
	}
	if b == nil {
		return domain.NotFoundError("backup %d not found", id)
	}
	if _, err := os.Stat(b.Path); err != nil {
		return fmt.Errorf("snapshot of backup %d is unavailable: %w", id, err)
	}
	if err := restoreContactTables(ctx, b.Path, s.source); err != nil {
		return fmt.Errorf("failed to restore backup %d: %w", id, err)
	}
	return nil
}

// Close closes the backup index.
func (s *SnapshotStore) Close() error {
	return s.index.Close()
}

// contactTables lists the restored tables, parents before children.
var contactTables = []string{"contacts", "tags", "contact_tags", "notes", "relationships"}

// restoreContactTables copies contactTables from the snapshot at path into
// dest in one transaction.
func restoreContactTables(ctx context.Context, path string, dest *sql.DB) (err error) {
	conn, err := dest.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "ATTACH DATABASE "+quoteLiteral(path)+" AS snapshot"); err != nil {
		return fmt.Errorf("failed to attach snapshot: %w", err)
	}
	defer func() {
		if _, detachErr := conn.ExecContext(context.Background(), "DETACH DATABASE snapshot"); detachErr != nil && err == nil {
			err = fmt.Errorf("failed to detach snapshot: %w", detachErr)
		}
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := len(contactTables) - 1; i >= 0; i-- {
		if _, err := tx.ExecContext(ctx, "DELETE FROM main."+contactTables[i]); err != nil {
			return fmt.Errorf("failed to clear %s: %w", contactTables[i], err)
		}
	}
	for _, table := range contactTables {
		if _, err := tx.ExecContext(ctx, "INSERT INTO main."+table+" SELECT * FROM snapshot."+table); err != nil {
			return fmt.Errorf("failed to restore %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
