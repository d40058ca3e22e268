package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xiaot623/rolo/internal/domain"
	"github.com/xiaot623/rolo/internal/metrics"
	"github.com/xiaot623/rolo/internal/repository"
	"github.com/xiaot623/rolo/internal/tools"
	"go.uber.org/zap"
)

// DefaultRetention is the number of auto backups kept when none is
// configured.
const DefaultRetention = 10

// SafetyWrapper runs mutating calls behind a fresh auto backup and keeps the
// number of auto backups within the retention limit.
type SafetyWrapper struct {
	mu        sync.Mutex
	backups   store.BackupStore
	retention int
	logger    *zap.Logger
}

// NewSafetyWrapper creates a wrapper around backups.
func NewSafetyWrapper(backups store.BackupStore, retention int, logger *zap.Logger) *SafetyWrapper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SafetyWrapper{backups: backups, retention: retention, logger: logger}
}

// Run takes a backup, runs call and reports the outcome with the backup id.
// If the backup cannot be taken, call is never run.
func (s *SafetyWrapper) Run(ctx context.Context, toolName string, call tools.Call) domain.ToolCallResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	backup, err := s.backups.CreateBackup(ctx, "before "+toolName, true)
	if err != nil {
		metrics.RecordBackupFailure()
		s.logger.Error("backup failed, write aborted", zap.String("tool", toolName), zap.Error(err))
		return domain.Failed(domain.NewToolError(domain.ErrorKindExecution,
			"could not create a backup, %s was not run: %v", toolName, err))
	}
	metrics.RecordBackupCreated(true)

	value, callErr := invoke(ctx, call)

	if pruned, err := s.prune(ctx); err != nil {
		s.logger.Warn("backup retention failed", zap.Error(err))
	} else if pruned > 0 {
		s.logger.Debug("pruned auto backups", zap.Int("count", pruned))
	}

	if callErr != nil {
		r := domain.Failed(callErr).WithBackup(backup.ID)
		r.Message = fmt.Sprintf("%s (backup %d was taken before the attempt)", r.Message, backup.ID)
		return r
	}
	return domain.Succeeded(value,
		fmt.Sprintf("%s succeeded; backup %d holds the previous state", toolName, backup.ID)).
		WithBackup(backup.ID)
}

// prune deletes the oldest auto backups above the retention limit. Manual
// backups are never counted or deleted.
func (s *SafetyWrapper) prune(ctx context.Context) (int, error) {
	all, err := s.backups.ListBackups(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list backups: %w", err)
	}
	var auto []domain.Backup
	for _, b := range all {
		if b.IsAuto {
			auto = append(auto, b)
		}
	}
	sort.Slice(auto, func(i, j int) bool { return auto[i].ID < auto[j].ID })

	excess := len(auto) - s.retention
	pruned := 0
	for i := 0; i < excess; i++ {
		if err := s.backups.DeleteBackup(ctx, auto[i].ID); err != nil {
			metrics.RecordBackupsPruned(pruned)
			return pruned, fmt.Errorf("failed to delete backup %d: %w", auto[i].ID, err)
		}
		pruned++
	}
	metrics.RecordBackupsPruned(pruned)
	return pruned, nil
}

// invoke runs call, converting a panic into an error.
func invoke(ctx context.Context, call tools.Call) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewToolError(domain.ErrorKindExecution, "tool panicked: %v", r)
		}
	}()
	return call(ctx)
}
