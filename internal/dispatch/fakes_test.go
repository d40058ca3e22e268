package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xiaot623/rolo/internal/domain"
	"github.com/xiaot623/rolo/internal/tools"
)

// memoryBackups is an in-memory BackupStore that records the order of events.
type memoryBackups struct {
	mu         sync.Mutex
	nextID     int64
	backups    []domain.Backup
	failCreate error
	log        *eventLog
}

func newMemoryBackups(log *eventLog) *memoryBackups {
	return &memoryBackups{log: log}
}

func (m *memoryBackups) CreateBackup(ctx context.Context, comment string, isAuto bool) (*domain.Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return nil, m.failCreate
	}
	m.nextID++
	b := domain.Backup{ID: m.nextID, Timestamp: time.Now(), Comment: comment, IsAuto: isAuto}
	m.backups = append(m.backups, b)
	if m.log != nil {
		m.log.add("backup")
	}
	return &b, nil
}

func (m *memoryBackups) ListBackups(ctx context.Context) ([]domain.Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Backup, len(m.backups))
	copy(out, m.backups)
	return out, nil
}

func (m *memoryBackups) DeleteBackup(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.backups {
		if b.ID == id {
			m.backups = append(m.backups[:i], m.backups[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memoryBackups) count(auto bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.backups {
		if b.IsAuto == auto {
			n++
		}
	}
	return n
}

func (m *memoryBackups) ids(auto bool) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for _, b := range m.backups {
		if b.IsAuto == auto {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type spyArgs struct {
	Value string `json:"value"`
	SQL   string `json:"sql"`
}

type spyBehavior int

const (
	behaveOK spyBehavior = iota
	behaveError
	behavePanic
)

// spyTool returns a tool whose handler logs its name when it runs.
func spyTool(name string, class domain.Classification, log *eventLog, behave spyBehavior) tools.Tool {
	props := map[string]domain.Property{
		"value":          {Type: "string", Default: "*"},
		tools.ArgConfirm: {Type: "boolean", Default: false},
	}
	required := []string{}
	if class == domain.ClassificationSQL {
		props[tools.ArgSQL] = domain.Property{Type: "string"}
		required = append(required, tools.ArgSQL)
	}
	return tools.Tool{
		Name:           name,
		Description:    "spy " + name,
		Classification: class,
		Parameters:     domain.ParameterSchema{Type: "object", Properties: props, Required: required},
		Handler: tools.Typed(func(ctx context.Context, args spyArgs) (interface{}, error) {
			log.add(name)
			switch behave {
			case behaveError:
				return nil, errors.New("disk on fire")
			case behavePanic:
				panic("boom")
			}
			return map[string]string{"value": args.Value}, nil
		}),
	}
}
