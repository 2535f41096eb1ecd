package notice

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"pos-service/internal/util"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notice codes. Every checkout or sync transition that can fail posts a
// distinguishable code.
const (
	CodeOfflineEntered  = "offline_entered"
	CodeOnlineRestored  = "online_restored"
	CodeSyncStarted     = "sync_started"
	CodeSyncCompleted   = "sync_completed"
	CodeSyncAborted     = "sync_aborted"
	CodeSaleQueued      = "sale_queued"
	CodeSaleSynced      = "sale_synced"
	CodeSaleFailed      = "sale_failed"
	CodeStockLimit      = "stock_limit"
	CodeMissingCustomer = "missing_customer"
	CodeEmptyCart       = "empty_cart"
	CodeAuthFailed      = "auth_failed"
	CodeSubmitError     = "submit_error"
)

// Notice is one transient operator-facing status message.
type Notice struct {
	Level   Level     `json:"level"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Board keeps a bounded ring of recent notices and mirrors each one to the
// logger. Presentation beyond that is up to the caller of Recent.
type Board struct {
	mu     sync.Mutex
	max    int
	items  []Notice
	logger *zap.Logger
}

// NewBoard creates a board holding at most max notices
func NewBoard(max int) *Board {
	if max <= 0 {
		max = 100
	}
	return &Board{
		max:    max,
		logger: util.GetLogger(),
	}
}

// Post appends a notice, evicting the oldest past the cap
func (b *Board) Post(level Level, code, message string) {
	b.mu.Lock()
	b.items = append(b.items, Notice{
		Level:   level,
		Code:    code,
		Message: message,
		At:      time.Now(),
	})
	if len(b.items) > b.max {
		b.items = b.items[len(b.items)-b.max:]
	}
	b.mu.Unlock()

	fields := []zap.Field{zap.String("code", code)}
	switch level {
	case LevelError:
		b.logger.Error(message, fields...)
	case LevelWarn:
		b.logger.Warn(message, fields...)
	default:
		b.logger.Info(message, fields...)
	}
}

// Recent returns up to n notices, newest last
func (b *Board) Recent(n int) []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 || n > len(b.items) {
		n = len(b.items)
	}
	out := make([]Notice, n)
	copy(out, b.items[len(b.items)-n:])
	return out
}
