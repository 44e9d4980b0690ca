// Package timeouts provides the time budgets applied to every blocking call
// made while handling a conversation turn.
//
// A turn may touch the session store, the account store, the file-listing
// service and the chat transport. Each kind of call gets its own budget so
// a slow collaborator degrades that one step instead of hanging the turn.
//
// Values can be set once at startup with Configure. If not configured, the
// defaults below apply.
//
// Guidelines:
//   - Ping: health checks
//   - Store: single session or account reads and writes
//   - Directory: one remote folder lookup or listing
//   - Send: one outbound chat message
//   - Broadcast: a whole group fan-out
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing      = 2 * time.Second
	DefaultStore     = 5 * time.Second
	DefaultDirectory = 10 * time.Second
	DefaultSend      = 10 * time.Second
	DefaultBroadcast = 2 * time.Minute
)

var mu sync.RWMutex

var (
	ping      = DefaultPing
	store     = DefaultStore
	directory = DefaultDirectory
	send      = DefaultSend
	broadcast = DefaultBroadcast
)

// Ping returns the timeout for connectivity checks.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Store returns the timeout for a session or account store call.
func Store() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return store
}

// Directory returns the timeout for a remote file-store call.
func Directory() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return directory
}

// Send returns the timeout for delivering one chat message.
func Send() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return send
}

// Broadcast returns the timeout for delivering to a whole group.
func Broadcast() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return broadcast
}

// Config holds timeout configuration values.
// Zero values are ignored (defaults are kept).
type Config struct {
	Ping      time.Duration
	Store     time.Duration
	Directory time.Duration
	Send      time.Duration
	Broadcast time.Duration
}

// Configure sets custom timeout values. Zero values in the config are
// ignored, keeping the current (or default) values.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Store > 0 {
		store = cfg.Store
	}
	if cfg.Directory > 0 {
		directory = cfg.Directory
	}
	if cfg.Send > 0 {
		send = cfg.Send
	}
	if cfg.Broadcast > 0 {
		broadcast = cfg.Broadcast
	}
}

// Reset restores all timeouts to their default values.
// Useful for testing.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	store = DefaultStore
	directory = DefaultDirectory
	send = DefaultSend
	broadcast = DefaultBroadcast
}

// Current returns the current timeout configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{
		Ping:      ping,
		Store:     store,
		Directory: directory,
		Send:      send,
		Broadcast: broadcast,
	}
}

// WithTimeout creates a context with timeout and returns a cancel function
// that logs a warning if the deadline was hit before cancel was called.
//
//	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Directory(), log, "folder lookup")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
