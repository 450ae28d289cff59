// Package navigation provides the headless navigation context used by the
// CLI and by embedding hosts that have no browser router.
package navigation

import (
	"log/slog"
	"sync"

	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

var (
	_ ports.Navigator = (*Router)(nil)
	_ ports.Notifier  = (*LogNotifier)(nil)
)

// Router tracks the current path. Redirects replace it and are reported to
// the optional hook, which a host can use to render its login prompt.
type Router struct {
	mu         sync.RWMutex
	path       string
	onRedirect func(path string)
	logger     *slog.Logger
}

func NewRouter(initial string, onRedirect func(path string), logger *slog.Logger) *Router {
	if initial == "" {
		initial = "/"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{path: initial, onRedirect: onRedirect, logger: logger}
}

func (r *Router) CurrentPath() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.path
}

// Navigate moves to path without notifying the hook.
func (r *Router) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.path = path
}

func (r *Router) Redirect(path string) {
	r.mu.Lock()
	from := r.path
	r.path = path
	hook := r.onRedirect
	r.mu.Unlock()

	r.logger.Info("navigation: redirect", "from", from, "to", path)
	if hook != nil {
		hook(path)
	}
}

// LogNotifier surfaces notifications through the logger.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(message string) {
	n.logger.Warn(message)
}
