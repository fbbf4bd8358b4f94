package notification

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dooshek/duologue/internal/logger"
)

const appTitle = "Duologue"

// Notifier defines the interface for desktop notifications
type Notifier interface {
	NotifyRenderComplete(path string, duration time.Duration, failures int) error
	NotifyRenderFailed(err error) error
	Notify(title, message string) error
}

// SilentNotifier is a no-op implementation
type SilentNotifier struct{}

func NewSilent() Notifier {
	return &SilentNotifier{}
}

func (s *SilentNotifier) NotifyRenderComplete(string, time.Duration, int) error { return nil }
func (s *SilentNotifier) NotifyRenderFailed(error) error                        { return nil }
func (s *SilentNotifier) Notify(title, message string) error                    { return nil }

type baseNotifier struct {
	platform platformNotifier
}

type platformNotifier interface {
	send(title, message string) error
}

// New creates a new platform-specific notification service
func New() Notifier {
	logger.Debug("Initializing notification system")
	var platform platformNotifier
	switch runtime.GOOS {
	case "darwin":
		logger.Debug("Using Darwin (macOS) notifier")
		platform = &darwinNotifier{}
	default:
		logger.Debug("Using Linux notifier")
		platform = &linuxNotifier{}
	}
	return &baseNotifier{platform: platform}
}

func (n *baseNotifier) NotifyRenderComplete(path string, duration time.Duration, failures int) error {
	return n.Notify(appTitle, completeMessage(path, duration, failures))
}

func (n *baseNotifier) NotifyRenderFailed(err error) error {
	return n.Notify(appTitle, fmt.Sprintf("Render failed: %v", err))
}

func (n *baseNotifier) Notify(title, message string) error {
	return n.platform.send(title, message)
}

func completeMessage(path string, duration time.Duration, failures int) string {
	msg := fmt.Sprintf("%s ready (%s)", filepath.Base(path), duration.Round(time.Second))
	if failures > 0 {
		msg += fmt.Sprintf(", %d turns silenced", failures)
	}
	return msg
}
