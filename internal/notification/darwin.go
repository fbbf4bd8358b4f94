package notification

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/dooshek/duologue/internal/logger"
)

type darwinNotifier struct{}

func (n *darwinNotifier) send(title, message string) error {
	logger.Debugf("Sending macOS notification: %s - %s", title, message)
	script := fmt.Sprintf(`display notification %s with title %s`, appleScriptString(message), appleScriptString(title))
	cmd := exec.Command("osascript", "-e", script)
	if err := cmd.Run(); err != nil {
		logger.Warnf("Failed to send macOS notification: %v", err)
		return err
	}
	logger.Debug("Successfully sent macOS notification")
	return nil
}

// appleScriptString quotes s as an AppleScript string literal
func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
