package notification

import (
	"os/exec"

	"github.com/dooshek/duologue/internal/logger"
)

type linuxNotifier struct{}

func (n *linuxNotifier) send(title, message string) error {
	logger.Debugf("Sending notification: %s - %s", title, message)
	if err := exec.Command("notify-send", "--app-name", "duologue", title, message).Run(); err != nil {
		logger.Warnf("Failed to send notification: %v", err)
		return err
	}
	return nil
}
