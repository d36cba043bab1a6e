// Package script delivers verification codes through an external command,
// invoked as `<command...> <email> <code>`. The command prints one JSON object:
//
//	{"success": true, "message": "sent"}
//	{"success": false, "error": "smtp auth failed"}
package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

type result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

type Notifier struct {
	name string
	args []string
}

// NewNotifier splits command on whitespace; quoting is not supported.
func NewNotifier(command string) (*Notifier, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, errors.New("notify script command is empty")
	}
	return &Notifier{name: parts[0], args: parts[1:]}, nil
}

func (n *Notifier) NotifyCode(ctx context.Context, email, code string) error {
	args := append(append([]string{}, n.args...), email, code)
	cmd := exec.CommandContext(ctx, n.name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// children of the script may hold stdout open after it is killed
	cmd.WaitDelay = time.Second

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return fmt.Errorf("notify script: %w", ctx.Err())
	}

	var res result
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &res); err != nil {
		if runErr != nil {
			return fmt.Errorf("notify script: %w: %s", runErr, strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("notify script: unreadable output %q: %w", stdout.String(), err)
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "delivery failed"
		}
		return fmt.Errorf("notify script: %s", msg)
	}
	if runErr != nil {
		return fmt.Errorf("notify script: %w", runErr)
	}
	return nil
}
