package endpoint

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Exec runs a command on the remote host in a fresh SSH session and
// returns its stdout. A failed command reports its stderr in the
// returned error. Cancelling the context signals the remote process.
func (s *Session) Exec(ctx context.Context, name string, args ...string) ([]byte, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("ssh session on %s: %w", s.uri, err)
	}
	defer sess.Close()

	cmdLine := name
	for _, a := range args {
		cmdLine += " " + shellQuote(a)
	}
	s.logger.Debug("exec", "cmd", cmdLine)

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- sess.Run(cmdLine) }()

	select {
	case err := <-done:
		if err != nil {
			msg := strings.TrimSpace(stderr.String())
			if msg != "" {
				return stdout.Bytes(), fmt.Errorf("%s: %w: %s", name, err, msg)
			}
			return stdout.Bytes(), fmt.Errorf("%s: %w", name, err)
		}
		return stdout.Bytes(), nil
	case <-ctx.Done():
		sess.Signal(ssh.SIGTERM)
		return nil, ctx.Err()
	}
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'\\$`!#&|;(){}[]<>?*~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}
