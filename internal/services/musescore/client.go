// Package musescore wraps the MuseScore CLI as the rendering collaborator:
// score document in, printable PDF out.
package musescore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Renderer is the behaviour the conversion flow needs from the renderer.
type Renderer interface {
	Render(ctx context.Context, scorePath, pdfPath string) (string, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client invokes MuseScore for score-to-PDF conversion.
type Client struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs a MuseScore client for the given binary path.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("musescore binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Render converts the score document to a PDF. When pdfPath is empty the
// PDF lands beside the score with a .pdf extension. The PDF must exist
// after the run; MuseScore sometimes exits zero without writing one.
func (c *Client) Render(ctx context.Context, scorePath, pdfPath string) (string, error) {
	if strings.TrimSpace(scorePath) == "" {
		return "", errors.New("score path required")
	}
	if _, err := os.Stat(scorePath); err != nil {
		return "", fmt.Errorf("stat score document: %w", err)
	}
	if strings.TrimSpace(pdfPath) == "" {
		pdfPath = strings.TrimSuffix(scorePath, filepath.Ext(scorePath)) + ".pdf"
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.exec.Run(runCtx, c.binary, []string{"-o", pdfPath, scorePath}); err != nil {
		return "", fmt.Errorf("musescore render: %w", err)
	}
	if _, err := os.Stat(pdfPath); err != nil {
		return "", errors.New("musescore produced no PDF output")
	}
	return pdfPath, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail != "" {
			return fmt.Errorf("%w: %s", err, detail)
		}
		return err
	}
	return nil
}

var _ Renderer = (*Client)(nil)
