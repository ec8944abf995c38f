// Package audiveris wraps the Audiveris optical-music-recognition CLI as
// an external collaborator: page image in, structured score document out.
package audiveris

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Recognizer is the behaviour the upload flow needs from the OMR engine.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath, outputDir string) (string, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
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

// Client invokes Audiveris in batch mode.
type Client struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs an Audiveris client for the given binary path.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("audiveris binary required")
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

// Recognize runs batch OMR over the page image and returns the path of the
// exported score document inside outputDir. Audiveris writes a project
// subtree; the first .mxl (preferred) or .xml/.musicxml export wins.
func (c *Client) Recognize(ctx context.Context, imagePath, outputDir string) (string, error) {
	if strings.TrimSpace(imagePath) == "" {
		return "", errors.New("image path required")
	}
	if strings.TrimSpace(outputDir) == "" {
		return "", errors.New("output directory required")
	}
	if _, err := os.Stat(imagePath); err != nil {
		return "", fmt.Errorf("stat input image: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{"-batch", "-export", "-output", outputDir, imagePath}
	if err := c.exec.Run(runCtx, c.binary, args, nil); err != nil {
		return "", fmt.Errorf("audiveris export: %w", err)
	}

	export, err := findExport(outputDir)
	if err != nil {
		return "", err
	}
	return export, nil
}

// findExport scans the output tree for the recognized score, preferring
// the compressed container over loose XML.
func findExport(dir string) (string, error) {
	var mxl, xml string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".mxl":
			if mxl == "" {
				mxl = path
			}
		case ".xml", ".musicxml":
			if xml == "" {
				xml = path
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan audiveris output: %w", err)
	}
	if mxl != "" {
		return mxl, nil
	}
	if xml != "" {
		return xml, nil
	}
	return "", errors.New("audiveris produced no score document; check image quality")
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	forward := func(line string) {
		if onOutput != nil {
			onOutput(line)
			return
		}
		fmt.Fprintln(os.Stderr, line)
	}
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			forward(scanner.Text())
		}
	}
	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

var _ Recognizer = (*Client)(nil)
