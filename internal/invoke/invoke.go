// Package invoke runs the SysAdvisor pipeline as a child process, the way
// the satellite utilities consume it: one JSON document on stdout and a zero
// exit status, or a failure whose stdout must not be trusted.
package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	apperrors "github.com/vesaa/sysadvisor/internal/errors"
	"github.com/vesaa/sysadvisor/internal/models"
)

// DefaultTimeout bounds one child run.
const DefaultTimeout = 30 * time.Second

// Source yields pipeline output for the satellites.
type Source interface {
	Status(ctx context.Context) (*models.AnalysisResult, error)
	Report(ctx context.Context) (string, error)
}

// Invoker runs a pipeline command.
type Invoker struct {
	// Command is the program and leading arguments, e.g. the own executable.
	Command []string
	// ExtraArgs are appended to every run, e.g. "--no-ai".
	ExtraArgs []string
	Timeout   time.Duration
}

// Self returns an Invoker that re-executes the running binary.
func Self(extra ...string) (*Invoker, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeTransport, "locating own executable", err)
	}
	return &Invoker{Command: []string{exe}, ExtraArgs: extra, Timeout: DefaultTimeout}, nil
}

// Status runs the pipeline in JSON mode and decodes its document.
func (i *Invoker) Status(ctx context.Context) (*models.AnalysisResult, error) {
	out, err := i.run(ctx, "--json")
	if err != nil {
		return nil, err
	}
	return Decode(out)
}

// Report runs the pipeline in text mode and returns the report.
func (i *Invoker) Report(ctx context.Context) (string, error) {
	out, err := i.run(ctx)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Decode parses and validates a wire document.
func Decode(b []byte) (*models.AnalysisResult, error) {
	var r models.AnalysisResult
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeTransport, "parsing pipeline output", err)
	}
	if err := r.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeTransport, "invalid pipeline output", err)
	}
	return &r, nil
}

func (i *Invoker) run(ctx context.Context, args ...string) ([]byte, error) {
	if len(i.Command) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeTransport, "no pipeline command configured")
	}
	timeout := i.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := append(append(append([]string{}, i.Command[1:]...), args...), i.ExtraArgs...)
	cmd := exec.CommandContext(ctx, i.Command[0], argv...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := fmt.Sprintf("pipeline command failed: %s", strings.TrimSpace(lastLine(stderr.String())))
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeTransport, msg, err)
	}
	return stdout.Bytes(), nil
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
