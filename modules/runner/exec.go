package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// timeoutExitCode is reported when the program is killed at the deadline,
// matching the conventional shell timeout(1) code the client expects.
const timeoutExitCode = 124

// ErrUnsupportedLanguage is returned for any language other than C++.
var ErrUnsupportedLanguage = errors.New("only C++ is supported for server-side execution")

// Request describes one compile-and-run job. RoomID is optional; when set,
// the result is also fanned out to that room over the event bus.
type Request struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Stdin    string `json:"stdin"`
	RoomID   string `json:"roomId"`
}

// Result is the structured outcome of a job. Failures of the submitted
// program (compile errors, crashes, timeouts) are results, not errors.
type Result struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
}

func supportedLanguage(language string) bool {
	switch strings.ToLower(language) {
	case "cpp", "c++":
		return true
	}
	return false
}

// Execute compiles req.Code with g++ and runs the binary with req.Stdin on
// stdin, enforcing the module's wall-clock timeout. Sandboxed by convention
// only; there is no OS-level isolation.
func (m *Module) Execute(ctx context.Context, req Request) (Result, error) {
	if !supportedLanguage(req.Language) {
		return Result{}, ErrUnsupportedLanguage
	}

	jobID := uuid.New().String()
	srcPath := filepath.Join(os.TempDir(), jobID+".cpp")
	binPath := filepath.Join(os.TempDir(), jobID+".out")

	if err := os.WriteFile(srcPath, []byte(req.Code), 0o600); err != nil {
		return Result{}, fmt.Errorf("failed to write source file: %w", err)
	}
	defer os.Remove(srcPath)
	defer os.Remove(binPath)

	var compileErr bytes.Buffer
	compile := exec.CommandContext(ctx, "g++", srcPath, "-o", binPath)
	compile.Stderr = &compileErr
	if err := compile.Run(); err != nil {
		stderr := compileErr.String()
		if stderr == "" {
			stderr = err.Error()
		}
		return Result{Stderr: stderr, ExitCode: 1}, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	run := exec.CommandContext(runCtx, binPath)
	run.Stdin = strings.NewReader(req.Stdin)
	run.Stdout = &stdout
	run.Stderr = &stderr

	err := run.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return Result{Stderr: "Execution timed out", ExitCode: timeoutExitCode}, nil
	}
	if err != nil {
		code := 1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		out := stderr.String()
		if out == "" {
			out = err.Error()
		}
		return Result{Stdout: stdout.String(), Stderr: out, ExitCode: code}, nil
	}

	return Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: 0}, nil
}
