package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// --- 1. Process Safety & Command Wrapping ---

// SafeCommand wraps a standard exec.Cmd with a buffer to catch Stderr of helper processes
// (image viewers) so a failed launch can report what the program said.
type SafeCommand struct {
	*exec.Cmd
	Stderr *bytes.Buffer
}

// NewSafeCommand initializes a command and attaches a buffer to its Stderr pipe
// It prepares the command for execution but does not start it.
func NewSafeCommand(name string, args ...string) *SafeCommand {
	cmd := exec.Command(name, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	return &SafeCommand{Cmd: cmd, Stderr: stderr}
}

// Logs returns whatever the process wrote to stderr, trimmed.
func (s *SafeCommand) Logs() string {
	if s == nil || s.Stderr == nil {
		return ""
	}
	return strings.TrimSpace(s.Stderr.String())
}

// CommandError carries the captured stderr of a failed SafeCommand up to the error box.
type CommandError struct {
	Name   string
	Err    error
	Stderr string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Wrap turns a SafeCommand failure into a *CommandError.
func (s *SafeCommand) Wrap(err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Name: s.Path, Err: err, Stderr: s.Logs()}
}

// --- 2. Error Reporting ---

// ShowError prints a formatted error box to w without exiting.
func ShowError(w io.Writer, context string, err error) {
	fmt.Fprintf(w, "\n---------------------------------------------------------\n")
	fmt.Fprintf(w, "🚨 FACEMARK ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(w, "DETAILS: %v\n", err)
	}

	// If a helper process failed and captured logs, print them.
	var cerr *CommandError
	if errors.As(err, &cerr) && cerr.Stderr != "" {
		fmt.Fprintf(w, "\nPROCESS LOGS (%s):\n%s\n", cerr.Name, cerr.Stderr)
	}
	fmt.Fprintf(w, "---------------------------------------------------------\n")
}

// Die is the unified exit strategy for facemark.
// Every failure exits with status 1.
func Die(context string, err error) {
	ShowError(os.Stderr, context, err)
	os.Exit(1)
}
