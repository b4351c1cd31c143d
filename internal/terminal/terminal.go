// Package terminal provides helpers for verifying that the broker is talking
// to a genuine interactive terminal and for reading secret input with echo
// disabled. The credential prompt refuses redirected or piped input: feeding
// a password through automation has to be an explicit design decision, not
// something that happens because stdin was a file.
package terminal

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// Channel is the interactive channel used for the credential prompt.
type Channel interface {
	// IsInteractive reports whether the prompt channel is a real terminal.
	IsInteractive() bool
	// ReadSecret writes the prompt and reads one line of secret input with
	// echo disabled. The returned bytes are owned by the caller, who must
	// zero them as soon as they are no longer needed.
	ReadSecret(prompt string) ([]byte, error)
}

// TTYChannel prompts on the process's stdin/stderr pair.
type TTYChannel struct {
	input  *os.File
	output *os.File
}

// NewTTYChannel returns a channel that prompts on stdin and writes the
// prompt text to stderr. The prompt never goes to stdout: stdout may be
// redirected into a log or pipeline, and the prompt would leak there.
func NewTTYChannel() *TTYChannel {
	return &TTYChannel{input: os.Stdin, output: os.Stderr}
}

// IsInteractive reports whether the input side of the channel is a terminal.
func (c *TTYChannel) IsInteractive() bool {
	return term.IsTerminal(int(c.input.Fd()))
}

// ReadSecret prompts and reads a secret without echoing it.
func (c *TTYChannel) ReadSecret(prompt string) ([]byte, error) {
	fd := int(c.input.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("input is not a terminal")
	}

	fmt.Fprint(c.output, prompt)
	line, err := term.ReadPassword(fd)
	fmt.Fprintln(c.output)
	if err != nil {
		return nil, fmt.Errorf("reading secret: %w", err)
	}
	return line, nil
}
