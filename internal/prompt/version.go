package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/oshokin/var-packager/internal/domain/release"
)

// VersionPrompt is printed before reading the version interactively.
const VersionPrompt = "var version: "

// ErrNoInput is returned when standard input closes before a version is entered.
var ErrNoInput = errors.New("no version entered")

// Resolver turns the optional version argument into a release.Version.
type Resolver struct {
	// In is read when no argument is supplied.
	In io.Reader
	// Out receives the prompt text.
	Out io.Writer
	// Interactive controls whether the prompt text is printed.
	Interactive bool
}

// NewStdioResolver reads from os.Stdin and prompts on out when stdin is a terminal.
func NewStdioResolver(out io.Writer) *Resolver {
	return &Resolver{
		In:          os.Stdin,
		Out:         out,
		Interactive: term.IsTerminal(int(os.Stdin.Fd())), //nolint:gosec // Fd fits into int on supported platforms.
	}
}

// Resolve parses args[0] when present, otherwise prompts for one line.
func (r *Resolver) Resolve(args []string) (release.Version, error) {
	if len(args) > 0 {
		return release.ParseVersion(args[0])
	}

	if r.Interactive && r.Out != nil {
		if _, err := io.WriteString(r.Out, VersionPrompt); err != nil {
			return 0, fmt.Errorf("write prompt: %w", err)
		}
	}

	line, err := bufio.NewReader(r.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("read version: %w", err)
	}

	if errors.Is(err, io.EOF) && line == "" {
		return 0, ErrNoInput
	}

	return release.ParseVersion(line)
}
