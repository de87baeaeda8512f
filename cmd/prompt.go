package cmd

import (
	"fmt"
	"os"

	"golang.org/x/term"

	apperrors "github.com/manav03panchal/revise/internal/errors"
)

// confirm asks a yes/no question and reads a single key. It refuses to
// guess when stdin is not a terminal.
func confirm(question string) (bool, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return false, apperrors.NewValidationError("force", "",
			"confirmation required", "Pass --force to run without a terminal.")
	}

	ctx.Formatter.Printf("%s [y/N] ", question)

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	buf := make([]byte, 1)
	_, err = os.Stdin.Read(buf)
	_ = term.Restore(fd, oldState)
	if err != nil {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	yes := buf[0] == 'y' || buf[0] == 'Y'
	if yes {
		ctx.Formatter.Println("y")
	} else {
		ctx.Formatter.Println("n")
	}
	return yes, nil
}
