package control

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformedCommand is wrapped by every parse failure.
	ErrMalformedCommand = errors.New("malformed rate limit command")

	// ErrDisabled is returned when the rate limit table could not be
	// allocated at startup.
	ErrDisabled = errors.New("uid throttling disabled")
)

// Command is a parsed "<uid> <rate>" request.
type Command struct {
	UID  int64
	Rate int64
}

// IsGlobalReset reports whether the command disables every tracked uid.
func (c Command) IsGlobalReset() bool {
	return c.UID < 0
}

// String returns the command in wire form.
func (c Command) String() string {
	return fmt.Sprintf("%d %d", c.UID, c.Rate)
}

// CommandError describes why a command was rejected.
type CommandError struct {
	Input  string
	Reason string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("invalid command %q: %s", e.Input, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return ErrMalformedCommand
}

// ParseCommand parses "<uid> <rate>". The first two whitespace-separated
// fields must be base-10 integers; anything after them is ignored.
func ParseCommand(text string) (Command, error) {
	input := strings.TrimSpace(text)
	fields := strings.Fields(input)
	if len(fields) < 2 {
		return Command{}, &CommandError{Input: input, Reason: `expected "<uid> <rate>"`}
	}

	uid, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Command{}, &CommandError{Input: input, Reason: fmt.Sprintf("uid %q is not an integer", fields[0])}
	}

	rate, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Command{}, &CommandError{Input: input, Reason: fmt.Sprintf("rate %q is not an integer", fields[1])}
	}

	return Command{UID: uid, Rate: rate}, nil
}
