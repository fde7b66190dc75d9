package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidInput marks user input that was rejected. It never ends the
// session; the caller substitutes a default or re-prompts.
var ErrInvalidInput = errors.New("invalid input")

// ParseDuration turns the user's answer into a recording length. Empty input
// silently selects def. Anything else that is not a whole number in
// (0, maxSeconds] also yields def, together with an error wrapping ErrInvalidInput
// so the caller can warn. Out-of-range values are discarded, not clamped.
func ParseDuration(input string, def, maxSeconds int) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return def, nil
	}

	seconds, err := strconv.Atoi(input)
	if err != nil || seconds <= 0 || seconds > maxSeconds {
		return def, fmt.Errorf("%w: duration %q is not a whole number of seconds between 1 and %d", ErrInvalidInput, input, maxSeconds)
	}

	return seconds, nil
}

// CleanPath strips surrounding whitespace and one pair of double quotes, as
// left behind by drag-and-drop into a terminal.
func CleanPath(input string) string {
	path := strings.TrimSpace(input)
	if len(path) >= 2 && strings.HasPrefix(path, `"`) && strings.HasSuffix(path, `"`) {
		path = strings.TrimSpace(path[1 : len(path)-1])
	}
	return path
}
