// Package console adapts a reader and writer pair to the line-oriented
// interface the interactive session uses.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// Terminal reads answers line by line and prints prompts without a trailing
// newline. When input is piped rather than typed, the answer is echoed so
// transcripts of scripted runs stay readable.
type Terminal struct {
	in   *bufio.Reader
	out  io.Writer
	echo bool

	mu sync.Mutex
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:   bufio.NewReader(in),
		out:  out,
		echo: !interactive(in),
	}
}

// ReadLine shows prompt and returns the next line without its line ending.
// A final line without a newline is still returned; io.EOF follows on the
// next call.
func (t *Terminal) ReadLine(prompt string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prompt != "" {
		if _, err := io.WriteString(t.out, prompt); err != nil {
			return "", err
		}
	}

	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) && prompt != "" {
			_, _ = io.WriteString(t.out, "\n")
		}
		return "", err
	}

	line = strings.TrimRight(line, "\r\n")
	if t.echo {
		if _, err := fmt.Fprintln(t.out, line); err != nil {
			return "", err
		}
	}
	return line, nil
}

func (t *Terminal) WriteLine(line string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := fmt.Fprintln(t.out, line)
	return err
}

func interactive(r io.Reader) bool {
	file, ok := r.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
