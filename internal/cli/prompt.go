package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the user for missing command input.
type Prompter interface {
	Line(label string) (string, error)
	Secret(label string) (string, error)
}

type termPrompter struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

// NewPrompter reads answers from in and writes labels to out. Secrets are
// read without echo when in is a terminal.
func NewPrompter(in io.Reader, out io.Writer) Prompter {
	return &termPrompter{in: in, out: out, reader: bufio.NewReader(in)}
}

func (p *termPrompter) Line(label string) (string, error) {
	//nolint:errcheck
	fmt.Fprintf(p.out, "%s: ", label)
	return p.readLine()
}

func (p *termPrompter) Secret(label string) (string, error) {
	//nolint:errcheck
	fmt.Fprintf(p.out, "%s: ", label)

	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		//nolint:errcheck
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
		}
		return string(b), nil
	}
	return p.readLine()
}

func (p *termPrompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errors.New("no input provided")
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
