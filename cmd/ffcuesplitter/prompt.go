package main

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
)

const maxPromptAttempts = 3

// linePrompter asks on out and reads one answer per line from in.
type linePrompter struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
	out     io.Writer
}

func newLinePrompter(in io.Reader, out io.Writer) *linePrompter {
	return &linePrompter{scanner: bufio.NewScanner(in), out: out}
}

// ConfirmOverwrite returns true only for an explicit yes. An empty answer,
// end of input or repeated unrecognised answers decline.
func (p *linePrompter) ConfirmOverwrite(path string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for range maxPromptAttempts {
		fmt.Fprintf(p.out, "File %q already exists in %s. Overwrite? [y/N] ", filepath.Base(path), filepath.Dir(path))
		if !p.scanner.Scan() {
			fmt.Fprintln(p.out)
			if err := p.scanner.Err(); err != nil {
				return false, fmt.Errorf("read answer: %w", err)
			}
			return false, nil
		}
		switch strings.ToLower(strings.TrimSpace(p.scanner.Text())) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "Please answer y or n.")
	}
	return false, nil
}
