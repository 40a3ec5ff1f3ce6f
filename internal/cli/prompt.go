package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// IsInteractive checks if stdin is a terminal (not piped)
func IsInteractive() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// Prompt asks for a value on w and reads one line from r
func Prompt(r io.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprintf(w, "Enter %s: ", label)
	value, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(err == io.EOF && value != "") {
		return "", fmt.Errorf("failed to read %s: %w", label, err)
	}
	return strings.TrimSpace(value), nil
}
