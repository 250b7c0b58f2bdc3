// pkg/interaction/prompt.go

package interaction

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	cerr "github.com/cockroachdb/errors"
	"golang.org/x/term"
)

// NormalizeYesNoInput maps the accepted confirmation spellings to "y" or
// "n". Anything else comes back unchanged for the caller to reject.
func NormalizeYesNoInput(input string) string {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return "y"
	case "n", "no", "":
		return "n"
	default:
		return strings.ToLower(strings.TrimSpace(input))
	}
}

// ReadLine reads one trimmed line from r.
func ReadLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", cerr.Wrap(err, "read input")
	}
	return strings.TrimSpace(line), nil
}

// PromptYesNo asks for confirmation on stdin. Defaults to no: only an
// explicit yes proceeds.
func PromptYesNo(prompt string) (bool, error) {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := ReadLine(os.Stdin)
	if err != nil {
		return false, err
	}
	return NormalizeYesNoInput(line) == "y", nil
}

// PromptSecret reads a value without echoing it to the terminal.
func PromptSecret(prompt string) ([]byte, error) {
	fmt.Printf("%s: ", prompt)
	secret, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println("")
	if err != nil {
		return nil, cerr.Wrap(err, "read secret input")
	}
	return secret, nil
}
