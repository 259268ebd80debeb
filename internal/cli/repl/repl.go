package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultPrompt is printed before each line.
const DefaultPrompt = "claimledger> "

// Runner executes one parsed command line.
type Runner func(args []string) error

// Config configures a REPL.
type Config struct {
	Input       io.Reader
	Output      io.Writer
	Prompt      string
	HistoryFile string   // empty keeps history in memory only
	Commands    []string // completion candidates, e.g. "claim get"
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    string
	run       Runner
	completer *Completer
	history   *History
}

// New creates a REPL that hands each line to run.
func New(cfg Config, run Runner) *REPL {
	if cfg.Input == nil {
		cfg.Input = os.Stdin
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	return &REPL{
		input:     cfg.Input,
		output:    cfg.Output,
		prompt:    cfg.Prompt,
		run:       run,
		completer: NewCompleter(append(cfg.Commands, builtins...)),
		history:   NewHistory(cfg.HistoryFile),
	}
}

var builtins = []string{"history", "exit", "quit"}

// Run starts the REPL loop. It returns on exit, quit or end of input,
// after saving the history.
func (r *REPL) Run() (err error) {
	if err := r.history.Load(); err != nil {
		fmt.Fprintf(r.output, "warning: history not loaded: %v\n", err)
	}
	defer func() {
		if saveErr := r.history.Save(); saveErr != nil && err == nil {
			err = saveErr
		}
	}()

	reader := bufio.NewReader(r.input)
	for {
		fmt.Fprint(r.output, r.prompt)

		line, readErr := reader.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return readErr
		}
		line = strings.TrimSpace(line)

		if line != "" {
			if done := r.handle(line); done {
				return nil
			}
		}

		if readErr == io.EOF {
			fmt.Fprintln(r.output)
			return nil
		}
	}
}

// handle processes one non-empty line and reports whether the loop should end.
func (r *REPL) handle(line string) bool {
	r.history.Add(line)

	switch {
	case line == "exit" || line == "quit":
		return true
	case line == "history":
		for i, entry := range r.history.Entries() {
			fmt.Fprintf(r.output, "%4d  %s\n", i+1, entry)
		}
		return false
	case strings.HasSuffix(line, "?"):
		prefix := strings.TrimSpace(strings.TrimSuffix(line, "?"))
		for _, s := range r.completer.Complete(prefix) {
			fmt.Fprintln(r.output, s)
		}
		return false
	}

	args, err := SplitArgs(line)
	if err == nil {
		err = r.run(args)
	}
	if err != nil {
		fmt.Fprintf(r.output, "Error: %v\n", err)
	}
	return false
}

// SplitArgs splits a line into arguments. Single and double quotes group
// words and a backslash escapes the next character outside single quotes.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inArg   bool
		quote   rune
		escaped bool
	)

	for _, ch := range line {
		switch {
		case escaped:
			cur.WriteRune(ch)
			escaped = false
		case ch == '\\' && quote != '\'':
			escaped = true
			inArg = true
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				cur.WriteRune(ch)
			}
		case ch == '"' || ch == '\'':
			quote = ch
			inArg = true
		case ch == ' ' || ch == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(ch)
			inArg = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, fmt.Errorf("trailing backslash")
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}
