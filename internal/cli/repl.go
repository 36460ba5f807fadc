package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-admin-agent/internal/agent"
	"github.com/noah-isme/campus-admin-agent/internal/tools"
)

const (
	prompt        = "\nEnter your query (or 'quit' to exit): "
	maxInputBytes = 64 * 1024
)

var groupTitles = map[string]string{
	tools.GroupStudentManagement: "Student Management",
	tools.GroupCampusAnalytics:   "Analytics",
	tools.GroupCampusInfo:        "Campus Info",
	tools.GroupNotifications:     "Notifications",
}

var groupOrder = []string{
	tools.GroupStudentManagement,
	tools.GroupCampusAnalytics,
	tools.GroupCampusInfo,
	tools.GroupNotifications,
}

// Asker answers one utterance. agent.Session satisfies it.
type Asker interface {
	Ask(ctx context.Context, utterance string) (agent.Reply, error)
}

// REPL is the interactive command-line loop.
type REPL struct {
	asker  Asker
	tools  []tools.Tool
	logger zerolog.Logger
}

// New constructs a REPL that advertises the given tools in its banner.
func New(asker Asker, available []tools.Tool, logger zerolog.Logger) *REPL {
	return &REPL{
		asker:  asker,
		tools:  available,
		logger: logger.With().Str("component", "cli").Logger(),
	}
}

// Run reads utterances from in until quit, EOF or ctx cancellation. A failed
// turn is reported on out and the loop continues.
func (r *REPL) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	r.banner(out)

	readCtx, stop := context.WithCancel(ctx)
	defer stop()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 4096), maxInputBytes)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-readCtx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(out, prompt)

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(out, "\nGoodbye!")
			select {
			case err := <-readErr:
				return err
			default:
				return nil
			}
		}

		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}
		if isQuit(query) {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		reply, err := r.asker.Ask(ctx, query)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(out)
				return nil
			}
			r.logger.Error().Err(err).Msg("query failed")
			fmt.Fprintf(out, "\nError: %v\n", err)
			continue
		}

		fmt.Fprintf(out, "\nAssistant: %s\n", reply.Text)
	}
}

func (r *REPL) banner(out io.Writer) {
	rule := strings.Repeat("=", 50)
	fmt.Fprintln(out, "Campus Admin Assistant")
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "Available functions:")

	byGroup := map[string][]string{}
	for _, tool := range r.tools {
		byGroup[tool.Group] = append(byGroup[tool.Group], tool.Name)
	}
	for _, group := range groupOrder {
		names := byGroup[group]
		if len(names) == 0 {
			continue
		}
		fmt.Fprintf(out, "- %s: %s\n", groupTitles[group], strings.Join(names, ", "))
	}
	fmt.Fprintln(out, rule)
}

func isQuit(query string) bool {
	switch strings.ToLower(query) {
	case "quit", "exit", "q":
		return true
	default:
		return false
	}
}
