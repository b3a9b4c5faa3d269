package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

const shellCommandName = "shell"

// execFn runs one shell line split into arguments.
type execFn func(ctx context.Context, args []string) error

// runREPL reads commands from in until EOF, "exit" or "quit". Every
// other line is passed to exec; its errors are reported and the loop goes
// on.
//
// The prompt shows the current status from statusFn. "help" lists the
// commands, "help CMD" describes one.
func runREPL(ctx context.Context, exec execFn, statusFn func() string, in *bufio.Reader, out io.Writer) {
	for {
		fmt.Fprintf(out, "backpack %s> ", statusFn())
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return
		}

		args, err := splitLine(strings.TrimRight(line, "\r\n"))
		if err != nil {
			fmt.Fprintln(out, "Error:", err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return

		case shellCommandName:
			fmt.Fprintln(out, "Already in the shell.")

		default:
			if err := exec(ctx, args); err != nil {
				fmt.Fprintln(out, "Error:", err)
			}
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// splitLine splits a shell line into words. Single and double quotes group
// words; a backslash escapes the next character outside single quotes.
func splitLine(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped, inWord = true, true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote, inWord = r, true
		case r == ' ' || r == '\t':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 || escaped {
		return nil, errors.New("unterminated quote or escape")
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}

func newShellCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   shellCommandName,
		Short: "Interactive shell; the server is probed in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a := opts.app
			if a.isLoggedIn(ctx) {
				if err := a.ensureLoaded(ctx); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
				}
			}
			go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

			exec := func(ctx context.Context, args []string) error {
				sub := &cobra.Command{Use: "backpack", SilenceUsage: true, SilenceErrors: true}
				addCommands(sub, opts)
				sub.SetArgs(args)
				sub.SetIn(a.reader)
				sub.SetOut(cmd.OutOrStdout())
				sub.SetErr(cmd.ErrOrStderr())
				return sub.ExecuteContext(ctx)
			}

			runREPL(ctx, exec, a.promptStatus, a.reader, cmd.OutOrStdout())
			return nil
		},
	}
}

// promptStatus is shown in the shell prompt.
func (a *App) promptStatus() string {
	st := a.store.State()
	if !st.Loaded {
		return "(not loaded)"
	}
	if st.ToSync > 0 {
		return fmt.Sprintf("(%s, %d to sync)", a.Mode(), st.ToSync)
	}
	return fmt.Sprintf("(%s)", a.Mode())
}
