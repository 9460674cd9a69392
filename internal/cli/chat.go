package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const (
	searchPrefix = "/search "
	quitCommand  = "/quit"
)

func newChatCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Opens a chat session and reads messages from standard input.
Lines starting with "/search " run a document search inside the session.
"/quit" or end of input ends the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, root.client())
		},
	}
}

func runChat(cmd *cobra.Command, client *Client) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	sess, err := client.StartSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.EndSession(context.WithoutCancel(ctx), sess.ID) }()

	RenderTurns(out, sess.Conversation)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == quitCommand {
			break
		}
		if line == "" {
			continue
		}

		var ex Exchange
		if query, ok := strings.CutPrefix(line, searchPrefix); ok {
			ex, err = client.SearchInSession(ctx, sess.ID, strings.TrimSpace(query))
		} else {
			ex, err = client.Send(ctx, sess.ID, line)
		}
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), Describe(err))
			continue
		}

		// The user turn was already echoed by the terminal.
		if len(ex.Turns) > 0 {
			RenderTurns(out, ex.Turns[1:])
		}
		if ex.Degraded {
			fmt.Fprintln(out, "bot> (no reply)")
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
