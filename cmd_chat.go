package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"tanyabot/agent"
	"tanyabot/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var chatUser string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bot in the terminal",
	Long: `Talk to the bot in the terminal. Each line is one message; lines starting
with a slash are commands, e.g. /help or /feedback ya. /quit or end of input stops.`,
	Args: cobra.NoArgs,
	RunE: runChatCmd,
}

func init() {
	chatCmd.Flags().StringVar(&chatUser, "user", "terminal", "user id the messages are sent as")
}

func runChatCmd(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer config.Cleanup()

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return runChat(cmd.Context(), a.agent, chatUser, os.Stdin, cmd.OutOrStdout(), logger)
}

// terminalTransport prints replies; the voice rendition is shown as a marked line.
type terminalTransport struct {
	out io.Writer
}

func (t terminalTransport) SendText(_ context.Context, _, _ string, text string) error {
	_, err := fmt.Fprintf(t.out, "bot> %s\n", text)
	return err
}

func (t terminalTransport) SendVoice(_ context.Context, _, _ string, text string) error {
	_, err := fmt.Fprintf(t.out, "     (suara) %s\n", text)
	return err
}

// runChat reads messages from in until EOF or /quit, all in one session.
func runChat(ctx context.Context, ag *agent.Agent, userID string, in io.Reader, out io.Writer, logger *zap.Logger) error {
	sessionID := uuid.NewString()
	tr := terminalTransport{out: out}
	logger.Debug("Terminal chat started", zap.String("session_id", sessionID), zap.String("user_id", userID))

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())

		if rest, ok := strings.CutPrefix(line, "/"); ok {
			name, args, _ := strings.Cut(rest, " ")
			if name == "quit" {
				return nil
			}
			reply := ag.HandleCommand(ctx, sessionID, userID, name, args)
			for _, text := range reply.Texts {
				if err := tr.SendText(ctx, sessionID, userID, text); err != nil {
					return err
				}
			}
			if reply.Voice != "" {
				if err := tr.SendVoice(ctx, sessionID, userID, reply.Voice); err != nil {
					return err
				}
			}
			continue
		}

		ag.HandleMessage(ctx, agent.Message{SessionID: sessionID, UserID: userID, Text: line}, tr)
	}
	return scanner.Err()
}
