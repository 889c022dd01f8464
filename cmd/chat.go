package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"cropadvisor/models"
	"cropadvisor/services"
)

var chatLang string

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatLang, "lang", "en", "conversation language: en, hi or mr")
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the crop advisory chatbot in the terminal",
	Long: `Start an interactive chat session. The bot asks for state, district, month and,
optionally, soil test values, then recommends a crop. Type "exit" to quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), loadConfig(), appOptions{knowledge: true})
		if err != nil {
			return err
		}
		defer a.close()

		return runChat(cmd.Context(), a.chatbot, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func runChat(ctx context.Context, bot *services.Chatbot, in io.Reader, out io.Writer) error {
	sessionID := uuid.NewString()
	defer bot.EndSession(sessionID)

	fmt.Fprintln(out, `Say hello to start. Type "exit" to quit.`)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "exit", "quit":
			return nil
		}

		resp, err := bot.ProcessMessage(ctx, models.ChatRequest{
			BaseRequest: models.BaseRequest{SessionID: sessionID},
			Message:     line,
			Language:    chatLang,
		})
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		printChatReply(out, resp)
	}
}

func printChatReply(out io.Writer, resp *models.ChatResponse) {
	fmt.Fprintln(out, resp.Message)
	if resp.NextStep != "" {
		fmt.Fprintln(out, resp.NextStep)
	}
	for i, opt := range resp.Options {
		fmt.Fprintf(out, "  %d. %s\n", i+1, opt)
	}
	for _, tip := range resp.Tips {
		fmt.Fprintf(out, "  (source: %s)\n", tip.Source)
	}
}
