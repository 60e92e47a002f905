package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"w2s.io/advisor/internal/client"
	"w2s.io/advisor/internal/config"
	"w2s.io/advisor/internal/conversation"
	"w2s.io/advisor/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "w2s-chat",
	Short: "Chat with the Where 2 Start? business advisor",
	Long: `w2s-chat opens a chat session against a running advisor server.

Examples:
  w2s-chat                               # start a new conversation
  w2s-chat --conversation conv_1717000000000
  w2s-chat --api http://localhost:3001/api --ref 7

Inside a session:
  /new    start a new conversation
  /save   save or unsave the current conversation
  /quit   leave`,
	SilenceUsage: true,
	RunE:         runChat,
}

func init() {
	rootCmd.Flags().String("api", "", "Record API base URL (defaults to W2S_API_URL)")
	rootCmd.Flags().StringP("conversation", "c", "", "Resume an existing conversation id")
	rootCmd.Flags().Int64("ref", 0, "Referring user id, recorded during onboarding")
	rootCmd.Flags().Duration("timeout", 90*time.Second, "Per-request timeout")
	rootCmd.Flags().String("log-level", "warn", "Log level")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, _ := cmd.Flags().GetString("log-level")
	if _, err := logger.NewWithWriter(level, "console", cmd.ErrOrStderr()); err != nil {
		return err
	}

	apiURL, _ := cmd.Flags().GetString("api")
	if apiURL == "" {
		apiURL = cfg.APIBaseURL
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	conversationID, _ := cmd.Flags().GetString("conversation")
	ref, _ := cmd.Flags().GetInt64("ref")

	c := client.New(apiURL, timeout)
	s := newSession(conversation.NewController(c, c), conversation.NewOnboarding(c), cmd.InOrStdin(), cmd.OutOrStdout())
	if ref > 0 {
		s.referredBy = &ref
	}
	return s.run(cmd.Context(), conversationID)
}
