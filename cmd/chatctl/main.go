package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Flags
	origin      string
	mode        string
	token       string
	tokenFile   string
	cacheDir    string
	metricsAddr string
	plain       bool
	verbose     bool
	resume      string
	timeout     time.Duration

	rootCmd = &cobra.Command{
		Use:           "chatctl",
		Short:         "Terminal client for the CRM realtime chat",
		Long:          "chatctl talks to the agent service over its streaming websocket and REST history API.",
		RunE:          runChat,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	queryCmd = &cobra.Command{
		Use:   "query [message]",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runQuery,
	}

	sessionsCmd = &cobra.Command{
		Use:   "sessions",
		Short: "Session history commands",
	}

	listSessionsCmd = &cobra.Command{
		Use:   "list",
		Short: "List sessions of the current mode",
		Args:  cobra.NoArgs,
		RunE:  runListSessions,
	}

	showSessionCmd = &cobra.Command{
		Use:   "show [session-id]",
		Short: "Print the transcript of a session",
		Args:  cobra.ExactArgs(1),
		RunE:  runShowSession,
	}

	deleteSessionCmd = &cobra.Command{
		Use:   "delete [session-id]",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE:  runDeleteSession,
	}

	listCmd = &cobra.Command{
		Use:   "list [resource]",
		Short: "List a platform resource (mentors, mentorados, assessments, tools, agents, llm-providers)",
		Args:  cobra.ExactArgs(1),
		RunE:  runListResource,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&origin, "origin", "", "API origin (default $CHAT_API_ORIGIN)")
	rootCmd.PersistentFlags().StringVarP(&mode, "mode", "m", "", "Conversation mode: chat or diagnostico (default $CHAT_MODE)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token (default $CHAT_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&tokenFile, "token-file", "", "File holding the bearer token (default $CHAT_TOKEN_FILE)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Directory for the persistent list cache (default $CHAT_CACHE_DIR, in-memory when empty)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "Disable colours and styled markdown")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log connection diagnostics to stderr")

	rootCmd.Flags().StringVarP(&resume, "resume", "r", "", "Resume a session by id")
	queryCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Give up waiting for the reply after this long")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(listCmd)
	sessionsCmd.AddCommand(listSessionsCmd)
	sessionsCmd.AddCommand(showSessionCmd)
	sessionsCmd.AddCommand(deleteSessionCmd)
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
