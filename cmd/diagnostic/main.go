// File: cmd/diagnostic/main.go
package main

import (
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-docchat/internal/config"
)

var (
	rootCmd = &cobra.Command{
		Use:   "diagnostic",
		Short: "Probes the model endpoint and the vector index the chat server depends on",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			return err
		},
		SilenceUsage: true,
	}
	llmCmd = &cobra.Command{
		Use:   "llm [prompt]",
		Short: "Runs one completion and one streamed completion against CHAT_MODEL",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLLMDiagnostic,
	}
	retrieverCmd = &cobra.Command{
		Use:   "retriever [query]",
		Short: "Measures embedding and scoped vector query latency",
		Long:  `Embeds the query once, then runs it against the configured vector index several times restricted to one chat and user.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRetrieverDiagnostic,
	}

	cfg     *config.Config
	timeout time.Duration
	runs    int
	topK    int
	chatID  string
	userID  string
)

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "Deadline for the whole diagnostic.")

	rootCmd.AddCommand(llmCmd)

	rootCmd.AddCommand(retrieverCmd)
	retrieverCmd.Flags().IntVarP(&runs, "runs", "n", 5, "Number of timed queries.")
	retrieverCmd.Flags().IntVarP(&topK, "top-k", "k", 10, "Chunks requested per query.")
	retrieverCmd.Flags().StringVar(&chatID, "chat", "", "Chat id to scope the query to.")
	retrieverCmd.Flags().StringVar(&userID, "user", "", "User id to scope the query to.")
	_ = retrieverCmd.MarkFlagRequired("chat")
	_ = retrieverCmd.MarkFlagRequired("user")
}

func main() {
	log.SetFlags(log.LstdFlags)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
