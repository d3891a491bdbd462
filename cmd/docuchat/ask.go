package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/docuchat/internal/llm"
	"github.com/liliang-cn/docuchat/internal/notify"
	"github.com/liliang-cn/docuchat/internal/service"
)

var askCmd = &cobra.Command{
	Use:   "ask --file <document> [question]",
	Short: "Ask a question about a local document",
	Long: `Loads a local document, prints suggested starter questions and,
when a question is given, the answer. With --summary the document is
also summarized.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringP("file", "f", "", "document to load (required)")
	askCmd.Flags().String("mime", "", "document MIME type (detected when empty)")
	askCmd.Flags().Bool("summary", false, "print a summary of the document")
	_ = askCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	mimeType, _ := cmd.Flags().GetString("mime")
	summary, _ := cmd.Flags().GetBool("summary")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	provider, err := llm.NewProvider(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize llm provider: %w", err)
	}
	orchestrator := service.NewOrchestratorService(provider, cfg.LLM, logger)

	conv := service.NewConversation("cli", service.ConversationOptions{
		Loader:      service.NewIngestService(logger),
		Suggestions: service.NewSuggestionClient(orchestrator, logger),
		Answers:     service.NewAnswerClient(orchestrator, logger),
		Summaries:   service.NewSummaryClient(orchestrator, logger),
		Notifier:    notify.NewLogNotifier(logger),
		Logger:      logger,
	})
	defer conv.Close()

	out := cmd.OutOrStdout()

	// A failed suggestion call still leaves the document loaded.
	if err := conv.UploadDocumentFile(ctx, filepath.Base(path), data, mimeType); err != nil {
		if conv.Document() == nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}

	snap := conv.Snapshot()
	fmt.Fprintf(out, "Document: %s (%s, %d bytes", snap.Document.Filename, snap.Document.MIMEType, snap.Document.Size)
	if snap.Document.PageCount > 0 {
		fmt.Fprintf(out, ", %d pages", snap.Document.PageCount)
	}
	fmt.Fprintln(out, ")")

	if len(snap.Suggestions) > 0 {
		fmt.Fprintln(out, "\nSuggested questions:")
		for i, s := range snap.Suggestions {
			fmt.Fprintf(out, "  %d. %s\n", i+1, s)
		}
	}

	if len(args) == 1 {
		answer, err := conv.SubmitQuestion(ctx, args[0])
		if err != nil {
			return err
		}
		if answer == nil {
			return errors.New("no answer returned")
		}
		fmt.Fprintf(out, "\nQ: %s\nA: %s\n", args[0], answer.Text)
	}

	if summary {
		text, err := conv.Summarize(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nSummary:\n%s\n", text)
	}

	return nil
}
