// Package organize provides the organize command, which runs a batch
// through the pipeline orchestrator.
package organize

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tunevault/tunevault/internal/conf"
	"github.com/tunevault/tunevault/internal/pipeline"
)

// Command creates the organize command: tunevault organize [dirs...].
func Command(settings *conf.Settings) *cobra.Command {
	var batchID string

	cmd := &cobra.Command{
		Use:   "organize [path...]",
		Short: "Identify and organize audio files under one or more directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := settings.Validate(); err != nil {
				return err
			}

			p, st, err := pipeline.Build(settings)
			if err != nil {
				return fmt.Errorf("organize: %w", err)
			}
			defer st.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
			go func() {
				sig := <-sigChan
				fmt.Printf("\nreceived signal %v, cancelling batch...\n", sig)
				p.Cancel()
			}()
			defer signal.Stop(sigChan)

			p.Subscribe(func(ev pipeline.ProgressEvent) {
				fmt.Printf("[%s] %d/%d\n", ev.Phase, ev.Completed, ev.Total)
			})

			if batchID == "" {
				batchID = newBatchID()
			}

			summary, err := p.RunBatch(ctx, batchID, args)
			if err != nil {
				return err
			}

			printSummary(summary)
			return nil
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cmd.Flags().StringVar(&batchID, "batch-id", "", "Resume an existing batch by id (default: a freshly generated one)")
	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().BoolVar(&settings.Batch.DryRun, "dry-run", false, "Preview moves without touching any files")
	cmd.Flags().IntVar(&settings.Batch.AutoApplyThreshold, "auto-apply-threshold", settings.Batch.AutoApplyThreshold, "Minimum confidence score (0-100) that auto-applies a match")
	cmd.Flags().IntVar(&settings.Batch.ReviewThreshold, "review-threshold", settings.Batch.ReviewThreshold, "Minimum confidence score (0-100) that queues a match for review")
	cmd.Flags().BoolVar(&settings.Batch.KeepOriginals, "keep-originals", settings.Batch.KeepOriginals, "Back up the original file before writing tags")
	cmd.Flags().StringVar(&settings.Batch.LibraryRoot, "library-root", settings.Batch.LibraryRoot, "Destination root for organized files")
	cmd.Flags().StringVar(&settings.Batch.BackupRoot, "backup-root", settings.Batch.BackupRoot, "Root for pre-mutation backups when keep-originals is set")

	return viper.BindPFlags(cmd.Flags())
}

func newBatchID() string {
	return uuid.NewString()
}

func printSummary(s pipeline.Summary) {
	if s.Cancelled {
		fmt.Println("batch cancelled")
	}
	fmt.Printf("scanned=%d skipped=%d applied=%d review=%d manual=%d unmatched=%d failed=%d\n",
		s.Scanned, s.Skipped, s.Applied, s.Review, s.Manual, s.Unmatched, s.Failed)
	if s.ToolMissingAdvisory {
		fmt.Println("warning: fingerprint tool was not found; resolution fell back to tag-based matching")
	}
	for cat, n := range s.ErrorsByCategory {
		fmt.Printf("errors[%s]=%d\n", cat, n)
	}
}
