// Package rollback provides the rollback command, which reverses a
// previously applied batch (or one record/track within it).
package rollback

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tunevault/tunevault/internal/conf"
	"github.com/tunevault/tunevault/internal/ledger"
	"github.com/tunevault/tunevault/internal/organizer"
	"github.com/tunevault/tunevault/internal/store"
)

// Command creates the rollback command: tunevault rollback <batch-id> [--record id | --track path].
func Command(settings *conf.Settings) *cobra.Command {
	var recordID uint64
	var trackPath string

	cmd := &cobra.Command{
		Use:   "rollback [batch-id]",
		Short: "Reverse a batch's moves, restoring original paths and bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID := args[0]

			st, err := store.Open(settings)
			if err != nil {
				return fmt.Errorf("rollback: %w", err)
			}
			defer st.Close()

			org := organizer.New(settings, ledger.New(st), nil)

			switch {
			case trackPath != "":
				state, err := org.RollbackTrack(batchID, trackPath)
				if err != nil {
					return err
				}
				fmt.Printf("track %s: %s\n", trackPath, state)
			case recordID != 0:
				state, err := org.RollbackRecord(batchID, recordID)
				if err != nil {
					return err
				}
				fmt.Printf("record %d: %s\n", recordID, state)
			default:
				report, err := org.RollbackBatch(batchID)
				if err != nil {
					return err
				}
				fmt.Printf("reversed=%d broken=%d\n", len(report.Reversed), len(report.Broken))
				for _, id := range report.Broken {
					fmt.Printf("broken record %d: current path missing, manual recovery needed\n", id)
				}
			}
			return nil
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cmd.Flags().Uint64Var(&recordID, "record", 0, "Reverse a single ledger record by id")
	cmd.Flags().StringVar(&trackPath, "track", "", "Reverse the most recent move for a single source/current path")

	return cmd
}
