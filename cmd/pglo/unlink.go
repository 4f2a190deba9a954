package main

import (
	"context"

	"github.com/spf13/cobra"

	largeobjects "github.com/frerich/pg-large-objects"
)

var unlinkCmd = &cobra.Command{
	Use:   "unlink <oid>...",
	Short: "Delete large objects and all their data",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := store.Begin(cmd.Context())
		if err != nil {
			return err
		}

		for _, arg := range args {
			oid, err := parseOID(arg)
			if err != nil {
				sess.Rollback(context.WithoutCancel(cmd.Context()))
				return err
			}

			if err := largeobjects.Remove(cmd.Context(), sess, oid); err != nil {
				logger.Error("Unlink failed for oid %d: %v", oid, err)
				sess.Rollback(context.WithoutCancel(cmd.Context()))
				return err
			}

			logger.Info("Unlinked oid %d", oid)
		}

		return sess.Commit(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(unlinkCmd)
}
