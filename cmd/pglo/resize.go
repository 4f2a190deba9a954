package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	largeobjects "github.com/frerich/pg-large-objects"
	"github.com/frerich/pg-large-objects/data"
)

var resizeCmd = &cobra.Command{
	Use:   "resize <oid> <size>",
	Short: "Truncate or zero-extend a large object to an exact size",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		oid, err := parseOID(args[0])
		if err != nil {
			return err
		}

		var size int64
		if _, err := fmt.Sscanf(args[1], "%d", &size); err != nil || size < 0 {
			return fmt.Errorf("invalid size %q", args[1])
		}

		sess, err := store.Begin(cmd.Context())
		if err != nil {
			return err
		}

		committed := false
		defer func() {
			if !committed {
				sess.Rollback(context.WithoutCancel(cmd.Context()))
			}
		}()

		h, err := largeobjects.Open(cmd.Context(), sess, oid,
			largeobjects.WithMode(data.AccessModeReadWrite),
			largeobjects.WithLogger(logger))
		if err != nil {
			return err
		}

		if err := h.Resize(cmd.Context(), size); err != nil {
			return err
		}

		if err := h.Close(cmd.Context()); err != nil {
			return err
		}

		if err := sess.Commit(cmd.Context()); err != nil {
			return err
		}
		committed = true

		logger.Info("Resized oid %d to %d bytes", oid, size)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resizeCmd)
}
