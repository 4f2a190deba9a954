package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	largeobjects "github.com/frerich/pg-large-objects"
)

var exportCmd = &cobra.Command{
	Use:   "export <oid> [file]",
	Short: "Export a large object to a file (or stdout)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		oid, err := parseOID(args[0])
		if err != nil {
			return err
		}

		var dst io.Writer = os.Stdout
		if len(args) == 2 && args[1] != "-" {
			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			dst = f
		}

		bufferSize, _ := cmd.Flags().GetInt("buffer-size")

		if err := largeobjects.ExportTo(cmd.Context(), store, oid, dst,
			largeobjects.WithTransferBufferSize(bufferSize),
			largeobjects.WithTransferLogger(logger)); err != nil {
			logger.Error("Export failed: %v", err)
			return err
		}

		return nil
	},
}

func init() {
	exportCmd.Flags().Int("buffer-size", largeobjects.DefaultTransferBufferSize, "chunk size in bytes")
	rootCmd.AddCommand(exportCmd)
}
