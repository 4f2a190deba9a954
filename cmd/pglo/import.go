package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	largeobjects "github.com/frerich/pg-large-objects"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a file (or stdin) into a new large object",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var src io.Reader = os.Stdin
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			src = f
		}

		bufferSize, _ := cmd.Flags().GetInt("buffer-size")

		oid, err := largeobjects.Import(cmd.Context(), store, src,
			largeobjects.WithTransferBufferSize(bufferSize),
			largeobjects.WithTransferLogger(logger))
		if err != nil {
			logger.Error("Import failed: %v", err)
			return err
		}

		fmt.Println(oid)
		return nil
	},
}

func init() {
	importCmd.Flags().Int("buffer-size", largeobjects.DefaultTransferBufferSize, "chunk size in bytes")
	rootCmd.AddCommand(importCmd)
}
