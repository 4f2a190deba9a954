// Root of command-line argument parsing, based on the standard cobra
// template (https://github.com/spf13/cobra).
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/frerich/pg-large-objects/backend/postgres"
	"github.com/frerich/pg-large-objects/log"
)

var (
	logger *log.Logger
	store  *postgres.Store
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pglo",
	Short: "Import, export and manage PostgreSQL large objects",
	Long: `pglo streams files in and out of PostgreSQL large objects with bounded
memory, and removes or resizes existing objects.

The database connection string is taken from --database-url or the
PGLO_DATABASE_URL environment variable.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := log.Info
		if viper.GetBool("verbose") {
			level = log.Debug
		}
		logger = log.NewLogger("pglo", level, "", false)

		url := viper.GetString("database-url")
		if url == "" {
			return fmt.Errorf("no database URL configured (--database-url or PGLO_DATABASE_URL)")
		}

		var err error
		store, err = postgres.NewStore(cmd.Context(), url)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			store.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main() exactly once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug output")

	viper.SetEnvPrefix("pglo")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.BindPFlag("database-url", rootCmd.PersistentFlags().Lookup("database-url"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func parseOID(arg string) (uint32, error) {
	var oid uint32
	if _, err := fmt.Sscanf(arg, "%d", &oid); err != nil || oid == 0 {
		return 0, fmt.Errorf("invalid oid %q", arg)
	}
	return oid, nil
}
