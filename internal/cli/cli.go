// Package cli implements remoctl, the admin command line of the reps
// directory:
//
//	remoctl migrate up|down|status   move the schema
//	remoctl user create ...          register a user with profile and groups
//
// Commands are built by NewRootCmd instead of package globals so tests can
// run them in-process with their own output buffers.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/remo/internal/config"
)

type rootOptions struct {
	dbPath   string
	logLevel string
}

// NewRootCmd builds the remoctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "remoctl",
		Short: "Administer the Reps directory",
		Long:  `remoctl migrates the Reps database and creates accounts without going through the HTTP API.`,
		Example: `  remoctl migrate status
  remoctl --db data/remo.db migrate up
  remoctl user create --username zig --email zig@example.com \
    --mozillians-url https://mozillians.org/u/zig --group Rep`,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	defaultDB := os.Getenv("DB_PATH")
	if defaultDB == "" {
		defaultDB = config.DefaultDBPath
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", defaultDB, "Path to the SQLite database (env DB_PATH)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newUserCmd(opts))
	return root
}

// Execute runs remoctl with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// logger writes to the command's stderr at the requested level.
func (o *rootOptions) logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(o.logLevel))); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", o.logLevel, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}
