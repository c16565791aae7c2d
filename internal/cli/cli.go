// Package cli implements the consent-banner command-line interface.
//
// # Commands
//
//   - serve: run the embed and dashboard API
//   - generate: print embed code for a customization file (TOML or JSON)
//   - hash-password: produce the bcrypt hash stored as ADMIN_PASSWORD_HASH
//
// All commands accept --verbose (-v). The charmbracelet logger travels through the
// command context.
package cli

import (
	"context"
	"fmt"
	"io"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// NewRootCommand builds the command tree. Logs go to stderr.
func NewRootCommand(stderr io.Writer) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "consent-banner",
		Short:        "Cookie consent banners with hosted and standalone embed code",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(withLogger(ctx, newLogger(stderr, level)))
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("consent-banner %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newServeCmd())
	root.AddCommand(newGenerateCmd())
	root.AddCommand(newHashPasswordCmd())

	return root
}

// Execute runs the CLI with ctx.
func Execute(ctx context.Context, stderr io.Writer) error {
	return NewRootCommand(stderr).ExecuteContext(ctx)
}
