package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/banner"
	"github.com/AtRiskMedia/consent-banner-go/internal/generator"
)

type generateOpts struct {
	file     string
	widgetID string
	output   string
	hosted   bool
	baseURL  string
	tenantID string
}

func newGenerateCmd() *cobra.Command {
	var opts generateOpts

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print embed code for a banner customization",
		Long: `Generate the standalone snippet for a customization file. TOML is used for .toml
files and JSON otherwise; keys missing from the file keep their default values.

With --hosted the one-line script tag for a stored widget is printed instead.`,
		Example: `  consent-banner generate -f banner.toml > snippet.html
  consent-banner generate --hosted --widget-id 01J... --base-url https://consent.example`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "customization file (.toml or .json)")
	cmd.Flags().StringVar(&opts.widgetID, "widget-id", generator.DefaultWidgetID, "widget id written into the snippet")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&opts.hosted, "hosted", false, "print the hosted script tag")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "API origin for --hosted")
	cmd.Flags().StringVar(&opts.tenantID, "tenant", "", "tenant id for --hosted (multi-tenant servers)")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts generateOpts) error {
	logger := loggerFromContext(cmd.Context())

	var snip generator.Snippet
	if opts.hosted {
		if opts.baseURL == "" || opts.widgetID == "" || opts.widgetID == generator.DefaultWidgetID {
			return fmt.Errorf("--hosted needs --base-url and --widget-id")
		}
		snip = generator.Hosted(opts.baseURL, opts.widgetID, opts.tenantID)
	} else {
		if opts.file == "" {
			return fmt.Errorf("--file is required")
		}
		c, err := loadCustomization(opts.file, logger.Warn)
		if err != nil {
			return err
		}
		normalized, fixed := banner.Normalize(c)
		for _, field := range fixed {
			logger.Warn("field replaced with default", "field", field)
		}
		snip, err = generator.Generate(normalized, generator.Options{WidgetID: opts.widgetID})
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	if _, err := io.WriteString(out, snip.Source+"\n"); err != nil {
		return err
	}
	logger.Info("snippet generated", "kind", snip.Kind, "lines", snip.Lines)
	return nil
}

// loadCustomization decodes path on top of the defaults. Unknown TOML keys are reported
// through warn.
func loadCustomization(path string, warn func(msg any, keyvals ...any)) (banner.Customization, error) {
	c := banner.Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read customization: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.Decode(string(raw), &c)
		if err != nil {
			return c, fmt.Errorf("parse %s: %w", path, err)
		}
		for _, key := range md.Undecoded() {
			warn("unknown key ignored", "key", key.String())
		}
	default:
		if err := json.Unmarshal(raw, &c); err != nil {
			return c, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return c, nil
}
