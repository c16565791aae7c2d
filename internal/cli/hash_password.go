package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/tenant"
	"github.com/AtRiskMedia/consent-banner-go/pkg/config"
)

func newHashPasswordCmd() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Hash a dashboard admin password",
		Long: `Print the bcrypt hash for ADMIN_PASSWORD_HASH. The password is read from stdin when
no argument is given. With --tenant the hash is written into that tenant's env.json.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := ""
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			hash, err := security.HashPassword(password)
			if err != nil {
				return err
			}

			if tenantID == "" {
				fmt.Fprintln(cmd.OutOrStdout(), hash)
				return nil
			}

			cfg, err := tenant.LoadTenantConfig(config.DataDir, tenantID)
			if err != nil {
				return err
			}
			cfg.AdminPasswordHash = hash
			if err := tenant.SaveTenantConfig(config.DataDir, cfg); err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Info("admin password updated", "tenant", tenantID)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "store the hash in this tenant's env.json")
	return cmd
}
