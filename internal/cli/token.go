package cli

import (
	"fmt"
	"time"

	"escape-room-service/internal/auth"
	"escape-room-service/internal/domain"
	"github.com/spf13/cobra"
)

// NewTokenCmd mints a development JWT accepted by the jwt identity provider.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		uid   string
		name  string
		phone string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed identity token for local play",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwtSecret not configured")
			}
			token, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)).Issue(domain.Identity{
				UID:         uid,
				DisplayName: name,
				PhoneNumber: phone,
			}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "user id (required)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}
