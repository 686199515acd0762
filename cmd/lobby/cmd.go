package main

import (
	"log/slog"
	"os"

	"github.com/mossy-p/challenge-lobby/config"
	"github.com/mossy-p/challenge-lobby/internal/auth"
	"github.com/mossy-p/challenge-lobby/internal/service"
	"github.com/spf13/cobra"
)

func newCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "lobby",
		Short:         "Room lobby and game server for the challenge party game.",
		Args:          cobra.NoArgs,
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadEnvFile(envFile)
		},
	}

	pfs := cmd.PersistentFlags()
	pfs.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	config.Flags(pfs)

	cmd.AddCommand(newServeCmd(), newCreateAdminCmd())
	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("lobby v{{.Version}}\n")

	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the auto-start scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, newLogger(cfg))
		},
	}
}

// newCreateAdminCmd seeds or promotes the configured admin account and exits
func newCreateAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-admin",
		Short: "Create the admin account from ADMIN_USERNAME/ADMIN_EMAIL/ADMIN_PASSWORD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx := cmd.Context()

			st, err := openStores(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			users := service.NewUserService(st.users, auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL), logger)
			return users.EnsureAdmin(ctx, adminSeed(cfg))
		},
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return logger
}

func adminSeed(cfg *config.Config) service.AdminSeed {
	return service.AdminSeed{
		Username: cfg.Admin.Username,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	}
}
