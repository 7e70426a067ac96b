package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rmcmillan34/edge-journal/internal/config"
	"github.com/rmcmillan34/edge-journal/internal/db"
	"github.com/rmcmillan34/edge-journal/internal/guardrail"
	"github.com/rmcmillan34/edge-journal/internal/logger"
	gormrepository "github.com/rmcmillan34/edge-journal/internal/repository/gorm"
	"github.com/rmcmillan34/edge-journal/internal/service"
)

func newScanCmd() *cobra.Command {
	var (
		cfgPath string
		envOnly bool
		userID  uint64
		from    string
		to      string
	)
	cmd := &cobra.Command{
		Use:     "scan",
		Short:   "Run a guardrail scan for one user against the configured database",
		Example: `  guardrailctl scan --user 1 --from 2025-10-01 --to 2025-10-31`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath, envOnly)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer log.Sync()

			loc := cfg.Guardrail.Location()
			var problems []string
			start, err := guardrail.ParseDay(strings.TrimSpace(from), loc)
			if err != nil {
				problems = append(problems, "--from must be YYYY-MM-DD")
			}
			end, err := guardrail.ParseDay(strings.TrimSpace(to), loc)
			if err != nil {
				problems = append(problems, "--to must be YYYY-MM-DD")
			}
			if len(problems) > 0 {
				return fmt.Errorf("%s", strings.Join(problems, "; "))
			}

			dbConn, err := db.Open(cfg.DB)
			if err != nil {
				return fmt.Errorf("db open: %w", err)
			}
			defer db.Close(dbConn)
			if cfg.DB.AutoMigrate {
				if err := db.AutoMigrate(dbConn); err != nil {
					return fmt.Errorf("auto-migrate: %w", err)
				}
			}

			store := gormrepository.New(dbConn.Gorm)
			svc := &service.GuardrailService{
				Repo:     store,
				Settings: &service.SettingsService{Repo: store, Defaults: cfg.Guardrail.DefaultRules},
				Switches: &service.SystemSettingsService{Repo: store},
				Logger:   log,
				Location: loc,
			}
			report, err := svc.RunScan(cmd.Context(), userID, guardrail.DateRange{From: start, To: end})
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if err := report.Err(); err != nil {
				log.Warn("scan finished with failures", zap.Error(err))
				return fmt.Errorf("%d unit(s) failed", len(report.Failures))
			}
			return nil
		},
	}
	defaultCfg := os.Getenv("EJ_CONFIG")
	if defaultCfg == "" {
		defaultCfg = "config/config.yaml"
	}
	cmd.Flags().StringVar(&cfgPath, "config", defaultCfg, "config file")
	cmd.Flags().BoolVar(&envOnly, "env-only", false, "read configuration from EJ_* variables only")
	cmd.Flags().Uint64Var(&userID, "user", 0, "user id")
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
