package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Traslados-api/internal/infrastructure/postgres"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migraciones del esquema PostgreSQL",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Aplica las migraciones pendientes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			return postgres.Migrate(cfg.DB.ConnectionString(), log)
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Revierte migraciones",
		RunE: func(cmd *cobra.Command, _ []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			if steps < 1 {
				return fmt.Errorf("--steps debe ser mayor que cero")
			}
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			return postgres.MigrateDown(cfg.DB.ConnectionString(), steps, log)
		},
	}
	down.Flags().Int("steps", 1, "Cantidad de migraciones a revertir")

	cmd.AddCommand(up, down)
	return cmd
}
