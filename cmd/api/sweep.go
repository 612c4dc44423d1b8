package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Ejecuta una pasada del barrido de auto-aprobación y termina",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			c, err := build(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer c.Close()

			rep, err := c.sweeper().Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "traslados=%d lineas=%d conciliados=%d omitidos=%d fallidos=%d\n",
				rep.Transfers, rep.LinesResolved, rep.Reconciled, rep.Skipped, rep.Failed)
			return nil
		},
	}
}
