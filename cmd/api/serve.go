package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	httpRouter "github.com/jhoicas/Traslados-api/internal/interfaces/http"
)

const swaggerFile = "./docs/swagger.json"

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta la API HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			log.Info().
				Str("env", cfg.App.Env).
				Str("app", cfg.App.Name).
				Str("store", cfg.Store.Driver).
				Str("lock", cfg.Lock.Driver).
				Msg("iniciando aplicación")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer c.Close()

			app := fiber.New(fiber.Config{
				AppName:      cfg.App.Name,
				ReadTimeout:  time.Second * 10,
				WriteTimeout: time.Second * 10,
				IdleTimeout:  time.Second * 60,
			})
			app.Use(recover.New())

			// Swagger UI en local: http://localhost:<port>/docs
			if _, err := os.Stat(swaggerFile); err == nil {
				app.Use(swagger.New(swagger.Config{
					BasePath: "/",
					FilePath: swaggerFile,
					Path:     "docs",
					Title:    "Traslados API",
				}))
			}

			httpRouter.Router(app, c.router)

			var sweeps sync.WaitGroup
			if cfg.AutoApprove.Enabled && cfg.AutoApprove.SweepInterval > 0 {
				sweeps.Add(1)
				go func() {
					defer sweeps.Done()
					runSweepLoop(ctx, c, cfg.AutoApprove.SweepInterval)
				}()
			}

			go func() {
				if err := app.Listen(cfg.HTTP.Addr()); err != nil {
					log.Error().Err(err).Msg("servidor HTTP finalizado")
					stop()
				}
			}()

			<-ctx.Done()
			log.Info().Msg("señal de apagado recibida, cerrando servidor...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := app.ShutdownWithContext(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("apagado del servidor")
			}
			// el barrido en curso termina antes de cerrar publicador y conexiones
			sweeps.Wait()

			log.Info().Msg("aplicación detenida")
			return nil
		},
	}
}

// runSweepLoop ejecuta el barrido de auto-aprobación hasta que ctx se cancele.
func runSweepLoop(ctx context.Context, c *container, every time.Duration) {
	sw := c.sweeper()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sw.Run(ctx); err != nil && ctx.Err() == nil {
				c.log.Error().Err(err).Msg("barrido de auto-aprobación")
			}
		}
	}
}
