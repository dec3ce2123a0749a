package main

import (
	"context"
	"os"

	"github.com/jhoicas/stock-sectores/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-sectores/pkg/config"
	"github.com/jhoicas/stock-sectores/pkg/logger"
)

// Uso: migrate [up|status]. Sin argumento aplica las migraciones pendientes.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel}).Channel("migrate")

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	switch cmd {
	case "up":
		err = postgres.Migrate(ctx, pool)
	case "status":
		err = postgres.MigrationStatus(ctx, pool)
	default:
		log.Fatal().Str("cmd", cmd).Msg("comando desconocido (up|status)")
	}
	if err != nil {
		log.Fatal().Err(err).Str("cmd", cmd).Msg("migración fallida")
	}
	log.Info().Str("cmd", cmd).Msg("migraciones al día")
}
