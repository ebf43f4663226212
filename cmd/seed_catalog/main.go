// seed_catalog carga el catálogo de medicamentos en PostgreSQL desde un CSV exportado.
//
// Uso: go run ./cmd/seed_catalog [ruta/catalogo.csv] [charset]
// Por defecto toma STORE_SEED_FILE y STORE_SEED_CHARSET de la configuración.
// Aplica el esquema antes de insertar; las filas existentes se actualizan.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jhoicas/Farmacia-api/internal/infrastructure/catalog"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Farmacia-api/pkg/config"
	"github.com/jhoicas/Farmacia-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	path, charset := cfg.Store.SeedFile, cfg.Store.SeedCharset
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if len(os.Args) > 2 {
		charset = os.Args[2]
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "Uso: seed_catalog <catalogo.csv> [charset]")
		os.Exit(2)
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("aplicar esquema")
	}
	n, err := catalog.Load(ctx, path, charset, postgres.NewDrugRepository(pool), log)
	if err != nil {
		log.Fatal().Err(err).Msg("cargar catálogo")
	}
	fmt.Printf("Catálogo %s: %d medicamentos\n", path, n)
}
