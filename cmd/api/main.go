package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/Farmacia-api/internal/application/coordination"
	"github.com/jhoicas/Farmacia-api/internal/application/inventory"
	"github.com/jhoicas/Farmacia-api/internal/application/packaging"
	"github.com/jhoicas/Farmacia-api/internal/application/sales"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
	domainsales "github.com/jhoicas/Farmacia-api/internal/domain/sales"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/catalog"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/memory"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Farmacia-api/internal/interfaces/http"
	"github.com/jhoicas/Farmacia-api/pkg/config"
	"github.com/jhoicas/Farmacia-api/pkg/logger"
)

// txRunner transacciones de stock y de ventas sobre el mismo almacenamiento.
type txRunner interface {
	inventory.TxRunner
	sales.SalesTxRunner
}

// store puertos de persistencia según STORE_DRIVER.
type store struct {
	tx        txRunner
	ledgers   repository.LedgerRepository
	orders    repository.OrderRepository
	drugs     repository.DrugRepository
	packaging repository.PackagingRepository
	catalog   catalog.Sink
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir almacenamiento")
	}
	defer st.close()

	if cfg.Store.SeedFile != "" {
		if _, err := catalog.Load(ctx, cfg.Store.SeedFile, cfg.Store.SeedCharset, st.catalog, log); err != nil {
			log.Error().Err(err).Msg("catálogo inicial")
		}
	}

	coord := coordination.NewCoordinator()
	stockUC := inventory.NewStockUseCase(coord, st.tx, st.ledgers, st.drugs, cfg.Inventory, log)
	replenishmentUC := inventory.NewReplenishmentUseCase(st.ledgers, st.drugs, cfg.Inventory)
	resolver := packaging.NewEffectivePackagingResolver(st.packaging)
	orderUC := sales.NewOrderUseCase(coord, st.tx, st.orders, st.drugs,
		domainsales.NewPaymentPolicy(cfg.Sales.DeferredMethods()...), log)
	receiptUC := sales.NewReceiptUseCase(st.orders, st.drugs, pdf.NewMarotoReceiptGenerator(cfg.App.Name))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "store": cfg.Store.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		StockUC:       stockUC,
		Replenishment: replenishmentUC,
		Packaging:     resolver,
		OrderUC:       orderUC,
		Receipts:      receiptUC,
		RequireActor:  cfg.App.Env == "production",
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	if cfg.Store.Driver == config.StoreMemory {
		mem := memory.New(cfg.Sales.OrderNumberPrefix)
		return &store{
			tx:        mem,
			ledgers:   mem.Ledgers(),
			orders:    mem.Orders(),
			drugs:     mem.Drugs(),
			packaging: mem.Packaging(),
			catalog:   mem,
			close:     func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	drugs := postgres.NewDrugRepository(pool)
	return &store{
		tx:        postgres.NewTxRunner(pool, cfg.Sales.OrderNumberPrefix),
		ledgers:   postgres.NewLedgerRepository(pool),
		orders:    postgres.NewOrderRepository(pool, cfg.Sales.OrderNumberPrefix),
		drugs:     drugs,
		packaging: postgres.NewPackagingRepository(pool),
		catalog:   drugs,
		close:     pool.Close,
	}, nil
}
