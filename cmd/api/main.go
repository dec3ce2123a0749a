package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/jhoicas/stock-sectores/docs"
	"github.com/jhoicas/stock-sectores/internal/application/count"
	"github.com/jhoicas/stock-sectores/internal/application/sector"
	"github.com/jhoicas/stock-sectores/internal/application/stock"
	"github.com/jhoicas/stock-sectores/internal/domain/repository"
	infraexcel "github.com/jhoicas/stock-sectores/internal/infrastructure/excel"
	"github.com/jhoicas/stock-sectores/internal/infrastructure/memory"
	"github.com/jhoicas/stock-sectores/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/stock-sectores/internal/infrastructure/pdf"
	"github.com/jhoicas/stock-sectores/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stock-sectores/internal/interfaces/http"
	"github.com/jhoicas/stock-sectores/pkg/config"
	"github.com/jhoicas/stock-sectores/pkg/logger"
)

// @title           Stock por Sectores API
// @version         1.0
// @description     Ledger de stock por sector y conteo doble con conciliación.
// @BasePath        /
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization

// storage agrupa los adaptadores de persistencia elegidos por configuración.
type storage struct {
	stockTx   stock.TxRunner
	countTx   count.TxRunner
	stock     repository.StockRepository
	movements repository.StockMovementRepository
	products  repository.ProductRepository
	sectors   repository.SectorRepository
	sessions  repository.CountSessionRepository
	records   repository.AdjustmentRepository
	close     func()
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		store := memory.NewStore()
		return &storage{
			stockTx:   store,
			countTx:   store,
			stock:     store.Stock(),
			movements: store.Movements(),
			products:  store.Products(),
			sectors:   store.Sectors(),
			sessions:  store.CountSessions(),
			records:   store.Adjustments(),
			close:     func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("migraciones aplicadas")
	}
	txRunner := postgres.NewTxRunner(pool)
	return &storage{
		stockTx:   txRunner,
		countTx:   txRunner,
		stock:     postgres.NewStockRepository(pool),
		movements: postgres.NewStockMovementRepository(pool),
		products:  postgres.NewProductRepository(pool),
		sectors:   postgres.NewSectorRepository(pool),
		sessions:  postgres.NewCountSessionRepository(pool),
		records:   postgres.NewAdjustmentRepository(pool),
		close:     pool.Close,
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer st.close()

	m := metrics.New(cfg.Metrics.Namespace)

	transferUC := stock.NewTransferUseCase(st.stockTx, st.products, st.sectors, log, m)
	queryUC := stock.NewQueryUseCase(st.stock, st.movements, st.products, st.sectors)
	sectorUC := sector.NewUseCase(st.sectors)
	countUC := count.NewCountUseCase(count.Deps{
		TxRunner:       st.countTx,
		SessionRepo:    st.sessions,
		AdjustmentRepo: st.records,
		ProductRepo:    st.products,
		SectorRepo:     st.sectors,
		PDF:            infrapdf.NewRegistryPDFGenerator(),
		Exporter:       infraexcel.NewComparisonExporter(),
		Log:            log,
		Metrics:        m,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log, m))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stock por Sectores API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "storage": cfg.Storage.Driver})
	})
	if cfg.Metrics.Enabled {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		TransferUC: transferUC,
		QueryUC:    queryUC,
		CountUC:    countUC,
		SectorUC:   sectorUC,
		JWTSecret:  cfg.JWT.Secret,
		JWTIssuer:  cfg.JWT.Issuer,
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
