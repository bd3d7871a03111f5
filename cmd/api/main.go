package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jhoicas/facturacion-dte/internal/application/billing"
	domdte "github.com/jhoicas/facturacion-dte/internal/domain/dte"
	infradte "github.com/jhoicas/facturacion-dte/internal/infrastructure/dte"
	infrapdf "github.com/jhoicas/facturacion-dte/internal/infrastructure/pdf"
	"github.com/jhoicas/facturacion-dte/internal/infrastructure/postgres"
	"github.com/jhoicas/facturacion-dte/internal/infrastructure/redislock"
	httpRouter "github.com/jhoicas/facturacion-dte/internal/interfaces/http"
	"github.com/jhoicas/facturacion-dte/internal/observability/metrics"
	"github.com/jhoicas/facturacion-dte/pkg/config"
	"github.com/jhoicas/facturacion-dte/pkg/logger"
)

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
		Str("ambiente", cfg.DTE.Ambiente()).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	// Métricas Prometheus: registro propio, expuesto en /metrics.
	var (
		registry   *prometheus.Registry
		dteMetrics *metrics.DTEMetrics
	)
	clientOpts := []infradte.Option{infradte.WithLogger(log)}
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		dteMetrics = metrics.NewDTEMetrics(registry, metrics.Config{ServiceName: cfg.App.Name, Environment: cfg.App.Env})
		clientOpts = append(clientOpts, infradte.WithObserver(dteMetrics))
	}

	client := infradte.NewClient(infradte.Config{
		BaseURL:    cfg.DTE.BaseURL(),
		APIKey:     cfg.DTE.APIKey,
		Timeout:    cfg.DTE.RequestTimeout,
		MaxRetries: cfg.DTE.MaxRetries,
	}, clientOpts...)

	// Certificado global opcional: llave de respaldo para empresas sin llave registrada.
	var fallbackCert *infradte.Certificate
	if cfg.DTE.CertPath != "" {
		fallbackCert, err = infradte.LoadFromP12(cfg.DTE.CertPath, cfg.DTE.CertPassword)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.DTE.CertPath).Msg("cargar certificado DTE")
		}
		if fallbackCert.Expired(time.Now()) {
			log.Warn().Time("not_after", fallbackCert.Leaf.NotAfter).Msg("el certificado DTE está vencido")
		}
	}

	// Bloqueo de envíos: Redis si hay varias réplicas, memoria en caso contrario.
	var guard billing.SubmissionGuard = billing.NewMemoryGuard()
	if cfg.Redis.Address != "" {
		rdb, err := redislock.NewClient(ctx, cfg.Redis.Address)
		if err != nil {
			log.Fatal().Err(err).Str("address", cfg.Redis.Address).Msg("conexión a Redis")
		}
		defer rdb.Close()
		guard = redislock.New(rdb, redislock.DefaultTTL, log)
	}

	deps := billing.Dependencies{
		Invoices:    postgres.NewInvoiceRepository(pool),
		Companies:   postgres.NewCompanyRepository(pool),
		Customers:   postgres.NewCustomerRepository(pool),
		Products:    postgres.NewProductRepository(pool),
		Activities:  postgres.NewActivityRepository(pool),
		Assembler:   domdte.NewAssembler(cfg.DTE.Ambiente(), domdte.NewIdentifierGenerator(nil)),
		Transport:   client,
		Recorder:    postgres.NewTxRunner(pool),
		Credentials: billing.NewCompanyCredentials(fallbackCert),
		Renderer:    infrapdf.NewMarotoRenderer(),
		Guard:       guard,
		Log:         log,
	}
	if dteMetrics != nil {
		deps.Observer = dteMetrics
	}
	submissions := billing.NewSubmissionService(deps)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.DTE.RequestTimeout + 30*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturación DTE API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "ambiente": cfg.DTE.Ambiente()})
	})

	routerDeps := httpRouter.RouterDeps{
		DTE:       submissions,
		Log:       log,
		JWTSecret: cfg.JWT.Secret,
	}
	if registry != nil {
		routerDeps.Metrics = registry
	}
	httpRouter.Router(app, routerDeps)

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
