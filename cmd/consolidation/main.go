// cmd/consolidation/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"consolidation-service/internal/api/handlers"
	"consolidation-service/internal/api/responses"
	"consolidation-service/internal/config"
	"consolidation-service/internal/core/audit"
	"consolidation-service/internal/core/billing"
	"consolidation-service/internal/core/charges"
	"consolidation-service/internal/core/consolidation"
	"consolidation-service/internal/core/extraction"
	"consolidation-service/internal/core/pmpv"
	"consolidation-service/internal/core/reconciliation"
	"consolidation-service/internal/db"
	"consolidation-service/internal/logging"
	"consolidation-service/internal/metrics"
	"consolidation-service/internal/report"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Falha ao carregar configuração: ", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, ServiceName: "consolidation-service"})
	if err != nil {
		log.Fatal("Falha ao criar logger: ", err)
	}
	defer func() { _ = logger.Sync() }()
	responses.InitLogger(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Falha ao executar o serviço de consolidação", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) (err error) {
	ctx := context.Background()

	client, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Migrate: true}, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, client.Close()) }()

	rules, err := config.LoadRules(cfg.RulesFile, logger)
	if err != nil {
		return err
	}
	m := metrics.New()

	var ocr extraction.OCR
	if cfg.OCR.Enabled {
		cmd := extraction.CommandOCR{Tesseract: cfg.OCR.Tesseract, Pdftoppm: cfg.OCR.Pdftoppm, Language: cfg.OCR.Language, DPI: cfg.OCR.DPI}
		if cmd.Available() {
			ocr = cmd
		} else {
			logger.Warn("OCR indisponível, PDFs escaneados ficarão sem texto",
				zap.String("tesseract", cfg.OCR.Tesseract), zap.String("pdftoppm", cfg.OCR.Pdftoppm))
		}
	}
	pdfText := extraction.NewPDFTextSource(ocr)
	batch := extraction.NewBatch(extraction.NewExtractor(rules), cfg.ExtractWorkers, logger, m)

	consolidationService := consolidation.NewService(client.DB(), logger, m)
	pmpvService := pmpv.NewService(client.DB(), logger)
	auditService := audit.NewService(batch, consolidationService, logger)
	billingService := billing.NewService(pmpvService, consolidationService, rules, logger)
	chargesService := charges.NewService(pdfText, consolidationService, rules, cfg.ExtractWorkers, logger)
	reconciliationService := reconciliation.NewService(pdfText, consolidationService, rules, cfg.ExtractWorkers, logger)

	reporter := report.NewWriter(cfg.ReportDir)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	apiV1 := router.Group("/api/v1")
	{
		handlers.NewConsolidationHandler(consolidationService).Register(apiV1)
		handlers.NewAuditHandler(auditService, reporter, logger).Register(apiV1)
		handlers.NewBillingHandler(billingService).Register(apiV1)
		handlers.NewChargesHandler(chargesService, reporter).Register(apiV1)
		handlers.NewReconciliationHandler(reconciliationService, reporter, logger).Register(apiV1)
		handlers.NewPMPVHandler(pmpvService, reporter).Register(apiV1)
	}

	router.GET("/health", handlers.NewHealthHandler(client).HandleHealth)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🚀 Consolidation Service (Go) iniciado e escutando na porta " + cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("encerrando servidor")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
