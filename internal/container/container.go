package container

import (
	"fmt"
	"net/http"
	"path/filepath"

	"go-receipt-scanner/internal/auth"
	"go-receipt-scanner/internal/config"
	"go-receipt-scanner/internal/logger"
	"go-receipt-scanner/internal/observer"
	"go-receipt-scanner/internal/ocr"
	"go-receipt-scanner/internal/service"
	"go-receipt-scanner/internal/storage"
	"go-receipt-scanner/internal/transaction"
	"go-receipt-scanner/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config       *config.Config
	extractor    ocr.TextExtractor
	fileStore    storage.FileStore
	fetcher      storage.ImageFetcher
	transactions *transaction.Store
	users        *auth.UserStore
	tokens       *auth.TokenIssuer
	metrics      *observer.MetricsObserver
	scanService  service.ScanService
	handler      http.Handler
}

// NewContainer builds the dependency graph from configuration.
func NewContainer(cfg *config.Config) (*Container, error) {
	fileStore, err := storage.NewFileStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	transactions, err := transaction.NewStore(filepath.Join(cfg.DataDir, "transactions.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize transaction store: %w", err)
	}

	users, err := auth.NewUserStore(filepath.Join(cfg.DataDir, "users.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize user store: %w", err)
	}

	extractor := ocr.NewTesseractExtractor(cfg.OCRLanguage, cfg.OCRMaxConcurrent)
	fetcher := storage.NewHTTPFetcher(cfg.FetchTimeout, cfg.MaxUploadBytes)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret)

	metrics := observer.NewMetricsObserver()
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	scanService := service.NewScanService(extractor, fileStore, fetcher, publisher, cfg.OCRTimeout)

	handler := transport.NewHandler(transport.Deps{
		Scans:        scanService,
		Transactions: transactions,
		Users:        users,
		Tokens:       tokens,
		Metrics:      metrics,
		Config:       cfg,
	})

	return &Container{
		config:       cfg,
		extractor:    extractor,
		fileStore:    fileStore,
		fetcher:      fetcher,
		transactions: transactions,
		users:        users,
		tokens:       tokens,
		metrics:      metrics,
		scanService:  scanService,
		handler:      handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}
