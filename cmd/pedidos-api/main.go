package main

import (
	"context"
	"log"
	"net/http"

	httpadapter "github.com/pedidosbot/pedidos-agent/internal/adapters/http"
	"github.com/pedidosbot/pedidos-agent/internal/adapters/llm"
	"github.com/pedidosbot/pedidos-agent/internal/adapters/storage/catalogfile"
	firestorestore "github.com/pedidosbot/pedidos-agent/internal/adapters/storage/firestore"
	memstore "github.com/pedidosbot/pedidos-agent/internal/adapters/storage/memory"
	sqlitestore "github.com/pedidosbot/pedidos-agent/internal/adapters/storage/sqlite"
	cartapp "github.com/pedidosbot/pedidos-agent/internal/app/cart"
	"github.com/pedidosbot/pedidos-agent/internal/app/engine"
	"github.com/pedidosbot/pedidos-agent/internal/catalog"
	"github.com/pedidosbot/pedidos-agent/internal/config"
	"github.com/pedidosbot/pedidos-agent/internal/domain"
	"github.com/pedidosbot/pedidos-agent/internal/observability"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	logger := observability.Logger()

	// Catalog: file-backed when the file loads, empty in-memory otherwise.
	// A broken catalog must not stop the service (it degrades to "no
	// products"), but we want it loud in the logs.
	var catalogStore domain.CatalogStore
	fileStore, err := catalogfile.NewStore(cfg.CatalogPath)
	if err != nil {
		logger.Error("catalog file unavailable, starting with empty catalog",
			"path", cfg.CatalogPath,
			"error", err)
		catalogStore = memstore.NewCatalogStore(nil)
	} else {
		catalogStore = fileStore
	}

	index, err := catalog.NewIndex(catalogStore)
	if err != nil {
		log.Fatalf("error building catalog index: %v", err)
	}
	go index.Watch(ctx)
	logger.Info("catalog index ready", "products", index.Size())

	// Order sink: sqlite by default, firestore on GCP, memory for dev.
	var orderStore domain.OrderStore
	switch cfg.StorageBackend {
	case "firestore":
		logger.Info("using firestore order store", "project", cfg.GCPProjectID)
		fs, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			log.Fatalf("error initializing Firestore store: %v", err)
		}
		orderStore = fs
	case "sqlite":
		logger.Info("using sqlite order store", "path", cfg.SQLitePath)
		db, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("error opening sqlite store: %v", err)
		}
		orderStore = db
	default:
		logger.Info("using in-memory order store")
		orderStore = memstore.NewOrderStore()
	}

	// Fallback LLM: mock unless Vertex is configured.
	var fallback domain.FallbackClient
	if cfg.UseMockLLM {
		logger.Info("using mock fallback client")
		fallback = llm.NewMockFallback()
	} else {
		logger.Info("using Gemini fallback client", "model", cfg.ModelName)
		fallback, err = llm.NewGeminiClient(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.ModelName, llm.PromptConfig{
			MerchantName: cfg.Merchant.Name,
			Hours:        cfg.Merchant.Hours,
			Address:      cfg.Merchant.Address,
			Payment:      cfg.Merchant.Payment,
			Contact:      cfg.Merchant.Contact,
		})
		if err != nil {
			log.Fatalf("error initializing Gemini client: %v", err)
		}
	}

	workflow := cartapp.NewWorkflow(cartapp.Config{
		Pricing: cartapp.PricingConfig{
			DiscountsEnabled: cfg.DiscountsEnabled,
			Tiers:            cfg.DiscountTiers,
			DeliveryEnabled:  cfg.DeliveryEnabled,
			DeliveryFee:      cfg.DeliveryFee,
			FreeDeliveryMin:  cfg.FreeDeliveryMin,
		},
		TTL: cfg.CartTTL,
	}, orderStore)
	workflow.StartSweeper(ctx)

	sessions := engine.NewSessionManager(cfg.SessionTTL)
	sessions.StartSweeper(ctx, 0)

	eng := engine.New(engine.Config{
		Currency:        cfg.Currency,
		FallbackTimeout: cfg.FallbackTimeout,
		Merchant: engine.MerchantInfo{
			Name:    cfg.Merchant.Name,
			Hours:   cfg.Merchant.Hours,
			Address: cfg.Merchant.Address,
			Payment: cfg.Merchant.Payment,
			Contact: cfg.Merchant.Contact,
		},
	}, index, workflow, sessions, orderStore, fallback)

	handler := httpadapter.NewServer(eng)

	addr := ":" + cfg.Port
	logger.Info("pedidos API listening", "addr", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatal(err)
	}
}
