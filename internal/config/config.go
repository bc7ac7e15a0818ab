package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pedidosbot/pedidos-agent/internal/domain"
)

// Config is read once at startup. The engine consumes it read-only.
type Config struct {
	Port string

	StorageBackend string // "memory", "sqlite" or "firestore"
	SQLitePath     string

	GCPProjectID string
	GCPLocation  string
	ModelName    string
	UseMockLLM   bool // true = never call Vertex

	FallbackTimeout time.Duration

	CatalogPath string

	Currency         string
	DiscountsEnabled bool
	DiscountTiers    []domain.DiscountTier

	DeliveryEnabled bool
	DeliveryFee     float64
	FreeDeliveryMin float64

	SessionTTL time.Duration
	CartTTL    time.Duration

	Merchant Merchant
}

// Merchant holds the fixed texts for the informational intents.
type Merchant struct {
	Name    string
	Hours   string
	Address string
	Payment string
	Contact string
}

// Load reads pedidos.yaml (working dir or ~/.pedidos) with PEDIDOS_*
// env overrides. Every key has a default; a missing file is fine.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("pedidos")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.pedidos")
	v.SetEnvPrefix("PEDIDOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.port", "8080")
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.sqlite_path", "pedidos.db")
	v.SetDefault("llm.use_mock", true)
	v.SetDefault("llm.gcp_project", "")
	v.SetDefault("llm.gcp_location", "us-central1")
	v.SetDefault("llm.model", "gemini-2.5-flash-lite")
	v.SetDefault("llm.fallback_timeout_seconds", 15)
	v.SetDefault("catalog.path", "catalogo.yaml")
	v.SetDefault("pricing.currency", "$")
	v.SetDefault("pricing.discounts_enabled", true)
	v.SetDefault("delivery.enabled", true)
	v.SetDefault("delivery.fee", 0.0)
	v.SetDefault("delivery.free_min", 0.0)
	v.SetDefault("sessions.expiry_minutes", 10)
	v.SetDefault("cart.expiry_minutes", 15)
	v.SetDefault("merchant.name", "la tienda")
	v.SetDefault("merchant.hours", "Abrimos de lunes a sábado de 9 a 19 hs.")
	v.SetDefault("merchant.address", "Estamos en el centro, consultanos la dirección exacta por este chat.")
	v.SetDefault("merchant.payment", "Aceptamos efectivo, tarjeta y transferencia.")
	v.SetDefault("merchant.contact", "Escribinos por acá y te respondemos a la brevedad.")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var tiers []domain.DiscountTier
	if err := v.UnmarshalKey("pricing.discount_tiers", &tiers); err != nil {
		return nil, fmt.Errorf("decode discount tiers: %w", err)
	}

	cfg := &Config{
		Port:             v.GetString("http.port"),
		StorageBackend:   v.GetString("storage.backend"),
		SQLitePath:       v.GetString("storage.sqlite_path"),
		GCPProjectID:     v.GetString("llm.gcp_project"),
		GCPLocation:      v.GetString("llm.gcp_location"),
		ModelName:        v.GetString("llm.model"),
		UseMockLLM:       v.GetBool("llm.use_mock"),
		FallbackTimeout:  time.Duration(v.GetInt("llm.fallback_timeout_seconds")) * time.Second,
		CatalogPath:      v.GetString("catalog.path"),
		Currency:         v.GetString("pricing.currency"),
		DiscountsEnabled: v.GetBool("pricing.discounts_enabled"),
		DiscountTiers:    tiers,
		DeliveryEnabled:  v.GetBool("delivery.enabled"),
		DeliveryFee:      v.GetFloat64("delivery.fee"),
		FreeDeliveryMin:  v.GetFloat64("delivery.free_min"),
		SessionTTL:       time.Duration(v.GetInt("sessions.expiry_minutes")) * time.Minute,
		CartTTL:          time.Duration(v.GetInt("cart.expiry_minutes")) * time.Minute,
		Merchant: Merchant{
			Name:    v.GetString("merchant.name"),
			Hours:   v.GetString("merchant.hours"),
			Address: v.GetString("merchant.address"),
			Payment: v.GetString("merchant.payment"),
			Contact: v.GetString("merchant.contact"),
		},
	}

	if !cfg.UseMockLLM && cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("llm.gcp_project must be set when llm.use_mock is false")
	}
	if cfg.StorageBackend == "firestore" && cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("llm.gcp_project must be set for the firestore backend")
	}

	return cfg, nil
}
