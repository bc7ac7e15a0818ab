package catalogfile

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/pedidosbot/pedidos-agent/internal/catalog"
	"github.com/pedidosbot/pedidos-agent/internal/domain"
	"github.com/pedidosbot/pedidos-agent/internal/observability"
)

// Store is a CatalogStore backed by a YAML file. It owns its own viper
// instance; edits to the file are picked up by WatchConfig and published
// as a fresh snapshot plus an invalidation signal.
type Store struct {
	v          *viper.Viper
	mu         sync.RWMutex
	catalog    *domain.Catalog
	invalidate chan struct{}
}

// file-shape DTOs. in_stock defaults to true when the key is absent,
// which mapstructure can't express on a plain bool.
type fileProduct struct {
	Name      string   `mapstructure:"name"`
	Price     float64  `mapstructure:"price"`
	PriceFrom float64  `mapstructure:"price_from"`
	Unit      string   `mapstructure:"unit"`
	InStock   *bool    `mapstructure:"in_stock"`
	Barcode   string   `mapstructure:"barcode"`
	Images    []string `mapstructure:"images"`
}

type fileSubcategory struct {
	Name     string        `mapstructure:"name"`
	Products []fileProduct `mapstructure:"products"`
}

type fileCategory struct {
	Name          string            `mapstructure:"name"`
	Subcategories []fileSubcategory `mapstructure:"subcategories"`
}

type fileCatalog struct {
	Categories []fileCategory `mapstructure:"categories"`
}

func NewStore(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	s := &Store{
		v:          v,
		catalog:    &domain.Catalog{},
		invalidate: make(chan struct{}, 1),
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	cat, err := s.decode()
	if err != nil {
		return nil, err
	}
	s.catalog = cat

	v.OnConfigChange(func(in fsnotify.Event) {
		s.reload(in.Name)
	})
	v.WatchConfig()

	return s, nil
}

func (s *Store) decode() (*domain.Catalog, error) {
	var fc fileCatalog
	if err := s.v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("decode catalog file: %w", err)
	}
	return toDomain(fc), nil
}

func toDomain(fc fileCatalog) *domain.Catalog {
	out := &domain.Catalog{}
	for _, c := range fc.Categories {
		cat := domain.Category{Name: catalog.NormalizeKey(c.Name)}
		for _, sc := range c.Subcategories {
			sub := domain.Subcategory{Name: catalog.NormalizeKey(sc.Name)}
			for _, p := range sc.Products {
				inStock := true
				if p.InStock != nil {
					inStock = *p.InStock
				}
				sub.Products = append(sub.Products, domain.Product{
					Name:      catalog.NormalizeKey(p.Name),
					Price:     p.Price,
					PriceFrom: p.PriceFrom,
					Unit:      p.Unit,
					InStock:   inStock,
					Barcode:   p.Barcode,
					Images:    p.Images,
				})
			}
			cat.Subcategories = append(cat.Subcategories, sub)
		}
		out.Categories = append(out.Categories, cat)
	}
	return out
}

// reload re-decodes the file after a change event. A broken file keeps
// the previous snapshot instead of wiping the catalog mid-conversation.
func (s *Store) reload(name string) {
	log := observability.Logger()
	cat, err := s.decode()
	if err != nil {
		log.Error("catalog reload failed, keeping previous snapshot",
			"file", name,
			"error", err)
		return
	}

	s.mu.Lock()
	s.catalog = cat
	s.mu.Unlock()

	select {
	case s.invalidate <- struct{}{}:
	default:
	}
	log.Info("catalog file reloaded", "file", name, "products", cat.Len())
}

func (s *Store) Snapshot() (*domain.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog, nil
}

func (s *Store) Invalidations() <-chan struct{} {
	return s.invalidate
}
