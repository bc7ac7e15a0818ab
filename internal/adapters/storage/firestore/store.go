package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pedidosbot/pedidos-agent/internal/domain"
)

// Store is the Firestore-backed order sink.
type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store for the given project
// (PEDIDOS_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) ordersCol() *firestore.CollectionRef {
	return s.client.Collection("orders")
}

func (s *Store) customersCol() *firestore.CollectionRef {
	return s.client.Collection("customers")
}

func (s *Store) sequenceDoc() *firestore.DocumentRef {
	return s.client.Collection("counters").Doc("orders")
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type orderLineDoc struct {
	DisplayName string  `firestore:"display_name"`
	Quantity    int     `firestore:"quantity"`
	UnitPrice   float64 `firestore:"unit_price"`
	InStock     bool    `firestore:"in_stock"`
	Category    string  `firestore:"category"`
	Subcategory string  `firestore:"subcategory"`
}

type orderDoc struct {
	CustomerID      string         `firestore:"customer_id"`
	CustomerName    string         `firestore:"customer_name"`
	CreatedAt       time.Time      `firestore:"created_at"`
	Lines           []orderLineDoc `firestore:"lines"`
	Subtotal        float64        `firestore:"subtotal"`
	DiscountAmount  float64        `firestore:"discount_amount"`
	DiscountPercent float64        `firestore:"discount_percent"`
	DiscountLabel   string         `firestore:"discount_label"`
	DeliveryFee     float64        `firestore:"delivery_fee"`
	Total           float64        `firestore:"total"`
	DeliveryMode    string         `firestore:"delivery_mode"`
	Fulfillment     string         `firestore:"fulfillment_status"`
	Payment         string         `firestore:"payment_status"`
	Seq             int64          `firestore:"seq"`
}

type customerDoc struct {
	Name        string    `firestore:"name"`
	OrderCount  int       `firestore:"order_count"`
	TotalSpent  float64   `firestore:"total_spent"`
	LastOrderAt time.Time `firestore:"last_order_at"`
}

type sequenceDoc struct {
	LastValue int64 `firestore:"last_value"`
}

// ─────────────────────────────────────────
// OrderStore implementation
// ─────────────────────────────────────────

// CreateOrder runs the sequence bump, the order write and the customer
// aggregate update inside one Firestore transaction.
func (s *Store) CreateOrder(ctx context.Context, order *domain.Order) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var seq sequenceDoc
		snap, err := tx.Get(s.sequenceDoc())
		if err != nil && status.Code(err) != codes.NotFound {
			return fmt.Errorf("read order sequence: %w", err)
		}
		if snap != nil && snap.Exists() {
			if err := snap.DataTo(&seq); err != nil {
				return fmt.Errorf("decode order sequence: %w", err)
			}
		}
		seq.LastValue++
		order.ID = fmt.Sprintf("PED-%04d", seq.LastValue)

		var prev customerDoc
		custSnap, err := tx.Get(s.customersCol().Doc(string(order.CustomerID)))
		if err != nil && status.Code(err) != codes.NotFound {
			return fmt.Errorf("read customer: %w", err)
		}
		if custSnap != nil && custSnap.Exists() {
			if err := custSnap.DataTo(&prev); err != nil {
				return fmt.Errorf("decode customer: %w", err)
			}
		}

		if err := tx.Set(s.sequenceDoc(), seq); err != nil {
			return err
		}
		if err := tx.Set(s.ordersCol().Doc(order.ID), toOrderDoc(order, seq.LastValue)); err != nil {
			return err
		}
		return tx.Set(s.customersCol().Doc(string(order.CustomerID)), customerDoc{
			Name:        order.CustomerName,
			OrderCount:  prev.OrderCount + 1,
			TotalSpent:  prev.TotalSpent + order.Total,
			LastOrderAt: order.CreatedAt,
		})
	})
	if err != nil {
		return fmt.Errorf("firestore CreateOrder: %w", err)
	}
	return nil
}

func (s *Store) GetCustomerStats(ctx context.Context, id domain.CustomerID) (*domain.CustomerStats, error) {
	snap, err := s.customersCol().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("firestore GetCustomerStats: %w", err)
	}

	var doc customerDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetCustomerStats decode: %w", err)
	}

	return &domain.CustomerStats{
		CustomerID:  id,
		Name:        doc.Name,
		OrderCount:  doc.OrderCount,
		TotalSpent:  doc.TotalSpent,
		LastOrderAt: doc.LastOrderAt,
	}, nil
}

func (s *Store) ListOrders(ctx context.Context, limit int) ([]*domain.Order, error) {
	q := s.ordersCol().OrderBy("seq", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Order
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListOrders: %w", err)
		}

		var doc orderDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode orderDoc: %w", err)
		}
		out = append(out, fromOrderDoc(snap.Ref.ID, doc))
	}
	return out, nil
}

// ─────────────────────────────────────────
// Mapping
// ─────────────────────────────────────────

func toOrderDoc(o *domain.Order, seq int64) orderDoc {
	lines := make([]orderLineDoc, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, orderLineDoc{
			DisplayName: l.DisplayName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			InStock:     l.InStock,
			Category:    l.Category,
			Subcategory: l.Subcategory,
		})
	}
	return orderDoc{
		CustomerID:      string(o.CustomerID),
		CustomerName:    o.CustomerName,
		CreatedAt:       o.CreatedAt,
		Lines:           lines,
		Subtotal:        o.Subtotal,
		DiscountAmount:  o.DiscountAmount,
		DiscountPercent: o.DiscountPercent,
		DiscountLabel:   o.DiscountLabel,
		DeliveryFee:     o.DeliveryFee,
		Total:           o.Total,
		DeliveryMode:    string(o.DeliveryMode),
		Fulfillment:     string(o.Fulfillment),
		Payment:         string(o.Payment),
		Seq:             seq,
	}
}

func fromOrderDoc(id string, doc orderDoc) *domain.Order {
	lines := make([]domain.CartLine, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		lines = append(lines, domain.CartLine{
			DisplayName: l.DisplayName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			InStock:     l.InStock,
			Category:    l.Category,
			Subcategory: l.Subcategory,
		})
	}
	return &domain.Order{
		ID:              id,
		CustomerID:      domain.CustomerID(doc.CustomerID),
		CustomerName:    doc.CustomerName,
		CreatedAt:       doc.CreatedAt,
		Lines:           lines,
		Subtotal:        doc.Subtotal,
		DiscountAmount:  doc.DiscountAmount,
		DiscountPercent: doc.DiscountPercent,
		DiscountLabel:   doc.DiscountLabel,
		DeliveryFee:     doc.DeliveryFee,
		Total:           doc.Total,
		DeliveryMode:    domain.DeliveryMode(doc.DeliveryMode),
		Fulfillment:     domain.FulfillmentStatus(doc.Fulfillment),
		Payment:         domain.PaymentStatus(doc.Payment),
	}
}
