package domain

// CustomerID is the opaque, stable identifier the transport assigns to
// each contact (a phone number for WhatsApp-style channels).
type CustomerID string

// DeliveryMode is how the customer receives a finished order.
type DeliveryMode string

const (
	DeliveryPickup   DeliveryMode = "retiro"
	DeliveryShipping DeliveryMode = "envio"
)

// FulfillmentStatus is mutated by the operational surface after the
// order is created; the engine only ever writes the initial value.
type FulfillmentStatus string

const (
	FulfillmentPending   FulfillmentStatus = "pendiente"
	FulfillmentPreparing FulfillmentStatus = "preparando"
	FulfillmentReady     FulfillmentStatus = "listo"
	FulfillmentDelivered FulfillmentStatus = "entregado"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "impago"
	PaymentPaid   PaymentStatus = "pagado"
)
