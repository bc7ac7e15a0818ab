package domain

import "time"

// InboundMessage is what the transport collaborator delivers for each
// customer turn. CustomerID is opaque and stable per contact.
type InboundMessage struct {
	CustomerID  CustomerID
	DisplayName string
	Text        string
	Timestamp   time.Time
}
