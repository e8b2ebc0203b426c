// Package messaging delivers outbound WhatsApp messages through the Cloud API.
package messaging

import (
	"context"

	"github.com/google/uuid"
)

// Sender delivers replies to WhatsApp users. Implementations return the
// provider message id on success.
type Sender interface {
	SendText(ctx context.Context, businessID uuid.UUID, phone, text string) (string, error)
	SendImage(ctx context.Context, businessID uuid.UUID, phone, imageURL, caption string) (string, error)
	SendContact(ctx context.Context, businessID uuid.UUID, phone, name, contactPhone string) (string, error)
	SendLocation(ctx context.Context, businessID uuid.UUID, phone string, latitude, longitude float64, name, address string) (string, error)
}
