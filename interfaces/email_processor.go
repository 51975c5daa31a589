package interfaces

import (
	"context"

	"github.com/oneboxlabs/onebox/internal/models"
)

// EmailProcessor runs the classify, store, notify pipeline for one message.
type EmailProcessor interface {
	ProcessEmail(ctx context.Context, email *models.Email) error
}
