package interfaces

import (
	"context"

	"github.com/oneboxlabs/onebox/internal/enum"
	"github.com/oneboxlabs/onebox/internal/models"
)

type EmailRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	Upsert(ctx context.Context, email *models.Email) error
	UpdateCategory(ctx context.Context, id string, category enum.EmailCategory) error
	GetByID(ctx context.Context, id string) (*models.Email, error)
	GetByUID(ctx context.Context, accountID, folder string, uid uint32) (*models.Email, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*models.Email, int64, error)
	ListByFolder(ctx context.Context, accountID, folder string, limit, offset int) ([]*models.Email, int64, error)
}
