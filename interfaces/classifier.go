package interfaces

import (
	"context"

	"github.com/oneboxlabs/onebox/internal/enum"
	"github.com/oneboxlabs/onebox/internal/models"
)

// Classifier assigns one category label to a message. Implementations must
// return an error rather than an out-of-vocabulary label; callers degrade
// to the default category on error.
type Classifier interface {
	Classify(ctx context.Context, email *models.Email) (enum.EmailCategory, error)
}
