package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oneboxlabs/onebox/interfaces"
	"github.com/oneboxlabs/onebox/internal/enum"
	"github.com/oneboxlabs/onebox/internal/models"
	"github.com/oneboxlabs/onebox/internal/tracing"
	"github.com/oneboxlabs/onebox/internal/utils"
)

type emailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) interfaces.EmailRepository {
	return &emailRepository{
		db: db,
	}
}

// Exists reports whether a message with this identity is already stored.
func (r *emailRepository) Exists(ctx context.Context, id string) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Exists")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Email{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		tracing.TraceErr(span, err)
		return false, err
	}
	return count > 0, nil
}

// Upsert inserts the email or, when the identity already exists, refreshes
// the mutable columns of the existing row.
func (r *emailRepository) Upsert(ctx context.Context, email *models.Email) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Upsert")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, email.AccountID)
	tracing.TagFolder(span, email.Folder)

	if email.ID == "" {
		email.ID = models.EmailID(email.AccountID, email.Folder, email.ImapUID)
	}
	email.UpdatedAt = utils.Now()

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"message_id", "in_reply_to", "mail_references",
			"subject", "from_address", "from_name", "to_addresses", "cc_addresses",
			"sent_at", "received_at",
			"body_text", "body_html", "has_attachment",
			"flags", "raw_headers", "envelope",
			"category", "parse_warning", "updated_at",
		}),
	}).Create(email)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	return nil
}

func (r *emailRepository) UpdateCategory(ctx context.Context, id string, category enum.EmailCategory) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.UpdateCategory")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("category", category.String())

	result := r.db.WithContext(ctx).Model(&models.Email{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"category":   category,
			"updated_at": utils.Now(),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *emailRepository) GetByID(ctx context.Context, id string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var email models.Email
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

// GetByUID retrieves an email by its UID within a specific account and folder
func (r *emailRepository) GetByUID(ctx context.Context, accountID, folder string, uid uint32) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByUID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, accountID)
	tracing.TagFolder(span, folder)

	var email models.Email
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND folder = ? AND imap_uid = ?", accountID, folder, uid).
		First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

// ListByAccount retrieves emails for a specific account with pagination
func (r *emailRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*models.Email, int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.ListByAccount")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, accountID)

	var emails []*models.Email
	var count int64

	if err := r.db.WithContext(ctx).Model(&models.Email{}).
		Where("account_id = ?", accountID).
		Count(&count).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("received_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&emails).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	return emails, count, nil
}

// ListByFolder retrieves emails for a specific account and folder with pagination
func (r *emailRepository) ListByFolder(ctx context.Context, accountID, folder string, limit, offset int) ([]*models.Email, int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.ListByFolder")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, accountID)
	tracing.TagFolder(span, folder)

	var emails []*models.Email
	var count int64

	if err := r.db.WithContext(ctx).Model(&models.Email{}).
		Where("account_id = ? AND folder = ?", accountID, folder).
		Count(&count).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND folder = ?", accountID, folder).
		Order("received_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&emails).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	return emails, count, nil
}
