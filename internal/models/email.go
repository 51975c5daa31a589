package models

import (
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/oneboxlabs/onebox/internal/enum"
)

// Email represents a normalized email message stored in the database.
// Identity is (account, folder, uid): re-fetching the same message updates
// the existing row instead of inserting a duplicate.
type Email struct {
	ID        string `gorm:"column:id;type:varchar(255);primaryKey"`
	AccountID string `gorm:"column:account_id;type:varchar(50);index;not null"`
	Folder    string `gorm:"column:folder;type:varchar(100);index;not null"`
	ImapUID   uint32 `gorm:"column:imap_uid;index"`

	MessageID  string         `gorm:"column:message_id;type:varchar(255);index"`
	InReplyTo  string         `gorm:"column:in_reply_to;type:varchar(255);index"`
	References pq.StringArray `gorm:"column:mail_references;type:text[]"`

	// Core email metadata
	Subject     string         `gorm:"column:subject;type:varchar(1000)"`
	FromAddress string         `gorm:"column:from_address;type:varchar(255);index"`
	FromName    string         `gorm:"column:from_name;type:varchar(255)"`
	ToAddresses pq.StringArray `gorm:"column:to_addresses;type:text[]"`
	CcAddresses pq.StringArray `gorm:"column:cc_addresses;type:text[]"`

	// Time information
	SentAt     *time.Time `gorm:"column:sent_at;type:timestamp;index"`
	ReceivedAt *time.Time `gorm:"column:received_at;type:timestamp;index"`

	// Content
	BodyText      string `gorm:"column:body_text;type:text"`
	BodyHTML      string `gorm:"column:body_html;type:text"`
	HasAttachment bool   `gorm:"column:has_attachment;default:false"`

	Flags pq.StringArray `gorm:"column:flags;type:text[]"`

	// Raw data
	RawHeaders JSONMap `gorm:"column:raw_headers;type:jsonb"`
	Envelope   JSONMap `gorm:"column:envelope;type:jsonb"`

	// Classification
	Category enum.EmailCategory `gorm:"column:category;type:varchar(50);index"`

	// ParseWarning is set when the MIME body could not be fully parsed and
	// the record holds envelope data only.
	ParseWarning string `gorm:"column:parse_warning;type:text"`

	// Standard timestamps
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Email) TableName() string {
	return "emails"
}

func (e *Email) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = EmailID(e.AccountID, e.Folder, e.ImapUID)
	}
	return nil
}

// EmailID builds the stable identity for a message. UIDs are stable within
// a folder for the lifetime of the mailbox, unlike sequence numbers.
func EmailID(accountID, folder string, uid uint32) string {
	return fmt.Sprintf("%s-%s-%d", accountID, folder, uid)
}
