// Package repo implements the persistence operations the messaging engine
// shares between dispatch and webhook ingestion, backed by GORM. Contact and
// Conversation creation is an atomic get-or-insert under the natural-key
// unique index, so concurrent creators converge on one row instead of
// failing on the duplicate key.
package repo

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"whatsapp-connect/internal/models"
)

// GetOrCreateContact finds or creates the contact for (company, phone). The
// second return reports whether a row was inserted.
func GetOrCreateContact(db *gorm.DB, companyID uint, phone string) (*models.Contact, bool, error) {
	contact := models.Contact{CompanyID: companyID, Phone: phone}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&contact)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return &contact, true, nil
	}
	// lost the insert race, or the row already existed
	var existing models.Contact
	if err := db.Where("company_id = ? AND phone = ?", companyID, phone).First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// GetOrCreateConversation finds or creates the conversation for
// (company, contact).
func GetOrCreateConversation(db *gorm.DB, companyID, contactID uint) (*models.Conversation, bool, error) {
	conv := models.Conversation{
		CompanyID: companyID,
		ContactID: contactID,
		Status:    models.ConversationOpen,
	}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&conv)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return &conv, true, nil
	}
	var existing models.Conversation
	if err := db.Where("company_id = ? AND contact_id = ?", companyID, contactID).First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// TouchContact bumps a contact's last-message timestamp.
func TouchContact(db *gorm.DB, contactID uint, at time.Time) error {
	return db.Model(&models.Contact{}).
		Where("id = ?", contactID).
		Update("last_message_at", at).Error
}

// ReopenConversation sets a conversation back to OPEN and bumps its
// last-message timestamp, which drives the 24-hour messaging window.
func ReopenConversation(db *gorm.DB, conversationID uint, at time.Time) error {
	return db.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]any{
			"status":          models.ConversationOpen,
			"last_message_at": at,
		}).Error
}

// TouchConversation bumps only the last-message timestamp.
func TouchConversation(db *gorm.DB, conversationID uint, at time.Time) error {
	return db.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("last_message_at", at).Error
}

// ListConversations returns a tenant's conversations, most recent first.
func ListConversations(db *gorm.DB, companyID uint) ([]models.Conversation, error) {
	var out []models.Conversation
	err := db.Where("company_id = ?", companyID).
		Order("last_message_at DESC").
		Find(&out).Error
	return out, err
}
