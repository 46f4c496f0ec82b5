package messaging

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"whatsapp-connect/internal/models"
	"whatsapp-connect/internal/repo"
)

// messagingWindow is the provider-enforced period after the conversation's
// last message during which free-form replies are allowed.
const messagingWindow = 24 * time.Hour

// CanSendFreeForm decides whether a free-form (non-template) message may be
// sent to the contact at the given instant. It permits the send when either
// sub-check holds:
//
//   - the conversation's last message is strictly less than 24 hours old, or
//   - at least one prior outbound message reached SENT, DELIVERED or READ.
//
// Template sends are never gated by this policy.
func CanSendFreeForm(db *gorm.DB, companyID, contactID uint, now time.Time) (bool, error) {
	var conv models.Conversation
	err := db.Where("company_id = ? AND contact_id = ?", companyID, contactID).
		First(&conv).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if err == nil && conv.LastMessageAt != nil {
		if now.Sub(*conv.LastMessageAt) < messagingWindow {
			return true, nil
		}
	}

	return repo.HasTerminalOutbound(db, companyID, contactID)
}
