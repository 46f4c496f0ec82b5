package repo

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"whatsapp-connect/internal/models"
)

// CreateMessage inserts a message row with a fresh UUID.
func CreateMessage(db *gorm.DB, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	return db.Create(msg).Error
}

// MessageExistsByRemoteID reports whether a message with the given provider
// message id is already recorded. Inbound webhook replays are detected this
// way.
func MessageExistsByRemoteID(db *gorm.DB, companyID uint, remoteID string) (bool, error) {
	var count int64
	err := db.Model(&models.Message{}).
		Where("company_id = ? AND whatsapp_message_id = ?", companyID, remoteID).
		Count(&count).Error
	return count > 0, err
}

// statusRank orders the delivery lifecycle so webhook events arriving out of
// order cannot move a message backwards.
var statusRank = map[string]int{
	models.StatusScheduled: 0,
	models.StatusSending:   1,
	models.StatusSent:      2,
	models.StatusDelivered: 3,
	models.StatusRead:      4,
}

// StatusUpdate carries one webhook delivery-status transition.
type StatusUpdate struct {
	Status       string
	Timestamp    time.Time
	ErrorMessage string
}

// ApplyStatusUpdate updates messages matched by remote message id. Zero
// matches is not an error: the message may predate local tracking. Re-applying
// the same update is a no-op beyond timestamp overwrite.
func ApplyStatusUpdate(db *gorm.DB, remoteID string, update StatusUpdate) (int64, error) {
	var matched []models.Message
	if err := db.Where("whatsapp_message_id = ?", remoteID).Find(&matched).Error; err != nil {
		return 0, err
	}

	var applied int64
	for i := range matched {
		msg := &matched[i]
		changes := map[string]any{}

		switch update.Status {
		case models.StatusFailed:
			// terminal, reachable from any non-terminal state
			if msg.Status != models.StatusFailed && msg.Status != models.StatusRead {
				changes["status"] = models.StatusFailed
			}
			if update.ErrorMessage != "" && msg.ErrorMessage == "" {
				changes["error_message"] = update.ErrorMessage
			}
		default:
			if msg.Status != models.StatusFailed && statusRank[update.Status] >= statusRank[msg.Status] {
				changes["status"] = update.Status
			}
		}

		switch update.Status {
		case models.StatusDelivered:
			changes["delivered_at"] = update.Timestamp
		case models.StatusRead:
			changes["read_at"] = update.Timestamp
			if msg.DeliveredAt == nil {
				changes["delivered_at"] = update.Timestamp
			}
		}

		if len(changes) == 0 {
			continue
		}
		if err := db.Model(msg).Updates(changes).Error; err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// HasTerminalOutbound reports whether the contact has at least one prior
// outbound message that actually went through (SENT, DELIVERED or READ).
func HasTerminalOutbound(db *gorm.DB, companyID, contactID uint) (bool, error) {
	var count int64
	err := db.Model(&models.Message{}).
		Where("company_id = ? AND contact_id = ? AND direction = ? AND status IN ?",
			companyID, contactID, models.DirectionOutbound,
			[]string{models.StatusSent, models.StatusDelivered, models.StatusRead}).
		Count(&count).Error
	return count > 0, err
}

// ListMessages returns a conversation's messages in chronological order.
func ListMessages(db *gorm.DB, companyID, conversationID uint) ([]models.Message, error) {
	var out []models.Message
	err := db.Where("company_id = ? AND conversation_id = ?", companyID, conversationID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
