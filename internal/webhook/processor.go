package webhook

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"whatsapp-connect/internal/models"
	"whatsapp-connect/internal/repo"
)

// CompanyResolver maps a provider phone-number-id onto the owning tenant.
// It is an interface so the processor can be tested without a real store.
type CompanyResolver interface {
	ByPhoneNumberID(ctx context.Context, phoneNumberID string) (*models.Company, error)
}

// ErrCompanyNotFound is returned by resolvers when no tenant matches the
// phone-number-id.
var ErrCompanyNotFound = errors.New("no company configured for phone number id")

// GormCompanyResolver resolves tenants from the companies table.
type GormCompanyResolver struct {
	DB *gorm.DB
}

func (r *GormCompanyResolver) ByPhoneNumberID(ctx context.Context, phoneNumberID string) (*models.Company, error) {
	var company models.Company
	err := r.DB.WithContext(ctx).
		Where("phone_number_id = ?", phoneNumberID).
		First(&company).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCompanyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &company, nil
}

// statusMap translates provider status strings into the local enum.
var statusMap = map[string]string{
	"sent":      models.StatusSent,
	"delivered": models.StatusDelivered,
	"read":      models.StatusRead,
	"failed":    models.StatusFailed,
}

// Processor ingests webhook batches: inbound messages and delivery-status
// transitions. Per-event problems are logged and skipped; the processor
// never fails a batch because of one bad event.
type Processor struct {
	DB                 *gorm.DB
	Resolver           CompanyResolver
	DefaultCountryCode string
}

// Process walks every entry→changes→value block of the batch. It only
// returns an error for infrastructure failures (store unreachable), never
// for per-event problems.
func (p *Processor) Process(ctx context.Context, payload *Payload) error {
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "" && change.Field != "messages" {
				continue
			}
			if err := p.processValue(ctx, &change.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Processor) processValue(ctx context.Context, value *Value) error {
	company, err := p.Resolver.ByPhoneNumberID(ctx, value.Metadata.PhoneNumberID)
	if err != nil {
		if errors.Is(err, ErrCompanyNotFound) {
			log.Warn().
				Str("phone_number_id", value.Metadata.PhoneNumberID).
				Msg("webhook event for unknown phone number id, dropping")
			return nil
		}
		return err
	}

	names := make(map[string]string, len(value.Contacts))
	for _, c := range value.Contacts {
		names[c.WaID] = c.Profile.Name
	}

	for i := range value.Messages {
		if err := p.processInbound(ctx, company, &value.Messages[i], names); err != nil {
			return err
		}
	}
	for i := range value.Statuses {
		if err := p.processStatus(ctx, company, &value.Statuses[i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) processInbound(ctx context.Context, company *models.Company, event *IncomingMessage, names map[string]string) error {
	db := p.DB.WithContext(ctx)

	phone := normalizeInboundPhone(event.From, p.DefaultCountryCode)
	eventTime := eventTimestamp(event.Timestamp)

	contact, created, err := repo.GetOrCreateContact(db, company.ID, phone)
	if err != nil {
		return err
	}
	if name := names[event.From]; name != "" && contact.Name == "" {
		db.Model(contact).Update("name", name)
	}
	if err := repo.TouchContact(db, contact.ID, eventTime); err != nil {
		return err
	}

	conv, _, err := repo.GetOrCreateConversation(db, company.ID, contact.ID)
	if err != nil {
		return err
	}
	if err := repo.ReopenConversation(db, conv.ID, eventTime); err != nil {
		return err
	}

	if event.ID != "" {
		exists, err := repo.MessageExistsByRemoteID(db, company.ID, event.ID)
		if err != nil {
			return err
		}
		if exists {
			log.Debug().
				Str("whatsapp_message_id", event.ID).
				Msg("inbound event already recorded, skipping")
			return nil
		}
	}

	content, msgType := extractContent(event)
	msg := &models.Message{
		CompanyID:      company.ID,
		ConversationID: conv.ID,
		ContactID:      contact.ID,
		Direction:      models.DirectionInbound,
		Type:           msgType,
		Status:         models.StatusDelivered,
		Content:        content,
		SentAt:         &eventTime,
		DeliveredAt:    &eventTime,
	}
	if event.ID != "" {
		msg.WhatsAppMessageID = &event.ID
	}
	if err := repo.CreateMessage(db, msg); err != nil {
		return err
	}

	log.Info().
		Uint("company_id", company.ID).
		Str("phone", phone).
		Str("type", msgType).
		Bool("new_contact", created).
		Msg("inbound message recorded")
	return nil
}

func (p *Processor) processStatus(ctx context.Context, company *models.Company, event *StatusEvent) error {
	localStatus, ok := statusMap[event.Status]
	if !ok {
		log.Warn().
			Str("status", event.Status).
			Str("whatsapp_message_id", event.ID).
			Msg("unknown delivery status, skipping")
		return nil
	}

	update := repo.StatusUpdate{
		Status:    localStatus,
		Timestamp: eventTimestamp(event.Timestamp),
	}
	if localStatus == models.StatusFailed && len(event.Errors) > 0 {
		first := event.Errors[0]
		update.ErrorMessage = first.Title
		if first.ErrorData.Details != "" {
			update.ErrorMessage = fmt.Sprintf("%s: %s", first.Title, first.ErrorData.Details)
		}
	}

	matched, err := repo.ApplyStatusUpdate(p.DB.WithContext(ctx), event.ID, update)
	if err != nil {
		return err
	}
	if matched == 0 {
		// the message may predate local tracking
		log.Debug().
			Str("whatsapp_message_id", event.ID).
			Str("status", event.Status).
			Msg("status event matched no local message")
	}
	return nil
}

// extractContent flattens the typed event body into the stored content
// string: plain text, or a media reference with optional caption.
func extractContent(event *IncomingMessage) (content, msgType string) {
	msgType = event.Type
	switch event.Type {
	case "text":
		if event.Text != nil {
			content = event.Text.Body
		}
	case "image", "video", "audio", "document":
		media := event.Image
		switch event.Type {
		case "video":
			media = event.Video
		case "audio":
			media = event.Audio
		case "document":
			media = event.Document
		}
		if media != nil {
			content = "[" + event.Type + "]:" + media.ID
			if media.Caption != "" {
				content += ":" + media.Caption
			} else if media.Filename != "" {
				content += ":" + media.Filename
			}
		}
	default:
		content = "[" + event.Type + "]"
	}
	return content, msgType
}

// normalizeInboundPhone prefixes the sender's wa_id digits with "+". The
// provider already reports international digits, but a stray leading zero is
// rewritten with the default country code the same way outbound numbers are.
func normalizeInboundPhone(waID, defaultCountryCode string) string {
	digits := ""
	for _, r := range waID {
		if r >= '0' && r <= '9' {
			digits += string(r)
		}
	}
	if len(digits) > 0 && digits[0] == '0' {
		return "+" + defaultCountryCode + digits[1:]
	}
	return "+" + digits
}

// eventTimestamp parses the provider's unix-seconds wall clock. A malformed
// value falls back to processing time.
func eventTimestamp(raw string) time.Time {
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || sec <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(sec, 0).UTC()
}
