package messaging

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"whatsapp-connect/internal/models"
	"whatsapp-connect/internal/repo"
	"whatsapp-connect/internal/whatsapp"
)

// Payload kinds the dispatcher accepts.
const (
	KindText     = "text"
	KindTemplate = "template"
	KindMedia    = "media"
)

var phoneRE = regexp.MustCompile(`^\+\d{10,}$`)

// Sender is the slice of the provider client the dispatcher needs. Tests
// substitute a fake.
type Sender interface {
	SendMessage(ctx context.Context, creds whatsapp.Credentials, msg whatsapp.OutboundMessage) (*whatsapp.SendResponse, error)
}

// Dispatcher sends outbound messages: it normalizes the recipient, enforces
// the messaging-window policy for free-form payloads, calls the provider and
// records exactly one Message row per attempt. It never retries; retry
// policy belongs to the caller.
type Dispatcher struct {
	DB                 *gorm.DB
	Sender             Sender
	DefaultCountryCode string
}

// SendRequest describes one outbound send.
type SendRequest struct {
	To   string `json:"to"`
	Kind string `json:"kind"`

	// text
	Text string `json:"text,omitempty"`

	// template
	TemplateName     string   `json:"template_name,omitempty"`
	TemplateLanguage string   `json:"template_language,omitempty"`
	TemplateID       *uint    `json:"template_id,omitempty"`
	BodyParams       []string `json:"body_params,omitempty"`

	// media
	MediaType string `json:"media_type,omitempty"` // image, video, document, audio
	MediaID   string `json:"media_id,omitempty"`
	Caption   string `json:"caption,omitempty"`
	Filename  string `json:"filename,omitempty"`
}

// SendResult reports a successful dispatch.
type SendResult struct {
	MessageID         string `json:"message_id"`
	WhatsAppMessageID string `json:"whatsapp_message_id"`
	Phone             string `json:"phone"`
	Status            string `json:"status"`
}

// NormalizePhone rewrites a raw phone number into +<digits> form. A leading
// zero is replaced with the default country code; a bare number gets a "+"
// prefix. The result must match `+\d{10,}`.
func NormalizePhone(raw, defaultCountryCode string) (string, error) {
	var digits strings.Builder
	hasPlus := false
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' && i == 0:
			hasPlus = true
		}
	}

	d := digits.String()
	var normalized string
	switch {
	case hasPlus:
		normalized = "+" + d
	case strings.HasPrefix(d, "0"):
		normalized = "+" + defaultCountryCode + d[1:]
	default:
		normalized = "+" + d
	}

	if !phoneRE.MatchString(normalized) {
		return "", dispatchErrorf(CodeInvalidRecipient,
			"phone number %q is not a valid international number", raw)
	}
	return normalized, nil
}

// Send dispatches one outbound message for the tenant. On any failure after
// contact resolution a FAILED Message row is still recorded, carrying the
// provider error text.
func (d *Dispatcher) Send(ctx context.Context, company *models.Company, req SendRequest) (*SendResult, error) {
	phone, err := NormalizePhone(req.To, d.DefaultCountryCode)
	if err != nil {
		return nil, err
	}

	contact, _, err := repo.GetOrCreateContact(d.DB, company.ID, phone)
	if err != nil {
		return nil, err
	}
	conv, _, err := repo.GetOrCreateConversation(d.DB, company.ID, contact.ID)
	if err != nil {
		return nil, err
	}

	// template sends are allowed outside the window by the provider's design
	if req.Kind != KindTemplate {
		ok, err := CanSendFreeForm(d.DB, company.ID, contact.ID, time.Now())
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, dispatchErrorf(CodeWindowClosed,
				"no active 24-hour window with %s; send a template message first", phone)
		}
	}

	payload, content, err := d.buildPayload(phone, req)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	msg := &models.Message{
		CompanyID:      company.ID,
		ConversationID: conv.ID,
		ContactID:      contact.ID,
		TemplateID:     req.TemplateID,
		Direction:      models.DirectionOutbound,
		Type:           payload.Type,
		Content:        content,
	}

	resp, sendErr := d.Sender.SendMessage(ctx, credentials(company), payload)
	if sendErr != nil {
		dispatchErr := classifyProviderError(sendErr, req.TemplateName, req.TemplateLanguage)
		msg.Status = models.StatusFailed
		msg.ErrorMessage = sendErr.Error()
		if err := repo.CreateMessage(d.DB, msg); err != nil {
			log.Error().Err(err).Msg("failed to record failed outbound message")
		}
		return nil, dispatchErr
	}

	remoteID := resp.MessageID()
	if remoteID == "" {
		msg.Status = models.StatusFailed
		msg.ErrorMessage = "provider accepted the send but returned no message id"
		if err := repo.CreateMessage(d.DB, msg); err != nil {
			log.Error().Err(err).Msg("failed to record outbound message")
		}
		return nil, dispatchErrorf(CodeInvalidProviderResponse,
			"provider response carried no message id")
	}

	msg.Status = models.StatusSent
	msg.WhatsAppMessageID = &remoteID
	msg.SentAt = &now
	if err := repo.CreateMessage(d.DB, msg); err != nil {
		return nil, err
	}
	if err := repo.TouchConversation(d.DB, conv.ID, now); err != nil {
		return nil, err
	}
	if err := repo.TouchContact(d.DB, contact.ID, now); err != nil {
		return nil, err
	}

	log.Info().
		Uint("company_id", company.ID).
		Str("phone", phone).
		Str("kind", req.Kind).
		Str("whatsapp_message_id", remoteID).
		Msg("outbound message sent")

	return &SendResult{
		MessageID:         msg.ID,
		WhatsAppMessageID: remoteID,
		Phone:             phone,
		Status:            msg.Status,
	}, nil
}

func (d *Dispatcher) buildPayload(phone string, req SendRequest) (whatsapp.OutboundMessage, string, error) {
	msg := whatsapp.OutboundMessage{To: phone}

	switch req.Kind {
	case KindText:
		body := strings.TrimSpace(req.Text)
		if body == "" {
			return msg, "", dispatchErrorf(CodeProviderError, "text body must not be empty")
		}
		msg.Type = "text"
		msg.Text = &whatsapp.TextObj{Body: body}
		return msg, body, nil

	case KindTemplate:
		if req.TemplateName == "" || req.TemplateLanguage == "" {
			return msg, "", dispatchErrorf(CodeTemplateNotFound, "template name and language are required")
		}
		msg.Type = "template"
		tmpl := &whatsapp.TemplateObj{
			Name:     req.TemplateName,
			Language: whatsapp.LanguageObj{Code: req.TemplateLanguage},
		}
		if len(req.BodyParams) > 0 {
			params := make([]whatsapp.ParameterObj, 0, len(req.BodyParams))
			for _, p := range req.BodyParams {
				params = append(params, whatsapp.ParameterObj{Type: "text", Text: p})
			}
			tmpl.Components = []whatsapp.ComponentObj{{Type: "body", Parameters: params}}
		}
		msg.Template = tmpl
		return msg, "Template: " + req.TemplateName, nil

	case KindMedia:
		if req.MediaID == "" {
			return msg, "", dispatchErrorf(CodeProviderError, "media id is required for media sends")
		}
		media := &whatsapp.MediaObj{ID: req.MediaID, Caption: req.Caption}
		content := fmt.Sprintf("[%s]:%s", req.MediaType, req.MediaID)
		if req.Caption != "" {
			content += ":" + req.Caption
		}
		switch req.MediaType {
		case "image":
			msg.Image = media
		case "video":
			msg.Video = media
		case "audio":
			media.Caption = ""
			msg.Audio = media
		case "document":
			media.Filename = req.Filename
			msg.Document = media
		default:
			return msg, "", dispatchErrorf(CodeProviderError, "unsupported media type %q", req.MediaType)
		}
		msg.Type = req.MediaType
		return msg, content, nil
	}

	return msg, "", dispatchErrorf(CodeProviderError, "unsupported payload kind %q", req.Kind)
}

func credentials(company *models.Company) whatsapp.Credentials {
	return whatsapp.Credentials{
		AccessToken:       company.AccessToken,
		PhoneNumberID:     company.PhoneNumberID,
		BusinessAccountID: company.BusinessAccountID,
	}
}
