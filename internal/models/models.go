package models

import (
	"time"
)

// Message direction
const (
	DirectionInbound  = "INBOUND"
	DirectionOutbound = "OUTBOUND"
)

// Message delivery status lifecycle. Transitions are monotonic except
// StatusFailed, which is terminal and reachable from any non-terminal state.
const (
	StatusScheduled = "SCHEDULED"
	StatusSending   = "SENDING"
	StatusSent      = "SENT"
	StatusDelivered = "DELIVERED"
	StatusRead      = "READ"
	StatusFailed    = "FAILED"
)

// Conversation status
const (
	ConversationOpen     = "OPEN"
	ConversationResolved = "RESOLVED"
	ConversationClosed   = "CLOSED"
)

// Template lifecycle status
const (
	TemplateDraft    = "DRAFT"
	TemplatePending  = "PENDING"
	TemplateApproved = "APPROVED"
	TemplateRejected = "REJECTED"
)

// Template categories accepted by the provider
const (
	CategoryMarketing      = "MARKETING"
	CategoryUtility        = "UTILITY"
	CategoryAuthentication = "AUTHENTICATION"
)

// Campaign status
const (
	CampaignDraft     = "draft"
	CampaignScheduled = "scheduled"
	CampaignRunning   = "running"
	CampaignCompleted = "completed"
)

// Company is a tenant holding its own WhatsApp Business connection. The
// PhoneNumberID is the provider-assigned identifier used to route webhook
// events back to the owning tenant.
type Company struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"type:varchar(255);not null" json:"name"`
	WhatsAppConnected bool      `gorm:"column:whatsapp_connected;default:false" json:"whatsapp_connected"`
	AccessToken       string    `gorm:"type:text" json:"-"`
	BusinessAccountID string    `gorm:"type:varchar(64)" json:"business_account_id"`
	PhoneNumberID     string    `gorm:"type:varchar(64);uniqueIndex" json:"phone_number_id"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Company) TableName() string {
	return "companies"
}

// Contact is a WhatsApp identity owned by a tenant, keyed by the normalized
// international phone number.
type Contact struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	CompanyID     uint       `gorm:"not null;uniqueIndex:ux_contacts_company_phone" json:"company_id"`
	Phone         string     `gorm:"type:varchar(32);not null;uniqueIndex:ux_contacts_company_phone" json:"phone"`
	Name          string     `gorm:"type:varchar(255)" json:"name"`
	LastMessageAt *time.Time `json:"last_message_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Company Company `json:"-" gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE"`
}

func (Contact) TableName() string {
	return "contacts"
}

// Conversation is the single thread between a tenant and a contact. Its
// LastMessageAt is the sole input to the 24-hour messaging-window policy.
type Conversation struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	CompanyID     uint       `gorm:"not null;uniqueIndex:ux_conversations_company_contact" json:"company_id"`
	ContactID     uint       `gorm:"not null;uniqueIndex:ux_conversations_company_contact" json:"contact_id"`
	Status        string     `gorm:"type:varchar(20);default:'OPEN'" json:"status"`
	LastMessageAt *time.Time `json:"last_message_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Company Company `json:"-" gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE"`
	Contact Contact `json:"-" gorm:"foreignKey:ContactID;constraint:OnDelete:CASCADE"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Message is the append-only record of a single send or receive event.
// WhatsAppMessageID is the provider message id, unique when present; webhook
// status events are matched against it.
type Message struct {
	ID                string     `gorm:"type:char(36);primaryKey" json:"id"`
	CompanyID         uint       `gorm:"not null;index" json:"company_id"`
	ConversationID    uint       `gorm:"not null;index" json:"conversation_id"`
	ContactID         uint       `gorm:"not null;index" json:"contact_id"`
	TemplateID        *uint      `json:"template_id,omitempty"`
	Direction         string     `gorm:"type:varchar(10);not null" json:"direction"`
	Type              string     `gorm:"type:varchar(20);not null" json:"type"`
	Status            string     `gorm:"type:varchar(20);not null" json:"status"`
	Content           string     `gorm:"type:text" json:"content"`
	WhatsAppMessageID *string    `gorm:"column:whatsapp_message_id;type:varchar(128);uniqueIndex" json:"whatsapp_message_id,omitempty"`
	ErrorMessage      string     `gorm:"type:text" json:"error_message,omitempty"`
	SentAt            *time.Time `json:"sent_at"`
	DeliveredAt       *time.Time `json:"delivered_at"`
	ReadAt            *time.Time `json:"read_at"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Company      Company      `json:"-" gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE"`
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

func (Message) TableName() string {
	return "messages"
}

// Template is a reusable, provider-approved message shape owned by a tenant.
// Components holds the normalized component list as JSON. A template that is
// APPROVED and carries a WhatsAppTemplateID is immutable except via a new
// version.
type Template struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	CompanyID          uint      `gorm:"not null;uniqueIndex:ux_templates_company_name" json:"company_id"`
	Name               string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_templates_company_name" json:"name"`
	Category           string    `gorm:"type:varchar(20);not null" json:"category"`
	Language           string    `gorm:"type:varchar(10);not null" json:"language"`
	Components         string    `gorm:"type:text" json:"components"`
	Variables          string    `gorm:"type:text" json:"variables"`
	Status             string    `gorm:"type:varchar(20);default:'DRAFT'" json:"status"`
	WhatsAppTemplateID string    `gorm:"column:whatsapp_template_id;type:varchar(64)" json:"whatsapp_template_id"`
	RejectionReason    string    `gorm:"type:text" json:"rejection_reason,omitempty"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Company Company `json:"-" gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE"`
}

func (Template) TableName() string {
	return "templates"
}

// Campaign references a template for broadcast use. The engine only consults
// it to refuse deleting a template that an active campaign still needs.
type Campaign struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CompanyID  uint      `gorm:"not null;index" json:"company_id"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	TemplateID uint      `gorm:"not null;index" json:"template_id"`
	Status     string    `gorm:"type:varchar(20);default:'draft'" json:"status"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Company  Company  `json:"-" gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE"`
	Template Template `json:"-" gorm:"foreignKey:TemplateID"`
}

func (Campaign) TableName() string {
	return "campaigns"
}

// IsTerminalOutbound reports whether a status counts as successful outbound
// history for the messaging-window policy. FAILED does not count.
func IsTerminalOutbound(status string) bool {
	switch status {
	case StatusSent, StatusDelivered, StatusRead:
		return true
	}
	return false
}
