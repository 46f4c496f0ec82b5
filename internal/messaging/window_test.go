package messaging

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"whatsapp-connect/internal/models"
	"whatsapp-connect/internal/repo"
)

func seedContact(t *testing.T, db *gorm.DB, companyID uint, phone string) (*models.Contact, *models.Conversation) {
	t.Helper()
	contact, _, err := repo.GetOrCreateContact(db, companyID, phone)
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}
	conv, _, err := repo.GetOrCreateConversation(db, companyID, contact.ID)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	return contact, conv
}

func TestCanSendFreeForm_WindowBoundary(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{"one hour old", time.Hour, true},
		{"just inside", 24*time.Hour - time.Minute, true},
		{"exactly 24h", 24 * time.Hour, false},
		{"just outside", 24*time.Hour + time.Minute, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := newTestDB(t)
			company := seedCompany(t, db)
			contact, conv := seedContact(t, db, company.ID, "+15550002222")
			if err := repo.TouchConversation(db, conv.ID, now.Add(-tc.age)); err != nil {
				t.Fatalf("touch: %v", err)
			}

			ok, err := CanSendFreeForm(db, company.ID, contact.ID, now)
			if err != nil {
				t.Fatalf("window check: %v", err)
			}
			if ok != tc.want {
				t.Errorf("CanSendFreeForm with %v-old window = %v, want %v", tc.age, ok, tc.want)
			}
		})
	}
}

func TestCanSendFreeForm_NoConversationHistory(t *testing.T) {
	db := newTestDB(t)
	company := seedCompany(t, db)
	contact, _ := seedContact(t, db, company.ID, "+15550002222")

	ok, err := CanSendFreeForm(db, company.ID, contact.ID, time.Now())
	if err != nil {
		t.Fatalf("window check: %v", err)
	}
	if ok {
		t.Error("fresh contact with no history must be gated")
	}
}

func TestCanSendFreeForm_PriorOutboundOpensWindow(t *testing.T) {
	db := newTestDB(t)
	company := seedCompany(t, db)
	contact, conv := seedContact(t, db, company.ID, "+15550002222")

	remote := "wamid.prior"
	sentAt := time.Now().Add(-48 * time.Hour)
	msg := &models.Message{
		CompanyID:         company.ID,
		ConversationID:    conv.ID,
		ContactID:         contact.ID,
		Direction:         models.DirectionOutbound,
		Type:              "template",
		Status:            models.StatusDelivered,
		Content:           "Template: order_update",
		WhatsAppMessageID: &remote,
		SentAt:            &sentAt,
	}
	if err := repo.CreateMessage(db, msg); err != nil {
		t.Fatalf("seed message: %v", err)
	}

	ok, err := CanSendFreeForm(db, company.ID, contact.ID, time.Now())
	if err != nil {
		t.Fatalf("window check: %v", err)
	}
	if !ok {
		t.Error("prior delivered outbound must open the window")
	}
}

func TestCanSendFreeForm_FailedOutboundDoesNotCount(t *testing.T) {
	db := newTestDB(t)
	company := seedCompany(t, db)
	contact, conv := seedContact(t, db, company.ID, "+15550002222")

	msg := &models.Message{
		CompanyID:      company.ID,
		ConversationID: conv.ID,
		ContactID:      contact.ID,
		Direction:      models.DirectionOutbound,
		Type:           "text",
		Status:         models.StatusFailed,
		Content:        "hello",
		ErrorMessage:   "Message Undeliverable",
	}
	if err := repo.CreateMessage(db, msg); err != nil {
		t.Fatalf("seed message: %v", err)
	}

	ok, err := CanSendFreeForm(db, company.ID, contact.ID, time.Now())
	if err != nil {
		t.Fatalf("window check: %v", err)
	}
	if ok {
		t.Error("a failed outbound attempt must not open the window")
	}
}
