package repo

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"whatsapp-connect/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Company{},
		&models.Contact{},
		&models.Conversation{},
		&models.Message{},
		&models.Template{},
		&models.Campaign{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedCompany(t *testing.T, db *gorm.DB) *models.Company {
	t.Helper()
	company := &models.Company{
		Name:          "Acme",
		PhoneNumberID: "pn-" + uuid.NewString(),
	}
	if err := db.Create(company).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	return company
}

func TestGetOrCreateContact(t *testing.T) {
	db := newTestDB(t)
	company := seedCompany(t, db)

	first, created, err := GetOrCreateContact(db, company.ID, "+15550001111")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if !created {
		t.Error("first call must insert")
	}

	second, created, err := GetOrCreateContact(db, company.ID, "+15550001111")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if created {
		t.Error("second call must not insert")
	}
	if second.ID != first.ID {
		t.Errorf("calls converged on different rows: %d vs %d", first.ID, second.ID)
	}

	// same phone under another tenant is a distinct contact
	other := seedCompany(t, db)
	cross, created, err := GetOrCreateContact(db, other.ID, "+15550001111")
	if err != nil {
		t.Fatalf("cross-tenant call: %v", err)
	}
	if !created || cross.ID == first.ID {
		t.Errorf("tenants must not share contacts: created=%v id=%d", created, cross.ID)
	}
}

func TestGetOrCreateConversation(t *testing.T) {
	db := newTestDB(t)
	company := seedCompany(t, db)
	contact, _, err := GetOrCreateContact(db, company.ID, "+15550001111")
	if err != nil {
		t.Fatalf("contact: %v", err)
	}

	first, created, err := GetOrCreateConversation(db, company.ID, contact.ID)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if !created || first.Status != models.ConversationOpen {
		t.Errorf("new conversation: created=%v status=%q", created, first.Status)
	}

	second, created, err := GetOrCreateConversation(db, company.ID, contact.ID)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if created || second.ID != first.ID {
		t.Errorf("calls converged on different rows: %d vs %d", first.ID, second.ID)
	}
}

func TestReopenConversation(t *testing.T) {
	db := newTestDB(t)
	company := seedCompany(t, db)
	contact, _, _ := GetOrCreateContact(db, company.ID, "+15550001111")
	conv, _, _ := GetOrCreateConversation(db, company.ID, contact.ID)

	if err := db.Model(conv).Update("status", models.ConversationClosed).Error; err != nil {
		t.Fatalf("close: %v", err)
	}
	at := time.Now()
	if err := ReopenConversation(db, conv.ID, at); err != nil {
		t.Fatalf("reopen: %v", err)
	}

	var got models.Conversation
	if err := db.First(&got, conv.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != models.ConversationOpen {
		t.Errorf("status = %q, want OPEN", got.Status)
	}
	if got.LastMessageAt == nil {
		t.Error("last_message_at not bumped")
	}
}

func seedMessage(t *testing.T, db *gorm.DB, company *models.Company, remoteID, status string) *models.Message {
	t.Helper()
	contact, _, err := GetOrCreateContact(db, company.ID, "+15550001111")
	if err != nil {
		t.Fatalf("contact: %v", err)
	}
	conv, _, err := GetOrCreateConversation(db, company.ID, contact.ID)
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}
	msg := &models.Message{
		CompanyID:      company.ID,
		ConversationID: conv.ID,
		ContactID:      contact.ID,
		Direction:      models.DirectionOutbound,
		Type:           "text",
		Status:         status,
		Content:        "hello",
	}
	if remoteID != "" {
		msg.WhatsAppMessageID = &remoteID
	}
	if err := CreateMessage(db, msg); err != nil {
		t.Fatalf("message: %v", err)
	}
	return msg
}

func TestApplyStatusUpdate_Monotonic(t *testing.T) {
	db := newTestDB(t)
	company := seedCompany(t, db)
	msg := seedMessage(t, db, company, "wamid.1", models.StatusDelivered)

	// a late "sent" must not move the message backwards
	n, err := ApplyStatusUpdate(db, "wamid.1", StatusUpdate{Status: models.StatusSent, Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if n != 0 {
		t.Errorf("late sent applied %d changes, want 0", n)
	}

	var got models.Message
	if err := db.First(&got, "id = ?", msg.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != models.StatusDelivered {
		t.Errorf("status regressed to %q", got.Status)
	}
}

func TestApplyStatusUpdate_FailedIsTerminal(t *testing.T) {
	db := newTestDB(t)
	company := seedCompany(t, db)
	msg := seedMessage(t, db, company, "wamid.1", models.StatusSent)

	if _, err := ApplyStatusUpdate(db, "wamid.1", StatusUpdate{
		Status:       models.StatusFailed,
		Timestamp:    time.Now(),
		ErrorMessage: "Message Undeliverable",
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// no later event may resurrect a failed message
	if _, err := ApplyStatusUpdate(db, "wamid.1", StatusUpdate{Status: models.StatusDelivered, Timestamp: time.Now()}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	var got models.Message
	if err := db.First(&got, "id = ?", msg.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != models.StatusFailed {
		t.Errorf("status = %q, want FAILED", got.Status)
	}
	if got.ErrorMessage != "Message Undeliverable" {
		t.Errorf("error message = %q", got.ErrorMessage)
	}
}

func TestApplyStatusUpdate_ZeroMatches(t *testing.T) {
	db := newTestDB(t)
	n, err := ApplyStatusUpdate(db, "wamid.unknown", StatusUpdate{Status: models.StatusDelivered, Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if n != 0 {
		t.Errorf("applied %d, want 0", n)
	}
}

func TestMessageExistsByRemoteID(t *testing.T) {
	db := newTestDB(t)
	company := seedCompany(t, db)
	seedMessage(t, db, company, "wamid.1", models.StatusSent)

	exists, err := MessageExistsByRemoteID(db, company.ID, "wamid.1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !exists {
		t.Error("recorded remote id not found")
	}
	exists, err = MessageExistsByRemoteID(db, company.ID, "wamid.2")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if exists {
		t.Error("unknown remote id reported as existing")
	}
}
