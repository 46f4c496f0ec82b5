package template

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"whatsapp-connect/internal/models"
	"whatsapp-connect/internal/whatsapp"
)

var (
	// ErrTemplateNotFound indicates the template does not exist for the tenant.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrTemplateExists indicates the tenant already owns a template with
	// that name.
	ErrTemplateExists = errors.New("template with this name already exists")

	// ErrTemplateInUse indicates an active campaign still references the
	// template, so it cannot be deleted.
	ErrTemplateInUse = errors.New("template is referenced by an active campaign")

	// ErrTemplateImmutable indicates the template is approved on the provider
	// side and can only change via a new version.
	ErrTemplateImmutable = errors.New("approved template is immutable; create a new version")
)

// ProviderAPI is the slice of the WhatsApp client the template service needs.
type ProviderAPI interface {
	CreateTemplate(ctx context.Context, creds whatsapp.Credentials, sub whatsapp.TemplateSubmission) (*whatsapp.TemplateCreateResponse, error)
	ListTemplates(ctx context.Context, creds whatsapp.Credentials) ([]whatsapp.RemoteTemplate, error)
	DeleteTemplate(ctx context.Context, creds whatsapp.Credentials, name string) error
}

// Service owns the template lifecycle: validation, persistence, submission
// to the provider, and reconciliation against the provider's state.
type Service struct {
	DB       *gorm.DB
	Provider ProviderAPI
}

// CreateInput is the raw client payload for a new template.
type CreateInput struct {
	Name       string            `json:"name"`
	Category   string            `json:"category"`
	Language   string            `json:"language"`
	Components []Component       `json:"components"`
	Variables  map[string]string `json:"variables,omitempty"`
}

// Create validates and normalizes the input and persists a DRAFT template.
func (s *Service) Create(ctx context.Context, companyID uint, input CreateInput) (*models.Template, error) {
	name := SanitizeName(input.Name)
	if name == "" {
		return nil, validationErrorf("template name must contain at least one of [a-z0-9_]")
	}
	category := strings.ToUpper(strings.TrimSpace(input.Category))
	switch category {
	case models.CategoryMarketing, models.CategoryUtility, models.CategoryAuthentication:
	default:
		return nil, validationErrorf("unknown template category %q", input.Category)
	}

	normalized, err := Validate(input.Components)
	if err != nil {
		return nil, err
	}
	componentsJSON, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	variablesJSON := "{}"
	if len(input.Variables) > 0 {
		raw, err := json.Marshal(input.Variables)
		if err != nil {
			return nil, err
		}
		variablesJSON = string(raw)
	}

	tmpl := &models.Template{
		CompanyID:  companyID,
		Name:       name,
		Category:   category,
		Language:   NormalizeLanguage(input.Language),
		Components: string(componentsJSON),
		Variables:  variablesJSON,
		Status:     models.TemplateDraft,
	}

	// insert under ux_templates_company_name so concurrent creates with the
	// same name surface as ErrTemplateExists, not a raw duplicate-key error
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(tmpl)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrTemplateExists
	}
	return tmpl, nil
}

// Get returns a tenant's template by id.
func (s *Service) Get(ctx context.Context, companyID, templateID uint) (*models.Template, error) {
	var tmpl models.Template
	err := s.DB.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, templateID).
		First(&tmpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// List returns all templates owned by a tenant.
func (s *Service) List(ctx context.Context, companyID uint) ([]models.Template, error) {
	var out []models.Template
	err := s.DB.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("name ASC").
		Find(&out).Error
	return out, err
}

// Submit sends a DRAFT template to the provider and moves it to PENDING with
// the remote id recorded.
func (s *Service) Submit(ctx context.Context, company *models.Company, templateID uint) (*models.Template, error) {
	tmpl, err := s.Get(ctx, company.ID, templateID)
	if err != nil {
		return nil, err
	}
	if tmpl.Status == models.TemplateApproved && tmpl.WhatsAppTemplateID != "" {
		return nil, ErrTemplateImmutable
	}

	sub, err := BuildSubmission(tmpl)
	if err != nil {
		return nil, err
	}
	created, err := s.Provider.CreateTemplate(ctx, credentials(company), sub)
	if err != nil {
		return nil, err
	}

	tmpl.WhatsAppTemplateID = created.ID
	tmpl.Status = StatusFromRemote(created.Status)
	if tmpl.Status == models.TemplateDraft {
		tmpl.Status = models.TemplatePending
	}
	if created.Category != "" {
		tmpl.Category = CategoryFromRemote(created.Category)
	}
	if err := s.DB.WithContext(ctx).Save(tmpl).Error; err != nil {
		return nil, err
	}
	return tmpl, nil
}

// SyncFromRemote reconciles local templates against the provider's state.
// A remote-id match always wins; matching by (name, language) is only the
// fallback when no local row carries the remote id.
func (s *Service) SyncFromRemote(ctx context.Context, company *models.Company) (int, error) {
	remotes, err := s.Provider.ListTemplates(ctx, credentials(company))
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, remote := range remotes {
		var tmpl models.Template
		err := s.DB.WithContext(ctx).
			Where("company_id = ? AND whatsapp_template_id = ?", company.ID, remote.ID).
			First(&tmpl).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = s.DB.WithContext(ctx).
				Where("company_id = ? AND name = ? AND language = ?", company.ID, remote.Name, NormalizeLanguage(remote.Language)).
				First(&tmpl).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Debug().
				Uint("company_id", company.ID).
				Str("template", remote.Name).
				Msg("remote template has no local counterpart, skipping")
			continue
		}
		if err != nil {
			return synced, err
		}

		tmpl.WhatsAppTemplateID = remote.ID
		tmpl.Status = StatusFromRemote(remote.Status)
		tmpl.Category = CategoryFromRemote(remote.Category)
		if tmpl.Status == models.TemplateRejected {
			tmpl.RejectionReason = remote.RejectedReason
		}
		if err := s.DB.WithContext(ctx).Save(&tmpl).Error; err != nil {
			return synced, err
		}
		synced++
	}
	return synced, nil
}

// Delete removes a template locally and best-effort remotely. It refuses
// while an active campaign references the template.
func (s *Service) Delete(ctx context.Context, company *models.Company, templateID uint) error {
	tmpl, err := s.Get(ctx, company.ID, templateID)
	if err != nil {
		return err
	}

	var active int64
	err = s.DB.WithContext(ctx).Model(&models.Campaign{}).
		Where("template_id = ? AND status IN ?", tmpl.ID, []string{models.CampaignScheduled, models.CampaignRunning}).
		Count(&active).Error
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrTemplateInUse
	}

	if err := s.DB.WithContext(ctx).Delete(tmpl).Error; err != nil {
		return err
	}

	if tmpl.WhatsAppTemplateID != "" && s.Provider != nil {
		if err := s.Provider.DeleteTemplate(ctx, credentials(company), tmpl.Name); err != nil {
			log.Warn().
				Err(err).
				Str("template", tmpl.Name).
				Msg("remote template deletion failed, local row removed")
		}
	}
	return nil
}

func credentials(company *models.Company) whatsapp.Credentials {
	return whatsapp.Credentials{
		AccessToken:       company.AccessToken,
		PhoneNumberID:     company.PhoneNumberID,
		BusinessAccountID: company.BusinessAccountID,
	}
}
