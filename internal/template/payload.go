package template

import (
	"encoding/json"
	"strings"

	"whatsapp-connect/internal/models"
	"whatsapp-connect/internal/whatsapp"
)

// BuildProviderComponents maps a normalized component list to the provider's
// wire schema. Body samples go out nested once (2D), header samples flat;
// empty fields are omitted; buttons pass through verbatim.
func BuildProviderComponents(components []Component) ([]whatsapp.TemplateComponent, error) {
	out := make([]whatsapp.TemplateComponent, 0, len(components))
	for _, c := range components {
		wc := whatsapp.TemplateComponent{
			Type:   c.Type,
			Format: c.Format,
			Text:   c.Text,
		}
		if c.Example != nil && (len(c.Example.HeaderText) > 0 || len(c.Example.BodyText) > 0) {
			wc.Example = &whatsapp.TemplateExample{
				HeaderText: c.Example.HeaderText,
				BodyText:   c.Example.BodyText,
			}
		}
		if len(c.Buttons) > 0 {
			var buttons []whatsapp.TemplateButton
			if err := json.Unmarshal(c.Buttons, &buttons); err != nil {
				return nil, validationErrorf("invalid buttons payload: %v", err)
			}
			wc.Buttons = buttons
		}
		out = append(out, wc)
	}
	return out, nil
}

// BuildSubmission assembles the provider template-creation payload from a
// stored template record.
func BuildSubmission(t *models.Template) (whatsapp.TemplateSubmission, error) {
	var components []Component
	if err := json.Unmarshal([]byte(t.Components), &components); err != nil {
		return whatsapp.TemplateSubmission{}, validationErrorf("stored components are not valid JSON: %v", err)
	}
	wire, err := BuildProviderComponents(components)
	if err != nil {
		return whatsapp.TemplateSubmission{}, err
	}
	return whatsapp.TemplateSubmission{
		Name:                t.Name,
		Category:            t.Category,
		AllowCategoryChange: true,
		Language:            t.Language,
		Components:          wire,
	}, nil
}

// StatusFromRemote maps a provider template status to the local lifecycle
// enum. Anything unrecognized (pending, in-appeal, paused variants) is
// treated as still pending.
func StatusFromRemote(status string) string {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "APPROVED":
		return models.TemplateApproved
	case "REJECTED":
		return models.TemplateRejected
	default:
		return models.TemplatePending
	}
}

// CategoryFromRemote maps a provider category to the local enum. UTILITY is
// the conservative default for unrecognized values.
func CategoryFromRemote(category string) string {
	switch strings.ToUpper(strings.TrimSpace(category)) {
	case models.CategoryMarketing:
		return models.CategoryMarketing
	case models.CategoryAuthentication:
		return models.CategoryAuthentication
	default:
		return models.CategoryUtility
	}
}
