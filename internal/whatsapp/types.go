package whatsapp

// --- Outbound message wire structures ---

// OutboundMessage is the provider send payload.
type OutboundMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type,omitempty"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *TextObj     `json:"text,omitempty"`
	Image            *MediaObj    `json:"image,omitempty"`
	Video            *MediaObj    `json:"video,omitempty"`
	Audio            *MediaObj    `json:"audio,omitempty"`
	Document         *MediaObj    `json:"document,omitempty"`
	Template         *TemplateObj `json:"template,omitempty"`
}

type TextObj struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url,omitempty"`
}

type MediaObj struct {
	ID       string `json:"id,omitempty"`
	Link     string `json:"link,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type TemplateObj struct {
	Name       string         `json:"name"`
	Language   LanguageObj    `json:"language"`
	Components []ComponentObj `json:"components,omitempty"`
}

type LanguageObj struct {
	Code string `json:"code"`
}

type ComponentObj struct {
	Type       string         `json:"type"`
	SubType    string         `json:"sub_type,omitempty"`
	Index      string         `json:"index,omitempty"`
	Parameters []ParameterObj `json:"parameters,omitempty"`
}

type ParameterObj struct {
	Type  string    `json:"type"`
	Text  string    `json:"text,omitempty"`
	Image *MediaObj `json:"image,omitempty"`
	Video *MediaObj `json:"video,omitempty"`
}

// SendResponse is the provider's reply to a successful message send.
type SendResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// MessageID returns the remote message identifier, or "" when the response
// carries none.
func (r *SendResponse) MessageID() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].ID
}

// --- Template management wire structures ---

// TemplateSubmission is the payload for creating a message template.
type TemplateSubmission struct {
	Name                string              `json:"name"`
	Category            string              `json:"category"`
	AllowCategoryChange bool                `json:"allow_category_change"`
	Language            string              `json:"language"`
	Components          []TemplateComponent `json:"components"`
}

// TemplateComponent matches the provider's template component schema.
// body_text is nested once into a 2D array; header_text stays flat.
type TemplateComponent struct {
	Type    string           `json:"type"`
	Format  string           `json:"format,omitempty"`
	Text    string           `json:"text,omitempty"`
	Example *TemplateExample `json:"example,omitempty"`
	Buttons []TemplateButton `json:"buttons,omitempty"`
}

type TemplateExample struct {
	HeaderText []string   `json:"header_text,omitempty"`
	BodyText   [][]string `json:"body_text,omitempty"`
}

type TemplateButton struct {
	Type string `json:"type"`
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// RemoteTemplate is a template as reported by the provider.
type RemoteTemplate struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Language       string              `json:"language"`
	Status         string              `json:"status"`
	Category       string              `json:"category"`
	RejectedReason string              `json:"rejected_reason,omitempty"`
	Components     []TemplateComponent `json:"components,omitempty"`
}

// TemplateCreateResponse is the provider's reply to a template submission.
type TemplateCreateResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Category string `json:"category"`
}
