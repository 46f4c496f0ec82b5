package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

const (
	graphBaseURL    = "https://graph.facebook.com"
	defaultVersion  = "v19.0"
	defaultTimeout  = 30 * time.Second
	productWhatsApp = "whatsapp"
)

// Credentials identifies one tenant's WhatsApp Business connection.
type Credentials struct {
	AccessToken       string
	PhoneNumberID     string
	BusinessAccountID string
}

// APIError is a Graph API error response. Code and Subcode drive the
// dispatcher's error classification.
type APIError struct {
	HTTPStatus int
	Code       int
	Subcode    int
	Message    string
	FbtraceID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api error %d (code %d): %s", e.HTTPStatus, e.Code, e.Message)
}

type graphErrorResponse struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		FbtraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

// Client talks to the WhatsApp Cloud API. It holds no tenant state; every
// call takes the tenant's credentials.
type Client struct {
	httpClient *http.Client
	baseURL    string
	version    string
}

type Option func(*Client)

// WithBaseURL overrides the Graph endpoint, used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithVersion(v string) Option {
	return func(c *Client) { c.version = v }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    graphBaseURL,
		version:    defaultVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.version, path)
}

func (c *Client) sendRequest(ctx context.Context, creds Credentials, method, url string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

func parseAPIError(status int, body []byte) error {
	var graphErr graphErrorResponse
	if err := json.Unmarshal(body, &graphErr); err == nil && graphErr.Error.Message != "" {
		return &APIError{
			HTTPStatus: status,
			Code:       graphErr.Error.Code,
			Subcode:    graphErr.Error.ErrorSubcode,
			Message:    graphErr.Error.Message,
			FbtraceID:  graphErr.Error.FbtraceID,
		}
	}
	return &APIError{HTTPStatus: status, Message: string(body)}
}

// --- Messaging ---

// SendMessage posts an outbound message to the tenant's phone number.
func (c *Client) SendMessage(ctx context.Context, creds Credentials, msg OutboundMessage) (*SendResponse, error) {
	msg.MessagingProduct = productWhatsApp
	if msg.RecipientType == "" {
		msg.RecipientType = "individual"
	}

	respBody, err := c.sendRequest(ctx, creds, http.MethodPost, c.endpoint(creds.PhoneNumberID+"/messages"), msg)
	if err != nil {
		return nil, err
	}

	var sendResp SendResponse
	if err := json.Unmarshal(respBody, &sendResp); err != nil {
		return nil, fmt.Errorf("decode send response: %w", err)
	}
	return &sendResp, nil
}

// --- Template management ---

// CreateTemplate submits a template to the tenant's business account.
func (c *Client) CreateTemplate(ctx context.Context, creds Credentials, sub TemplateSubmission) (*TemplateCreateResponse, error) {
	respBody, err := c.sendRequest(ctx, creds, http.MethodPost, c.endpoint(creds.BusinessAccountID+"/message_templates"), sub)
	if err != nil {
		return nil, err
	}

	var created TemplateCreateResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("decode template response: %w", err)
	}
	return &created, nil
}

// ListTemplates fetches all templates registered on the business account.
func (c *Client) ListTemplates(ctx context.Context, creds Credentials) ([]RemoteTemplate, error) {
	respBody, err := c.sendRequest(ctx, creds, http.MethodGet, c.endpoint(creds.BusinessAccountID+"/message_templates"), nil)
	if err != nil {
		return nil, err
	}

	var list struct {
		Data []RemoteTemplate `json:"data"`
	}
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, fmt.Errorf("decode template list: %w", err)
	}
	return list.Data, nil
}

// DeleteTemplate removes a template by name from the business account.
func (c *Client) DeleteTemplate(ctx context.Context, creds Credentials, name string) error {
	u := c.endpoint(creds.BusinessAccountID+"/message_templates") + "?name=" + url.QueryEscape(name)
	_, err := c.sendRequest(ctx, creds, http.MethodDelete, u, nil)
	return err
}

// --- Media ---

// UploadMedia uploads binary data and returns the provider media id, which
// outbound media sends reference.
func (c *Client) UploadMedia(ctx context.Context, creds Credentials, filename, mimeType string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("messaging_product", productWhatsApp); err != nil {
		return "", err
	}
	if mimeType != "" {
		if err := writer.WriteField("type", mimeType); err != nil {
			return "", err
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(creds.PhoneNumberID+"/media"), &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", parseAPIError(resp.StatusCode, respBody)
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &uploaded); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if uploaded.ID == "" {
		return "", fmt.Errorf("empty media id in upload response")
	}
	return uploaded.ID, nil
}

// RetrieveMediaURL resolves a media id to its short-lived download URL.
func (c *Client) RetrieveMediaURL(ctx context.Context, creds Credentials, mediaID string) (string, error) {
	respBody, err := c.sendRequest(ctx, creds, http.MethodGet, c.endpoint(mediaID), nil)
	if err != nil {
		return "", err
	}

	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(respBody, &obj); err != nil {
		return "", fmt.Errorf("decode media response: %w", err)
	}
	return obj.URL, nil
}
