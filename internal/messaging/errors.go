// Package messaging implements the outbound side of the engine: the
// 24-hour messaging-window policy and the dispatcher that sends text,
// template and media payloads through the provider while tracking local
// delivery state.
package messaging

import (
	"errors"
	"fmt"
	"net/http"

	"whatsapp-connect/internal/whatsapp"
)

// DispatchCode classifies a dispatch failure for the caller. The mapping
// from provider error codes is best-effort; unclassified failures carry the
// raw provider message under CodeProviderError.
type DispatchCode string

const (
	CodeRecipientUnreachable    DispatchCode = "RECIPIENT_UNREACHABLE"
	CodeSendRejected            DispatchCode = "SEND_REJECTED"
	CodeWindowClosed            DispatchCode = "WINDOW_CLOSED"
	CodeRateLimited             DispatchCode = "RATE_LIMITED"
	CodeInvalidRecipient        DispatchCode = "INVALID_RECIPIENT"
	CodeTemplateNotFound        DispatchCode = "TEMPLATE_NOT_FOUND"
	CodeInvalidProviderResponse DispatchCode = "INVALID_PROVIDER_RESPONSE"
	CodeProviderError           DispatchCode = "PROVIDER_ERROR"
)

// DispatchError is the discriminated failure type of the dispatcher: a
// classification tag plus a human-readable detail, decoupled from the
// transport library's error shape.
type DispatchError struct {
	Code   DispatchCode
	Detail string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func dispatchErrorf(code DispatchCode, format string, args ...any) *DispatchError {
	return &DispatchError{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Provider error codes the classification table recognizes.
const (
	errCodeUndeliverable    = 131026 // recipient not on WhatsApp
	errCodeNotAllowed       = 131030 // recipient blocked or not in allowed list
	errCodeReengagement     = 131047 // 24h window expired, template required
	errCodeThrottled        = 130429 // cloud API rate limit hit
	errCodeInvalidParameter = 131009 // invalid recipient number format
	errCodeTemplateMissing  = 132001 // template name does not exist for language
	errCodeTemplatePaused   = 132015 // template paused or not approved
)

// classifyProviderError maps a provider failure onto the dispatch taxonomy.
// templateName and language name the template that failed, when one did.
func classifyProviderError(err error, templateName, language string) *DispatchError {
	var apiErr *whatsapp.APIError
	if !errors.As(err, &apiErr) {
		// network failure, timeout, or malformed response
		return dispatchErrorf(CodeProviderError, "provider call failed: %v", err)
	}

	switch apiErr.Code {
	case errCodeUndeliverable:
		return dispatchErrorf(CodeRecipientUnreachable,
			"recipient does not appear to use WhatsApp or cannot receive this message")
	case errCodeNotAllowed:
		return dispatchErrorf(CodeSendRejected,
			"send rejected: the recipient may have blocked this number or the number is invalid")
	case errCodeReengagement:
		return dispatchErrorf(CodeWindowClosed,
			"the 24-hour messaging window has expired; send a template message first")
	case errCodeThrottled:
		return dispatchErrorf(CodeRateLimited, "provider rate limit reached, retry later")
	case errCodeInvalidParameter:
		return dispatchErrorf(CodeInvalidRecipient,
			"recipient number is not in a valid international format")
	case errCodeTemplateMissing:
		return dispatchErrorf(CodeTemplateNotFound,
			"template %q does not exist for language %q", templateName, language)
	case errCodeTemplatePaused:
		return dispatchErrorf(CodeTemplateNotFound,
			"template %q is not approved for sending; verify its approval state", templateName)
	}

	if apiErr.HTTPStatus == http.StatusTooManyRequests {
		return dispatchErrorf(CodeRateLimited, "provider rate limit reached, retry later")
	}

	return dispatchErrorf(CodeProviderError, "%s", apiErr.Message)
}
