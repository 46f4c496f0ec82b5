package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Component types and header formats accepted by the provider.
const (
	ComponentHeader  = "HEADER"
	ComponentBody    = "BODY"
	ComponentFooter  = "FOOTER"
	ComponentButtons = "BUTTONS"

	FormatText     = "TEXT"
	FormatImage    = "IMAGE"
	FormatVideo    = "VIDEO"
	FormatDocument = "DOCUMENT"
)

const (
	maxBodyLength   = 1024
	maxHeaderLength = 60
	maxFooterLength = 60
	maxPlaceholder  = 10
)

// Component is one structural block of a template.
type Component struct {
	Type    string          `json:"type"`
	Format  string          `json:"format,omitempty"`
	Text    string          `json:"text,omitempty"`
	Example *Example        `json:"example,omitempty"`
	Buttons json.RawMessage `json:"buttons,omitempty"`
}

// Example carries sample values for placeholder-bearing components. The
// provider expects header samples as a flat array and body samples wrapped
// once into a 2D array.
type Example struct {
	HeaderText []string    `json:"header_text,omitempty"`
	BodyText   BodySamples `json:"body_text,omitempty"`
}

// BodySamples accepts both the flat form clients tend to submit and the
// nested form the provider requires, and always marshals nested.
type BodySamples [][]string

func (b *BodySamples) UnmarshalJSON(data []byte) error {
	var nested [][]string
	if err := json.Unmarshal(data, &nested); err == nil {
		*b = nested
		return nil
	}
	var flat []string
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	*b = BodySamples{flat}
	return nil
}

// Flat returns every sample value in order, regardless of nesting.
func (b BodySamples) Flat() []string {
	var out []string
	for _, row := range b {
		out = append(out, row...)
	}
	return out
}

// ValidationError reports a template structure violation. It is always local
// and raised before any network call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

var placeholderRE = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// ExtractPlaceholders returns the distinct numeric placeholder indices found
// in text and verifies every index is an integer in [1,10]. It does not check
// contiguity; CheckSequential does.
func ExtractPlaceholders(text string) ([]int, error) {
	matches := placeholderRE.FindAllStringSubmatch(text, -1)
	seen := make(map[int]bool)
	var indices []int
	for _, m := range matches {
		token := strings.TrimSpace(m[1])
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, validationErrorf("placeholder {{%s}} is not numeric", token)
		}
		if n < 1 || n > maxPlaceholder {
			return nil, validationErrorf("placeholder {{%d}} out of range: must be between 1 and %d", n, maxPlaceholder)
		}
		if !seen[n] {
			seen[n] = true
			indices = append(indices, n)
		}
	}
	return indices, nil
}

// CheckSequential verifies placeholder indices cover 1..max with no gaps.
func CheckSequential(indices []int) error {
	if len(indices) == 0 {
		return nil
	}
	max := 0
	present := make(map[int]bool, len(indices))
	for _, n := range indices {
		present[n] = true
		if n > max {
			max = n
		}
	}
	for i := 1; i <= max; i++ {
		if !present[i] {
			return validationErrorf("placeholders must be sequential without gaps: missing {{%d}}", i)
		}
	}
	return nil
}

// Validate normalizes and validates a raw component list against the
// provider's structural rules. It returns the normalized list or a
// *ValidationError. It is a pure function over its input.
func Validate(components []Component) ([]Component, error) {
	if len(components) == 0 {
		return nil, validationErrorf("template must have at least one component")
	}

	out := make([]Component, len(components))
	copy(out, components)

	bodyIdx := -1
	for i := range out {
		// the copy above is shallow; clone the example so normalization
		// never writes through to the caller's struct
		if out[i].Example != nil {
			ex := *out[i].Example
			out[i].Example = &ex
		}
		out[i].Type = strings.ToUpper(strings.TrimSpace(out[i].Type))
		out[i].Format = strings.ToUpper(strings.TrimSpace(out[i].Format))
		if out[i].Type == ComponentHeader && out[i].Format == "" {
			out[i].Format = FormatText
		}
		if out[i].Type == ComponentBody {
			if bodyIdx >= 0 {
				return nil, validationErrorf("template must have exactly one BODY component")
			}
			bodyIdx = i
		}
	}
	if bodyIdx < 0 {
		return nil, validationErrorf("template must have exactly one BODY component")
	}

	if err := validateBody(&out[bodyIdx]); err != nil {
		return nil, err
	}

	for i := range out {
		switch out[i].Type {
		case ComponentHeader:
			if err := validateHeader(&out[i]); err != nil {
				return nil, err
			}
		case ComponentFooter:
			if utf8.RuneCountInString(out[i].Text) > maxFooterLength {
				return nil, validationErrorf("FOOTER text must not exceed %d characters", maxFooterLength)
			}
		}
	}

	return out, nil
}

func validateBody(body *Component) error {
	text := strings.TrimSpace(body.Text)
	if text == "" {
		return validationErrorf("BODY text must not be empty")
	}
	if utf8.RuneCountInString(body.Text) > maxBodyLength {
		return validationErrorf("BODY text must not exceed %d characters", maxBodyLength)
	}

	indices, err := ExtractPlaceholders(body.Text)
	if err != nil {
		return err
	}
	if err := CheckSequential(indices); err != nil {
		return err
	}

	if len(indices) == 0 {
		// no placeholders, drop any stale sample payload
		if body.Example != nil {
			body.Example.BodyText = nil
			if len(body.Example.HeaderText) == 0 {
				body.Example = nil
			}
		}
		return nil
	}

	if body.Example == nil {
		return validationErrorf("BODY has %d placeholder(s) but no example values", len(indices))
	}
	samples := body.Example.BodyText.Flat()
	if len(samples) < len(indices) {
		return validationErrorf("BODY has %d placeholder(s) but only %d example value(s)", len(indices), len(samples))
	}
	for _, s := range samples {
		if strings.TrimSpace(s) == "" {
			return validationErrorf("BODY example values must not be empty")
		}
	}
	// provider convention: body samples nested once
	body.Example.BodyText = BodySamples{samples}
	return nil
}

func validateHeader(header *Component) error {
	if header.Format == FormatText {
		text := strings.TrimSpace(header.Text)
		if text == "" {
			return validationErrorf("HEADER with TEXT format requires non-empty text")
		}
		if utf8.RuneCountInString(header.Text) > maxHeaderLength {
			return validationErrorf("HEADER text must not exceed %d characters", maxHeaderLength)
		}
	} else if header.Text != "" {
		return validationErrorf("HEADER with %s format must not carry text", header.Format)
	}

	indices, err := ExtractPlaceholders(header.Text)
	if err != nil {
		return err
	}
	if err := CheckSequential(indices); err != nil {
		return err
	}
	if len(indices) == 0 {
		return nil
	}

	if header.Example == nil || len(header.Example.HeaderText) != len(indices) {
		return validationErrorf("HEADER has %d placeholder(s) and requires as many example values", len(indices))
	}
	for _, s := range header.Example.HeaderText {
		if strings.TrimSpace(s) == "" {
			return validationErrorf("HEADER example values must not be empty")
		}
	}
	return nil
}

var nameStripRE = regexp.MustCompile(`[^a-z0-9_]`)

// SanitizeName lowercases a template name and strips it to [a-z0-9_].
// Whitespace and dashes become underscores.
func SanitizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return nameStripRE.ReplaceAllString(s, "")
}

// NormalizeLanguage normalizes a language code to xx or xx_YY casing, e.g.
// "EN-us" becomes "en_US".
func NormalizeLanguage(code string) string {
	s := strings.TrimSpace(strings.ReplaceAll(code, "-", "_"))
	parts := strings.SplitN(s, "_", 2)
	lang := strings.ToLower(parts[0])
	if len(parts) == 1 || parts[1] == "" {
		return lang
	}
	return lang + "_" + strings.ToUpper(parts[1])
}
