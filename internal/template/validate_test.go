package template

import (
	"strings"
	"testing"
)

func body(text string) Component {
	return Component{Type: "BODY", Text: text}
}

func bodyWithSamples(text string, samples ...string) Component {
	return Component{
		Type:    "BODY",
		Text:    text,
		Example: &Example{BodyText: BodySamples{samples}},
	}
}

func TestValidate_EmptyComponentList(t *testing.T) {
	if _, err := Validate(nil); err == nil {
		t.Fatal("expected error for empty component list")
	}
}

func TestValidate_RequiresExactlyOneBody(t *testing.T) {
	cases := []struct {
		name       string
		components []Component
	}{
		{"no body", []Component{{Type: "FOOTER", Text: "bye"}}},
		{"two bodies", []Component{body("one"), body("two")}},
		{"empty body text", []Component{body("   ")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Validate(tc.components); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidate_NormalizesTypeAndFormat(t *testing.T) {
	out, err := Validate([]Component{
		{Type: "header", Text: "Hello"},
		{Type: "body", Text: "Hi there"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].Type != "HEADER" {
		t.Errorf("type not uppercased: %q", out[0].Type)
	}
	if out[0].Format != "TEXT" {
		t.Errorf("header format not defaulted to TEXT: %q", out[0].Format)
	}
}

func TestValidate_BodyLength(t *testing.T) {
	long := strings.Repeat("a", 1025)
	if _, err := Validate([]Component{body(long)}); err == nil {
		t.Fatal("expected error for body over 1024 characters")
	}
	if _, err := Validate([]Component{body(strings.Repeat("a", 1024))}); err != nil {
		t.Fatalf("1024-character body should pass: %v", err)
	}
	// caps count characters, not bytes
	if _, err := Validate([]Component{body(strings.Repeat("é", 1024))}); err != nil {
		t.Fatalf("1024 multi-byte characters should pass: %v", err)
	}
	if _, err := Validate([]Component{body(strings.Repeat("é", 1025))}); err == nil {
		t.Fatal("expected error for 1025 multi-byte characters")
	}
}

func TestValidate_HeaderFooterLengthCountsRunes(t *testing.T) {
	header := Component{Type: "HEADER", Format: "TEXT", Text: strings.Repeat("ü", 60)}
	if _, err := Validate([]Component{header, body("Hello")}); err != nil {
		t.Fatalf("60 multi-byte header characters should pass: %v", err)
	}
	header.Text = strings.Repeat("ü", 61)
	if _, err := Validate([]Component{header, body("Hello")}); err == nil {
		t.Fatal("expected error for 61-character header")
	}

	footer := Component{Type: "FOOTER", Text: strings.Repeat("ü", 60)}
	if _, err := Validate([]Component{body("Hello"), footer}); err != nil {
		t.Fatalf("60 multi-byte footer characters should pass: %v", err)
	}
}

func TestValidate_DoesNotMutateInput(t *testing.T) {
	withSamples := []Component{{
		Type:    "BODY",
		Text:    "Hi {{1}}, meet {{2}}",
		Example: &Example{BodyText: BodySamples{{"Sam"}, {"Alex"}}},
	}}
	out, err := Validate(withSamples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out[0].Example.BodyText; len(got) != 1 || len(got[0]) != 2 {
		t.Fatalf("output samples not re-nested once: %#v", got)
	}
	in := withSamples[0].Example.BodyText
	if len(in) != 2 || in[0][0] != "Sam" || in[1][0] != "Alex" {
		t.Fatalf("caller's sample payload mutated: %#v", in)
	}

	stale := []Component{{
		Type:    "BODY",
		Text:    "No placeholders here",
		Example: &Example{BodyText: BodySamples{{"stale"}}},
	}}
	if _, err := Validate(stale); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stale[0].Example == nil || stale[0].Example.BodyText == nil {
		t.Fatal("caller's stale example nil'ed through the shared pointer")
	}
}

func TestValidate_PlaceholderSequencing(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		samples []string
		wantErr bool
	}{
		{"sequential pair", "Hi {{1}}, meet {{2}}", []string{"Sam", "Alex"}, false},
		{"gap", "Hi {{1}}, meet {{3}}", []string{"Sam", "Alex"}, true},
		{"starts past one", "Hi {{2}}", []string{"Sam"}, true},
		{"non numeric", "Hi {{name}}", nil, true},
		{"zero", "Hi {{0}}", nil, true},
		{"over ten", "Hi {{11}}", nil, true},
		{"repeated index", "Hi {{1}} and {{1}}", []string{"Sam"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			comp := body(tc.text)
			if tc.samples != nil {
				comp = bodyWithSamples(tc.text, tc.samples...)
			}
			_, err := Validate([]Component{comp})
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidate_BodySampleRules(t *testing.T) {
	// missing samples
	if _, err := Validate([]Component{body("Hi {{1}}")}); err == nil {
		t.Fatal("expected error when placeholders lack sample values")
	}
	// too few samples
	if _, err := Validate([]Component{bodyWithSamples("Hi {{1}} {{2}}", "Sam")}); err == nil {
		t.Fatal("expected error for fewer samples than placeholders")
	}
	// blank sample
	if _, err := Validate([]Component{bodyWithSamples("Hi {{1}}", "   ")}); err == nil {
		t.Fatal("expected error for blank sample value")
	}
}

func TestValidate_NestsBodySamplesOnce(t *testing.T) {
	out, err := Validate([]Component{bodyWithSamples("Hi {{1}}, welcome!", "Sam")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out[0].Example.BodyText
	if len(got) != 1 || len(got[0]) != 1 || got[0][0] != "Sam" {
		t.Fatalf("body samples not nested once: %#v", got)
	}
}

func TestValidate_StripsStaleExample(t *testing.T) {
	out, err := Validate([]Component{{
		Type:    "BODY",
		Text:    "No placeholders here",
		Example: &Example{BodyText: BodySamples{{"stale"}}},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].Example != nil {
		t.Fatalf("stale example payload not stripped: %#v", out[0].Example)
	}
}

func TestValidate_HeaderRules(t *testing.T) {
	cases := []struct {
		name    string
		header  Component
		wantErr bool
	}{
		{"text header ok", Component{Type: "HEADER", Format: "TEXT", Text: "Welcome"}, false},
		{"text header empty", Component{Type: "HEADER", Format: "TEXT", Text: " "}, true},
		{"text header too long", Component{Type: "HEADER", Format: "TEXT", Text: strings.Repeat("x", 61)}, true},
		{"image header ok", Component{Type: "HEADER", Format: "IMAGE"}, false},
		{"image header with text", Component{Type: "HEADER", Format: "IMAGE", Text: "nope"}, true},
		{
			"header placeholder with sample",
			Component{Type: "HEADER", Format: "TEXT", Text: "Hi {{1}}", Example: &Example{HeaderText: []string{"Sam"}}},
			false,
		},
		{
			"header placeholder without sample",
			Component{Type: "HEADER", Format: "TEXT", Text: "Hi {{1}}"},
			true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate([]Component{tc.header, body("Hello")})
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidate_FooterLength(t *testing.T) {
	_, err := Validate([]Component{
		body("Hello"),
		{Type: "FOOTER", Text: strings.Repeat("x", 61)},
	})
	if err == nil {
		t.Fatal("expected error for footer over 60 characters")
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Welcome", "welcome"},
		{"Order Update", "order_update"},
		{"promo-2024!", "promo_2024"},
		{"  Déjà Vu  ", "dj_vu"},
	}
	for _, tc := range cases {
		if got := SanitizeName(tc.in); got != tc.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeLanguage(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"en-us", "en_US"},
		{"pt_br", "pt_BR"},
		{"EN_GB", "en_GB"},
	}
	for _, tc := range cases {
		if got := NormalizeLanguage(tc.in); got != tc.want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
