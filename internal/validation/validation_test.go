package validation

import (
	"strings"
	"testing"

	"github.com/sudo-init-do/chirp/internal/apperr"
)

type sample struct {
	Content string `json:"content" validate:"required,utf8,min=1,max=255"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Code    string `json:"code" validate:"omitempty,min=3"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if Validator() != Validator() {
		t.Error("Validator() should return the same instance")
	}
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     sample
		wantField string
		wantMsg   string
	}{
		{name: "valid", input: sample{Content: "hello"}},
		{name: "single char", input: sample{Content: "x"}},
		{name: "255 multibyte characters", input: sample{Content: strings.Repeat("é", 255)}},
		{name: "255 emoji", input: sample{Content: strings.Repeat("🐦", 255)}},
		{
			name:      "empty",
			input:     sample{Content: ""},
			wantField: "content",
			wantMsg:   "content is required",
		},
		{
			name:      "invalid utf8",
			input:     sample{Content: "caf\xe9"},
			wantField: "content",
			wantMsg:   "content must be valid UTF-8 text",
		},
		{
			name:      "too long",
			input:     sample{Content: strings.Repeat("a", 256)},
			wantField: "content",
			wantMsg:   "content must be at most 255 characters",
		},
		{
			name:      "bad email",
			input:     sample{Content: "x", Email: "nope"},
			wantField: "email",
			wantMsg:   "email must be a valid email address",
		},
		{
			name:      "short code",
			input:     sample{Content: "x", Code: "ab"},
			wantField: "code",
			wantMsg:   "code must be at least 3 characters",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(&tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Struct() error = %v", err)
				}
				return
			}
			ae, ok := err.(*apperr.Error)
			if !ok {
				t.Fatalf("Struct() error = %T %v, want *apperr.Error", err, err)
			}
			if ae.Code != apperr.CodeInvalidInput {
				t.Errorf("Code = %s, want INVALID_INPUT", ae.Code)
			}
			if ae.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ae.Field, tt.wantField)
			}
			if ae.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", ae.Message, tt.wantMsg)
			}
		})
	}
}
