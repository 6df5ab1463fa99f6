package validation

import (
	"testing"

	"fourall/internal/models"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{
			name:    "valid email",
			email:   "test@example.com",
			wantErr: false,
		},
		{
			name:    "valid email with subdomain",
			email:   "user@mail.example.com",
			wantErr: false,
		},
		{
			name:    "valid email with plus",
			email:   "user+tag@example.com",
			wantErr: false,
		},
		{
			name:    "missing @",
			email:   "testexample.com",
			wantErr: true,
		},
		{
			name:    "missing domain",
			email:   "test@",
			wantErr: true,
		},
		{
			name:    "missing local part",
			email:   "@example.com",
			wantErr: true,
		},
		{
			name:    "empty string",
			email:   "",
			wantErr: true,
		},
		{
			name:    "spaces in email",
			email:   "test @example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "valid name",
			input:   "John Doe",
			wantErr: false,
		},
		{
			name:    "single name",
			input:   "John",
			wantErr: false,
		},
		{
			name:    "empty name",
			input:   "",
			wantErr: true,
		},
		{
			name:    "name too short",
			input:   "J",
			wantErr: true,
		},
		{
			name:    "name with hyphen",
			input:   "Mary-Jane",
			wantErr: false,
		},
		{
			name:    "name with apostrophe",
			input:   "O'Brien",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePIN(t *testing.T) {
	tests := []struct {
		name    string
		pin     string
		wantErr bool
	}{
		{name: "four digits", pin: "1234", wantErr: false},
		{name: "six digits", pin: "123456", wantErr: false},
		{name: "too short", pin: "123", wantErr: true},
		{name: "too long", pin: "1234567", wantErr: true},
		{name: "letters", pin: "12a4", wantErr: true},
		{name: "empty", pin: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePIN(tt.pin)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePIN(%q) error = %v, wantErr %v", tt.pin, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		phone   string
		wantErr bool
	}{
		{"+2348012345678", false},
		{"0801 234 5678", false},
		{"080-1234-5678", false},
		{"12345", true},
		{"phone", true},
	}

	for _, tt := range tests {
		if err := ValidatePhone(tt.phone); (err != nil) != tt.wantErr {
			t.Errorf("ValidatePhone(%q) error = %v, wantErr %v", tt.phone, err, tt.wantErr)
		}
	}
}

func TestValidateProfileUpdate(t *testing.T) {
	lang := models.Language("fr")
	score := 11
	prefs := models.DefaultPreferences()
	prefs.FontSize = 40
	okLang := models.LanguageHausa
	name := "Chidi"

	tests := []struct {
		name  string
		u     models.ProfileUpdate
		field string
	}{
		{name: "valid", u: models.ProfileUpdate{Language: &okLang, Name: &name}},
		{name: "bad language", u: models.ProfileUpdate{Language: &lang}, field: "language"},
		{name: "bad score", u: models.ProfileUpdate{CognitiveScore: &score}, field: "cognitiveScore"},
		{name: "bad font size", u: models.ProfileUpdate{AccessibilityPreferences: &prefs}, field: "fontSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProfileUpdate(tt.u)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			ve, ok := err.(models.ValidationError)
			if !ok {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %s, want %s", ve.Field, tt.field)
			}
		})
	}
}
