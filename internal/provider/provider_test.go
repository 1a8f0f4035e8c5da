package provider

import (
	"errors"
	"testing"
)

func TestCheckCredential(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"real key", "sk-proj-abc123", nil},
		{"empty", "", ErrCredentialMissing},
		{"whitespace only", "   ", ErrCredentialMissing},
		{"template placeholder", "your_openai_api_key", ErrCredentialPlaceholder},
		{"masked placeholder", "sk-************", ErrCredentialPlaceholder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCredential(tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckCredential(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestIsPlaceholder(t *testing.T) {
	if IsPlaceholder("sk-live-123") {
		t.Error("IsPlaceholder() = true for a real-looking key")
	}
	if !IsPlaceholder("prefix-your_ope-suffix") {
		t.Error("IsPlaceholder() = false for embedded placeholder pattern")
	}
}
