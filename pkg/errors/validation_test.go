package errors

import "testing"

func TestValidateUploadCode(t *testing.T) {
	tests := []struct {
		code    string
		wantErr bool
	}{
		{"AB12CD", false},
		{"x", false},
		{"", true},
		{"../etc", true},
		{"ab cd", true},
		{"abc/def", true},
		{"abcdefghijklmnopqrstuvwxyz0123456789", true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := ValidateUploadCode(tt.code)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUploadCode(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("code = %v, want %v", GetCode(err), ErrCodeInvalidInput)
			}
		})
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "photo.jpg", false},
		{"versioned", "photo.3", false},
		{"empty", "", true},
		{"slash", "a/b.pdf", true},
		{"backslash", `a\b.pdf`, true},
		{"hidden", ".secret", true},
		{"parent", "..", true},
		{"control", "a\x00b", true},
		{"too long", string(make([]byte, 300)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilename(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "uploads/AB12/photo.1", false},
		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"traversal", "uploads/../etc", true},
		{"backslash", `uploads\x`, true},
		{"null", "a\x00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("code = %v, want %v", GetCode(err), ErrCodeInvalidPath)
			}
		})
	}
}
