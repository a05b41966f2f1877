package validation

import "testing"

func TestIsValidCEP(t *testing.T) {
	tests := []struct {
		name  string
		cep   string
		valid bool
	}{
		{
			name:  "with hyphen",
			cep:   "01310-100",
			valid: true,
		},
		{
			name:  "digits only",
			cep:   "01310100",
			valid: true,
		},
		{
			name:  "hyphen in wrong place",
			cep:   "0131-0100",
			valid: false,
		},
		{
			name:  "too short",
			cep:   "1310100",
			valid: false,
		},
		{
			name:  "contains letters",
			cep:   "01310-10a",
			valid: false,
		},
		{
			name:  "empty string",
			cep:   "",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidCEP(tt.cep)
			if got != tt.valid {
				t.Fatalf("IsValidCEP(%q) = %v, want %v", tt.cep, got, tt.valid)
			}
		})
	}
}
