package strcase

import "testing"

func TestToLowerSnake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "Email", want: "email"},
		{in: "UserID", want: "user_id"},
		{in: "TOTPCode", want: "totp_code"},
		{in: "SessionToken", want: "session_token"},
		{in: "Code2FA", want: "code2_fa"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ToLowerSnake(tt.in); got != tt.want {
				t.Fatalf("ToLowerSnake(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
