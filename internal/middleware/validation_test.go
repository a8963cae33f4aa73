package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

func TestValidateCreatorID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantID  string
		wantErr bool
	}{
		{"valid slug", "creator_42", "creator_42", false},
		{"trims whitespace", "  abc  ", "abc", false},
		{"uuid lower case", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", false},
		{"uuid case kept", "6BA7B810-9DAD-11D1-80B4-00C04FD430C8", "6BA7B810-9DAD-11D1-80B4-00C04FD430C8", false},
		{"uuid braces", "{6ba7b810-9dad-11d1-80b4-00c04fd430c8}", "", true},
		{"empty", "", "", true},
		{"too long", "a123456789012345678901234567890123456789012345678901234567890123", "", true},
		{"exactly 64", "123456789012345678901234567890123456789012345678901234567890abcd", "123456789012345678901234567890123456789012345678901234567890abcd", false},
		{"invalid chars", "abc def", "", true},
		{"sql injection", "a'; DROP--", "", true},
		{"unicode", "abcédef", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errMsg := ValidateCreatorID(tt.input)
			if tt.wantErr && errMsg == "" {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && errMsg != "" {
				t.Errorf("unexpected error: %s", errMsg)
			}
			if got != tt.wantID {
				t.Errorf("got %q, want %q", got, tt.wantID)
			}
		})
	}
}

func TestValidateCycleID(t *testing.T) {
	if _, errMsg := ValidateCycleID(""); errMsg != "cycleId is required" {
		t.Errorf("errMsg = %q, want cycleId is required", errMsg)
	}
	if got, errMsg := ValidateCycleID("2025-03-a"); errMsg != "" || got != "2025-03-a" {
		t.Errorf("ValidateCycleID = %q, %q", got, errMsg)
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/api/creators/c-1/payouts/cycle-9", "/api/creators/:creatorId/payouts/cycle-9"},
		{"/api/creators/c-1/payouts/cycle-9/preview", "/api/creators/:creatorId/payouts/cycle-9/preview"},
		{"/api/cycles/cycle-9/recompute", "/api/cycles/cycle-9/recompute"},
		{"/health/ready", "/health/ready"},
	}
	for _, tt := range tests {
		if got := sanitizePath(tt.in); got != tt.want {
			t.Errorf("sanitizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHashIPForLog(t *testing.T) {
	a := hashIPForLog("10.0.0.1")
	if len(a) != 12 {
		t.Fatalf("len = %d, want 12", len(a))
	}
	if a == hashIPForLog("10.0.0.2") {
		t.Error("different IPs should hash differently")
	}
}

func TestRequestLogger_RequestID(t *testing.T) {
	app := fiber.New()
	app.Use(NewRequestLogger())
	app.Get("/health/live", func(c fiber.Ctx) error { return c.SendString("ok") })

	const upstream = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"generated when absent", "", false},
		{"upstream uuid kept", upstream, true},
		{"non uuid replaced", "req-42 forged=1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			resp.Body.Close()

			got := resp.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("request id %q is not a uuid", got)
			}
			if tt.keep && got != upstream {
				t.Errorf("request id = %q, want %q", got, upstream)
			}
			if !tt.keep && got == tt.header {
				t.Errorf("request id %q should have been replaced", got)
			}
		})
	}
}
