package session

import (
	"testing"
	"time"
)

func TestTokenExpiry(t *testing.T) {
	want := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	raw := mintToken(t, want)

	got, err := tokenExpiry(raw)
	if err != nil {
		t.Fatalf("tokenExpiry: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("expiry = %v, want %v", got, want)
	}
}

func TestTokenExpiryRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := tokenExpiry(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestExpiresWithin(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tests := []struct {
		name   string
		expiry time.Time
		window time.Duration
		want   bool
	}{
		{"already expired", now.Add(-time.Minute), time.Minute, true},
		{"inside window", now.Add(30 * time.Second), time.Minute, true},
		{"exactly at window edge", now.Add(time.Minute), time.Minute, true},
		{"outside window", now.Add(2 * time.Minute), time.Minute, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expiresWithin(tt.expiry, now, tt.window); got != tt.want {
				t.Fatalf("expiresWithin = %v, want %v", got, tt.want)
			}
		})
	}
}
