package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSessionManager_RoundTrip(t *testing.T) {
	m := NewSessionManager("secret", time.Hour)

	token, expires, err := m.Issue("session-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Error("expiry should be in the future")
	}

	got, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got != "session-1" {
		t.Errorf("Parse() = %q, want session-1", got)
	}
}

func TestSessionManager_Rejects(t *testing.T) {
	m := NewSessionManager("secret", time.Hour)
	other := NewSessionManager("other", time.Hour)
	expired := NewSessionManager("secret", -time.Minute)

	foreign, _, _ := other.Issue("s")
	stale, _, _ := expired.Issue("s")

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"expired", stale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Parse(tt.token); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCSRFGenerator(t *testing.T) {
	g := NewCSRFGenerator("secret")

	token, err := g.GenerateToken("s1")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if !g.ValidateToken("s1", token) {
		t.Error("token should validate for its session")
	}
	if g.ValidateToken("s2", token) {
		t.Error("token must not validate for another session")
	}
	if _, err := g.GenerateToken(""); err == nil {
		t.Error("empty session should fail")
	}
}

func TestRequiresCSRF(t *testing.T) {
	for method, want := range map[string]bool{
		http.MethodGet:    false,
		http.MethodHead:   false,
		http.MethodPost:   true,
		http.MethodPatch:  true,
		http.MethodDelete: true,
	} {
		if got := RequiresCSRF(method); got != want {
			t.Errorf("RequiresCSRF(%s) = %v, want %v", method, got, want)
		}
	}
}

func TestHashPIN(t *testing.T) {
	hash, err := HashPIN("1234")
	if err != nil {
		t.Fatalf("HashPIN() error = %v", err)
	}
	if hash == "1234" {
		t.Error("HashPIN() returned unhashed pin")
	}

	hash2, err := HashPIN("1234")
	if err != nil {
		t.Fatalf("HashPIN() error = %v", err)
	}
	if hash == hash2 {
		t.Error("HashPIN() should produce different hashes due to salt")
	}

	tests := []struct {
		name string
		pin  string
		want bool
	}{
		{"correct pin", "1234", true},
		{"incorrect pin", "4321", false},
		{"empty pin", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPIN(tt.pin, hash); got != tt.want {
				t.Errorf("CheckPIN() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour)

	if !rl.Allow("1.1.1.1") || !rl.Allow("1.1.1.1") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("1.1.1.1") {
		t.Error("third request should be limited")
	}
	if !rl.Allow("2.2.2.2") {
		t.Error("other clients are unaffected")
	}

	rl.cleanup(time.Now().Add(3 * time.Hour))
	if len(rl.visitors) != 0 {
		t.Errorf("idle visitors not evicted: %d left", len(rl.visitors))
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.2.3.4:5", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.9"}, "1.2.3.4:5", "10.0.0.9"},
		{"remote addr", nil, "1.2.3.4:5678", "1.2.3.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
