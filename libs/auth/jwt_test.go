package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHS256RoundTrip(t *testing.T) {
	secret := "test-secret"
	token, err := SignHS256("staff-1", RoleExpert, "expert-1", time.Hour, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	parsed, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if parsed.Subject != "staff-1" || parsed.Role != RoleExpert || parsed.ExpertID != "expert-1" {
		t.Fatalf("claims mismatch: got %+v", parsed)
	}
	if _, err := ParseAndVerifyHS256(token, "wrong-secret"); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := SignHS256("staff-1", RoleAdmin, "", -time.Minute, "s")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "s"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := BearerToken(r); ok {
		t.Fatal("expected no token")
	}
	r.Header.Set("Authorization", "bearer abc")
	if tok, ok := BearerToken(r); !ok || tok != "abc" {
		t.Fatalf("expected abc, got %q", tok)
	}
	r.Header.Set("Authorization", "Basic abc")
	if _, ok := BearerToken(r); ok {
		t.Fatal("expected basic auth to be ignored")
	}
}

func TestRequireRole(t *testing.T) {
	secret := "s3cret"
	h := RequireRole(secret, RoleAdmin, RoleExpert)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, ok := ClaimsFromContext(r.Context()); !ok || c.Subject == "" {
			t.Fatal("expected claims in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		role   string
		header bool
		want   int
	}{
		{name: "missing", header: false, want: http.StatusUnauthorized},
		{name: "client role", role: "client", header: true, want: http.StatusForbidden},
		{name: "expert", role: RoleExpert, header: true, want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/", nil)
			if tc.header {
				tok, err := SignHS256("staff-1", tc.role, "", time.Hour, secret)
				if err != nil {
					t.Fatalf("sign: %v", err)
				}
				req.Header.Set("Authorization", "Bearer "+tok)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestRequireRoleDisabledWithoutSecret(t *testing.T) {
	called := false
	h := RequireRole("")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPatch, "/", nil))
	if !called {
		t.Fatal("expected passthrough when secret is empty")
	}
}
