package testserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
)

func post(t *testing.T, s *Server, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, s.URL+path, bytes.NewReader(raw))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestLoginAndRefresh(t *testing.T) {
	s, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	resp, body := post(t, s, "/api/users/login", "", map[string]string{"email": "alice@example.com", "password": "password"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}

	resp, body = post(t, s, "/auth/refresh-token", token, nil)
	if resp.StatusCode != http.StatusOK || body["token"] == token {
		t.Fatalf("refresh status=%d body=%v", resp.StatusCode, body)
	}
	if s.RefreshCalls() != 1 {
		t.Fatalf("refresh calls = %d", s.RefreshCalls())
	}
}

func TestRevokedTokenIsRejected(t *testing.T) {
	s, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	token, err := s.Issue("alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	s.Revoke(token)
	if resp, _ := post(t, s, "/api/courses", token, nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestRejectNextResources(t *testing.T) {
	s, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	token, _ := s.Issue("alice@example.com")
	s.RejectNextResources(1)
	if resp, _ := post(t, s, "/api/courses", token, nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("first status = %d", resp.StatusCode)
	}
	if resp, _ := post(t, s, "/api/courses", token, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("second status = %d", resp.StatusCode)
	}
	if n := len(s.RequestsTo("/api/courses")); n != 2 {
		t.Fatalf("recorded %d requests", n)
	}
}

func TestOTPRequired(t *testing.T) {
	s, err := New(Options{RequireOTP: true})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	_, body := post(t, s, "/api/users/login", "", map[string]string{"email": "alice@example.com", "password": "password"})
	if _, ok := body["token"]; ok {
		t.Fatal("login must not return a token when OTP is required")
	}
	resp, body := post(t, s, "/api/users/verify-otp", "", map[string]string{"email": "alice@example.com", "otp": "123456"})
	if resp.StatusCode != http.StatusOK || body["token"] == nil {
		t.Fatalf("verify status=%d body=%v", resp.StatusCode, body)
	}
}
