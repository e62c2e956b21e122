package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":  "abc",
		"bearer abc":  "abc",
		"Bearer  abc": "abc",
		"Basic abc":   "",
		"abc":         "",
		"":            "",
	}
	for header, expect := range cases {
		if got := bearerToken(header); got != expect {
			t.Fatalf("bearerToken(%q) = %q, want %q", header, got, expect)
		}
	}
}

func TestAccessTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if token := accessTokenFromRequest(r); token != "" {
		t.Fatalf("expected empty token, got %q", token)
	}

	r = httptest.NewRequest("GET", "/", nil)
	r.AddCookie(&http.Cookie{Name: "accessToken", Value: "from-cookie"})
	if token := accessTokenFromRequest(r); token != "from-cookie" {
		t.Fatalf("expected cookie token, got %q", token)
	}

	r.Header.Set("Authorization", "Bearer from-header")
	if token := accessTokenFromRequest(r); token != "from-header" {
		t.Fatalf("header should win over cookie, got %q", token)
	}
}

func TestCreateAccountNormalize(t *testing.T) {
	req := createAccountRequest{
		Username: " 2024UGCS032 ",
		Email:    " Alice@Example.EDU ",
		FullName: "Alice Kumar",
	}
	req.normalize()
	if req.Username != "2024ugcs032" {
		t.Fatalf("username must be lowercased and trimmed, got %q", req.Username)
	}
	if req.Email != "alice@example.edu" {
		t.Fatalf("email must be lowercased and trimmed, got %q", req.Email)
	}
}

func TestPageParams(t *testing.T) {
	r := httptest.NewRequest("GET", "/?page=3&limit=25", nil)
	page, limit := pageParams(r)
	if page != 3 || limit != 25 {
		t.Fatalf("expected 3/25, got %d/%d", page, limit)
	}

	r = httptest.NewRequest("GET", "/?page=-1&limit=500", nil)
	page, limit = pageParams(r)
	if page != 1 || limit != 10 {
		t.Fatalf("out-of-range values should fall back to defaults, got %d/%d", page, limit)
	}
}

func TestNewPaginationMeta(t *testing.T) {
	meta := newPaginationMeta(21, 2, 10)
	if meta.TotalPages != 3 {
		t.Fatalf("expected 3 pages for 21 rows, got %d", meta.TotalPages)
	}
	meta = newPaginationMeta(20, 1, 10)
	if meta.TotalPages != 2 {
		t.Fatalf("expected 2 pages for 20 rows, got %d", meta.TotalPages)
	}
	meta = newPaginationMeta(0, 1, 10)
	if meta.TotalPages != 0 {
		t.Fatalf("expected 0 pages for empty set, got %d", meta.TotalPages)
	}
}

func TestErrorEnvelopeShape(t *testing.T) {
	rec := httptest.NewRecorder()
	writeAPIError(rec, 409, "Room is already full")

	var envelope errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Success {
		t.Fatalf("error envelope must have success=false")
	}
	if envelope.StatusCode != 409 {
		t.Fatalf("expected statusCode 409, got %d", envelope.StatusCode)
	}
	if envelope.Errors == nil {
		t.Fatalf("errors must serialize as an empty list, not null")
	}
}
