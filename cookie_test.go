package ngxauth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewSessionID(t *testing.T) {
	t.Parallel()

	id, err := newSessionID()
	if err != nil {
		t.Fatalf("newSessionID() error = %v", err)
	}
	if !validSessionID(id) {
		t.Errorf("newSessionID() = %q, want a 32-char hex token", id)
	}

	other, err := newSessionID()
	if err != nil {
		t.Fatalf("newSessionID() error = %v", err)
	}
	if id == other {
		t.Error("newSessionID() returned the same token twice")
	}
}

func TestValidSessionID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sessionID string
		want      bool
	}{
		{name: "valid", sessionID: "00112233445566778899aabbccddeeff", want: true},
		{name: "too short", sessionID: "0011223344556677", want: false},
		{name: "too long", sessionID: "00112233445566778899aabbccddeeff00", want: false},
		{name: "not hex", sessionID: "zz112233445566778899aabbccddeeff", want: false},
		{name: "empty", sessionID: "", want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := validSessionID(tt.sessionID); got != tt.want {
				t.Errorf("validSessionID(%q) = %v, want %v", tt.sessionID, got, tt.want)
			}
		})
	}
}

func TestApp_readSessionCookie(t *testing.T) {
	t.Parallel()

	a := &App{}

	req := httptest.NewRequest(http.MethodGet, "/auth", http.NoBody)
	if _, ok := a.readSessionCookie(req); ok {
		t.Error("readSessionCookie() = ok on a request without a cookie")
	}

	req = httptest.NewRequest(http.MethodGet, "/auth", http.NoBody)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "not-a-session-id"})
	if _, ok := a.readSessionCookie(req); ok {
		t.Error("readSessionCookie() = ok on a malformed cookie value")
	}

	req = httptest.NewRequest(http.MethodGet, "/auth", http.NoBody)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "00112233445566778899aabbccddeeff"})
	id, ok := a.readSessionCookie(req)
	if !ok || id != "00112233445566778899aabbccddeeff" {
		t.Errorf("readSessionCookie() = %q, %v, want the cookie value", id, ok)
	}
}

func TestApp_writeSessionCookie_insecure(t *testing.T) {
	t.Parallel()

	a := &App{cookieSecure: false}

	recorder := httptest.NewRecorder()
	a.writeSessionCookie(recorder, "00112233445566778899aabbccddeeff")

	cookies := recorder.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("len(cookies) = %v, want 1", len(cookies))
	}
	if cookies[0].Secure {
		t.Error("cookie Secure = true, want false")
	}
}
