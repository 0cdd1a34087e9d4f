package adminauth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/seatgrid/seatgrid/internal/utils"
)

const testSecret = "test-secret"

func callWithAuthHeader(t *testing.T, header string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/events", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequireAdmin(testSecret)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func TestRequireAdmin_RejectsMissingHeader(t *testing.T) {
	rec := callWithAuthHeader(t, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAdmin_RejectsMalformedHeader(t *testing.T) {
	rec := callWithAuthHeader(t, "Basic abcdef")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAdmin_RejectsTokenSignedWithWrongSecret(t *testing.T) {
	tok, err := utils.NewAdminToken("wrong-secret", "admin", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	rec := callWithAuthHeader(t, "Bearer "+tok.Token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAdmin_RejectsExpiredToken(t *testing.T) {
	tok, err := utils.NewAdminToken(testSecret, "admin", -time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	rec := callWithAuthHeader(t, "Bearer "+tok.Token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", rec.Code)
	}
}

func TestRequireAdmin_AcceptsValidToken(t *testing.T) {
	tok, err := utils.NewAdminToken(testSecret, "admin", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	rec := callWithAuthHeader(t, "Bearer "+tok.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
