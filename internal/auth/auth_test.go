package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func tokens() TokenService {
	return TokenService{Secret: []byte("test-secret"), Issuer: "bilingualmanga", Duration: time.Hour}
}

func TestTokenService_RoundTrip(t *testing.T) {
	ts := tokens()
	s, exp, err := ts.Sign(ScopeWrite)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry %v is not in the future", exp)
	}

	claims, err := ts.Parse(s)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != Subject || claims.Scope != ScopeWrite || claims.ID == "" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestTokenService_Rejects(t *testing.T) {
	ts := tokens()
	s, _, err := ts.Sign(ScopeWrite)
	if err != nil {
		t.Fatal(err)
	}

	other := ts
	other.Secret = []byte("other-secret")
	if _, err := other.Parse(s); err == nil {
		t.Error("expected signature mismatch")
	}

	wrongIssuer := ts
	wrongIssuer.Issuer = "someone-else"
	if _, err := wrongIssuer.Parse(s); err == nil {
		t.Error("expected issuer mismatch")
	}

	expired := ts
	expired.Duration = -time.Minute
	old, _, err := expired.Sign(ScopeWrite)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ts.Parse(old); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func newRouter(t *testing.T, hash string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(hash, tokens()).RegisterRoutes(r.Group("/auth"))
	return r
}

func postToken(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Token(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	r := newRouter(t, string(hash))

	if w := postToken(r, `{"password":"wrong"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: expected 401, got %d", w.Code)
	}
	if w := postToken(r, `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty body: expected 400, got %d", w.Code)
	}

	w := postToken(r, `{"password":"correct horse"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Token == "" {
		t.Fatalf("no token in %s", w.Body.String())
	}

	me := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+body.Token)
	r.ServeHTTP(me, req)
	if me.Code != http.StatusOK || !strings.Contains(me.Body.String(), `"scope":"write"`) {
		t.Errorf("unexpected /me response %d %s", me.Code, me.Body.String())
	}
}

func TestHandler_TokenDisabled(t *testing.T) {
	r := newRouter(t, "")
	if w := postToken(r, `{"password":"anything"}`); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/write", Middleware(tokens()), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	good, _, err := tokens().Sign(ScopeWrite)
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]int{
		"":                   http.StatusUnauthorized,
		"Basic abc":          http.StatusUnauthorized,
		"Bearer not-a-token": http.StatusUnauthorized,
		"Bearer " + good:     http.StatusNoContent,
		"bearer " + good:     http.StatusNoContent,
	}
	for header, want := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/write", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("header %q: expected %d, got %d", header, want, w.Code)
		}
	}
}

func TestHashPassword(t *testing.T) {
	if _, err := HashPassword("short"); err != ErrPasswordLength {
		t.Errorf("expected ErrPasswordLength, got %v", err)
	}
	hash, err := HashPassword("long enough")
	if err != nil {
		t.Fatal(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("long enough")) != nil {
		t.Error("hash does not verify")
	}
}
