package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"liftplanner/models"
)

// sessionRouter mounts the session routes the way main.go does, behind
// AuthMiddleware. The middleware rejects anonymous and malformed tokens
// before touching the database, so a nil *sql.DB is safe here.
func sessionRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := r.Group("/api", AuthMiddleware(nil))
	auth.GET("/session/:user_id", GetSessionHandler(nil))
	auth.DELETE("/session/:user_id", DeleteSessionHandler(nil))
	return r
}

// Session rows hold live bearer tokens, so the session endpoints must never
// answer anonymous requests.
func TestSessionRoutesRejectAnonymous(t *testing.T) {
	r := sessionRouter()

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			req := httptest.NewRequest(method, "/api/session/7", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("%s /api/session/7 without token = %d, want %d", method, w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestSessionRoutesRejectGarbageToken(t *testing.T) {
	r := sessionRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/session/7", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// sessionCtx builds a request context the way AuthMiddleware leaves it:
// caller resolved and stored under "currentUser".
func sessionCtx(t *testing.T, caller models.User, userIDParam string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("currentUser", caller)
	c.Params = gin.Params{{Key: "user_id", Value: userIDParam}}
	return c, w
}

// The ownership check runs before any database access, so these paths are
// exercised with a nil *sql.DB.
func TestGetSessionForbidsOtherUsers(t *testing.T) {
	caller := models.User{ID: 5, Role: models.RoleFree}
	c, w := sessionCtx(t, caller, "7")

	GetSessionHandler(nil)(c)

	if w.Code != http.StatusForbidden {
		t.Errorf("non-owner session lookup = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestDeleteSessionForbidsOtherUsers(t *testing.T) {
	caller := models.User{ID: 5, Role: models.RolePremium}
	c, w := sessionCtx(t, caller, "7")

	DeleteSessionHandler(nil)(c)

	if w.Code != http.StatusForbidden {
		t.Errorf("non-owner session delete = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestGetSessionRejectsBadUserID(t *testing.T) {
	caller := models.User{ID: 9, Role: models.RoleAdmin}
	c, w := sessionCtx(t, caller, "not-a-number")

	GetSessionHandler(nil)(c)

	if w.Code != http.StatusBadRequest {
		t.Errorf("bad user_id = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// The serialized session carries device metadata only. Token fields must not
// appear even when populated.
func TestSessionJSONOmitsTokens(t *testing.T) {
	session := models.Session{
		UserID:                7,
		SessionID:             "access-token-value",
		HostName:              "user@example.com",
		IPAddress:             "203.0.113.4",
		Timestamp:             time.Now(),
		ExpiresAt:             time.Now().Add(time.Hour),
		RefreshToken:          "refresh-token-value",
		RefreshTokenExpiresAt: time.Now().Add(14 * 24 * time.Hour),
	}

	data, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)

	for _, leaked := range []string{"session_id", "access-token-value", "refresh_token", "refresh-token-value"} {
		if strings.Contains(body, leaked) {
			t.Errorf("serialized session contains %q: %s", leaked, body)
		}
	}
	if !strings.Contains(body, "host_name") || !strings.Contains(body, "ip_address") {
		t.Errorf("device metadata missing from serialized session: %s", body)
	}
}
