package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/trentd187/badminton-club/internal/config"
	"github.com/trentd187/badminton-club/internal/metrics"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func newApp() *fiber.App {
	app := fiber.New()
	api := app.Group("/api", Auth(&config.Config{JWTSecret: testSecret}))
	api.Get("/whoami", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user": c.Locals(LocalUserID), "role": c.Locals(LocalUserRole)})
	})
	api.Post("/admin", RequireRole(RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, path, token string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	return resp, body
}

func TestAuthAcceptsValidToken(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user_123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "Admin",
	})

	resp, body := do(t, newApp(), http.MethodGet, "/api/whoami", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", resp.StatusCode, body)
	}
	if body["user"] != "user_123" || body["role"] != RoleAdmin {
		t.Fatalf("unexpected identity %v", body)
	}
}

func TestAuthRejects(t *testing.T) {
	expired := sign(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user_123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	wrongKey := sign(t, jwt.SigningMethodHS256, []byte("other"), Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user_123"},
	})
	wrongAlg := sign(t, jwt.SigningMethodHS384, []byte(testSecret), Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user_123"},
	})
	noSubject := sign(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{Role: RoleAdmin})

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"missing header", "", "missing or invalid authorization header"},
		{"garbage", "not-a-jwt", "invalid token"},
		{"expired", expired, "token expired"},
		{"wrong key", wrongKey, "invalid token"},
		{"wrong algorithm", wrongAlg, "invalid token"},
		{"no subject", noSubject, "token missing subject"},
	}
	app := newApp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, app, http.MethodGet, "/api/whoami", tt.token)
			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", resp.StatusCode)
			}
			if body["error"] != tt.want {
				t.Fatalf("expected error %q, got %v", tt.want, body["error"])
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	member := sign(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "member_1"},
	})
	admin := sign(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "admin_1"},
		Role:             RoleAdmin,
	})
	app := newApp()

	resp, body := do(t, app, http.MethodPost, "/api/admin", member)
	if resp.StatusCode != http.StatusForbidden || body["error"] != "insufficient permissions" {
		t.Fatalf("member: got %d %v", resp.StatusCode, body)
	}
	resp, _ = do(t, app, http.MethodPost, "/api/admin", admin)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("admin: expected 204, got %d", resp.StatusCode)
	}
}

func TestRequireRoleWithoutAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/x", RequireRole(RoleAdmin), func(c *fiber.Ctx) error { return c.SendStatus(200) })

	resp, body := do(t, app, http.MethodGet, "/x", "")
	if resp.StatusCode != http.StatusForbidden || body["error"] != "forbidden" {
		t.Fatalf("got %d %v", resp.StatusCode, body)
	}
}

func TestRoleFromClaim(t *testing.T) {
	tests := map[string]string{"admin": RoleAdmin, " ADMIN ": RoleAdmin, "member": RoleMember, "": RoleMember, "owner": RoleMember}
	for in, want := range tests {
		if got := roleFromClaim(in); got != want {
			t.Errorf("roleFromClaim(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMetricsRecordsRoutePattern(t *testing.T) {
	recorder := metrics.New()
	app := fiber.New()
	app.Use(Metrics(recorder))
	app.Get("/matches/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for _, path := range []string{"/matches/a", "/matches/b", "/nowhere"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
	}

	n, err := testutil.GatherAndCount(recorder.Registry(), "club_http_request_duration_seconds")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected two label sets (route + unmatched), got %d", n)
	}
}
