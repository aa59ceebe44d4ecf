package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procon/attendance-service/internal/domain"
	"github.com/procon/attendance-service/internal/repository/memory"
	apperrors "github.com/procon/attendance-service/pkg/util"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 10)

	token, exp, err := tm.GenerateToken("staff-1", domain.StaffRoleAttendant)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims.StaffID())
	assert.Equal(t, domain.StaffRoleAttendant, claims.Role)

	_, err = NewTokenManager("other", 10).ParseToken(token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := tm.GenerateToken("staff-1", domain.StaffRoleAdmin)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", 1).ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "s3cret"))
	assert.Error(t, ComparePassword(hash, "wrong"))
}

type fixture struct {
	app    *fiber.App
	tokens *TokenManager
	staff  *domain.StaffMember
}

func newFixture(t *testing.T, active bool) fixture {
	t.Helper()
	store := memory.New()
	staff := &domain.StaffMember{Name: "Ana", Email: "ana@procon.test", Role: domain.StaffRoleAttendant, Active: active}
	require.NoError(t, store.Repositories().Staff.Create(context.Background(), staff))

	tokens := NewTokenManager("secret", 10)
	mw := NewAuthMiddleware(tokens, store.Repositories().Staff)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"type": domainErr.Type}})
		},
	})
	ok := func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.ID())
	}
	app.Get("/plain", mw.HandlePlain, ok)
	app.Get("/typed", mw.Handle, ok)
	app.Get("/admin", mw.Handle, RequireStaffRole(domain.StaffRoleAdmin), ok)
	return fixture{app: app, tokens: tokens, staff: staff}
}

func do(t *testing.T, app *fiber.App, path, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestMiddlewareUnauthorizedBodies(t *testing.T) {
	f := newFixture(t, true)

	status, body := do(t, f.app, "/plain", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, body)

	status, body = do(t, f.app, "/typed", "garbage")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"error":{"type":"UNAUTHORIZED"}}`, body)
}

func TestMiddlewareLoadsStaff(t *testing.T) {
	f := newFixture(t, true)
	token, _, err := f.tokens.GenerateToken(f.staff.ID, f.staff.Role)
	require.NoError(t, err)

	status, body := do(t, f.app, "/plain", token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, f.staff.ID, body)

	status, _ = do(t, f.app, "/admin", token)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestMiddlewareRejectsInactiveStaff(t *testing.T) {
	f := newFixture(t, false)
	token, _, err := f.tokens.GenerateToken(f.staff.ID, f.staff.Role)
	require.NoError(t, err)

	status, _ := do(t, f.app, "/typed", token)
	assert.Equal(t, http.StatusUnauthorized, status)
}
