package middleware

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medequip-backend/token"
)

func uploadRequest(t *testing.T, name, contentType string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if name != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func guardedApp(maxBytes int64) *fiber.App {
	app := fiber.New()
	app.Post("/upload", UploadGuard(maxBytes), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestUploadGuard(t *testing.T) {
	app := guardedApp(1024)
	cases := []struct {
		name        string
		file        string
		contentType string
		size        int
		want        int
	}{
		{"accepts csv", "branches.csv", "text/csv", 10, fiber.StatusOK},
		{"accepts xlsx", "equipment.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", 10, fiber.StatusOK},
		{"missing file", "", "", 0, fiber.StatusBadRequest},
		{"too large", "branches.csv", "text/csv", 2048, fiber.StatusRequestEntityTooLarge},
		{"wrong extension", "report.pdf", "application/pdf", 10, fiber.StatusUnsupportedMediaType},
		{"mismatched type", "branches.csv", "image/png", 10, fiber.StatusUnsupportedMediaType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := app.Test(uploadRequest(t, tc.file, tc.contentType, bytes.Repeat([]byte("a"), tc.size)))
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestUploadRateLimiter(t *testing.T) {
	limiter := NewUploadRateLimiter(time.Hour, 2)
	app := fiber.New()
	app.Post("/upload", limiter.Middleware(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/upload", nil))
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}, codes)
}

func TestUploadRateLimiterForgetsIdleClients(t *testing.T) {
	limiter := NewUploadRateLimiter(time.Hour, 1)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.allow("a"))
	assert.False(t, limiter.allow("a"))

	now = now.Add(limiter.idle + time.Minute)
	assert.True(t, limiter.allow("b"))
	assert.NotContains(t, limiter.clients, "a")
}

func newAuthContext(t *testing.T) (*AppContext, *miniredis.Miniredis) {
	t.Helper()
	maker, err := token.NewPasetoMaker("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return &AppContext{PasetoMaker: maker, Ctx: context.Background(), RedisClient: client}, mr
}

func protectedApp(appCtx *AppContext) *fiber.App {
	app := fiber.New()
	app.Get("/me", ProtectedRoute(appCtx), func(c *fiber.Ctx) error {
		return c.SendString(CurrentUser(c).Email)
	})
	return app
}

func TestProtectedRouteAcceptsBearerToken(t *testing.T) {
	appCtx, _ := newAuthContext(t)
	app := protectedApp(appCtx)

	tok, err := appCtx.PasetoMaker.CreateToken("ops@example.com", "operator", time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRouteRotatesRefreshToken(t *testing.T) {
	appCtx, mr := newAuthContext(t)
	app := protectedApp(appCtx)

	refresh, err := appCtx.PasetoMaker.CreateToken("ops@example.com", "operator", time.Hour)
	require.NoError(t, err)
	require.NoError(t, mr.Set("refresh_token:"+refresh, "user-1"))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: refresh})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.False(t, mr.Exists("refresh_token:"+refresh))
	assert.Len(t, mr.Keys(), 1)

	// the old refresh token is single use
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: refresh})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireRole(t *testing.T) {
	appCtx, _ := newAuthContext(t)
	app := fiber.New()
	app.Post("/upload", ProtectedRoute(appCtx), RequireRole("admin", "operator"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for role, want := range map[string]int{
		"admin":    fiber.StatusOK,
		"operator": fiber.StatusOK,
		"viewer":   fiber.StatusForbidden,
	} {
		tok, err := appCtx.PasetoMaker.CreateToken("ops@example.com", role, time.Minute)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/upload", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, role)
	}
}
