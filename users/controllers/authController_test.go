package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"medequip-backend/db/models"
	"medequip-backend/middleware"
	"medequip-backend/token"
	"medequip-backend/users/repositories"
)

type fakeUsers struct {
	byEmail map[string]*models.User
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[strings.ToLower(email)]; ok {
		return u, nil
	}
	return &models.User{}, gorm.ErrRecordNotFound
}

func (f *fakeUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	for _, u := range f.byEmail {
		if u.ID.String() == id {
			return u, nil
		}
	}
	return &models.User{}, gorm.ErrRecordNotFound
}

func (f *fakeUsers) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	f.byEmail[user.Email] = user
	return user, nil
}

func (f *fakeUsers) TouchLastLogin(_ context.Context, user *models.User) error {
	now := time.Now()
	user.LastLoginAt = &now
	return nil
}

func (f *fakeUsers) SetTOTPSecret(_ context.Context, user *models.User, secret string) error {
	user.TOTPSecret = secret
	return nil
}

func newAuthApp(t *testing.T, users ...*models.User) (*fiber.App, *middleware.AppContext) {
	t.Helper()
	maker, err := token.NewPasetoMaker("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	appCtx := &middleware.AppContext{PasetoMaker: maker, Ctx: context.Background(), RedisClient: client}

	repo := &fakeUsers{byEmail: map[string]*models.User{}}
	for _, u := range users {
		repo.byEmail[u.Email] = u
	}
	app := fiber.New()
	app.Post("/login", (&AuthController{UserRepo: repo, App: appCtx, Issuer: "medequip"}).LoginUser)
	return app, appCtx
}

func account(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := repositories.HashPassword(password)
	require.NoError(t, err)
	return &models.User{ID: uuid.New(), Email: email, Password: hash, Role: models.OperatorRole, Active: true}
}

func login(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestLoginIssuesSessionCookies(t *testing.T) {
	app, _ := newAuthApp(t, account(t, "ops@example.com", "s3cret"))

	resp := login(t, app, `{"email":"ops@example.com","password":"s3cret"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	names := map[string]bool{}
	for _, c := range resp.Cookies() {
		names[c.Name] = c.Value != ""
	}
	assert.True(t, names["access_token"])
	assert.True(t, names["refresh_token"])
}

func TestLoginRejectsBadPassword(t *testing.T) {
	app, _ := newAuthApp(t, account(t, "ops@example.com", "s3cret"))

	resp := login(t, app, `{"email":"ops@example.com","password":"nope"}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = login(t, app, `{"email":"ghost@example.com","password":"s3cret"}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	u := account(t, "ops@example.com", "s3cret")
	u.Active = false
	app, _ := newAuthApp(t, u)

	resp := login(t, app, `{"email":"ops@example.com","password":"s3cret"}`)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestLoginRequiresTOTPWhenEnrolled(t *testing.T) {
	u := account(t, "ops@example.com", "s3cret")
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "medequip", AccountName: u.Email})
	require.NoError(t, err)
	u.TOTPSecret = key.Secret()
	app, _ := newAuthApp(t, u)

	resp := login(t, app, `{"email":"ops@example.com","password":"s3cret"}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)
	resp = login(t, app, `{"email":"ops@example.com","password":"s3cret","otp":"`+code+`"}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
