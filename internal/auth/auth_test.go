package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"comexiger-backend/internal/apperr"
	"comexiger-backend/internal/database/dbtest"
	"comexiger-backend/internal/httpx"
	"comexiger-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func intPtr(v int) *int { return &v }

func testApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler(zerolog.Nop())})
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour, 24*time.Hour)
	user := &models.User{ID: 4, Username: "lucia", Role: models.RoleOperator, Mesa: intPtr(7)}

	pair, err := issuer.IssuePair(user)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	claims, err := issuer.Parse(pair.Access, TokenAccess)
	if err != nil {
		t.Fatalf("Parse access: %v", err)
	}
	if claims.UserID != 4 || claims.Role != models.RoleOperator || claims.Mesa == nil || *claims.Mesa != 7 {
		t.Errorf("claims = %+v", claims)
	}
	if claims.ID == "" {
		t.Error("jti is empty")
	}

	if _, err := issuer.Parse(pair.Refresh, TokenAccess); !errors.Is(err, ErrWrongTokenType) {
		t.Errorf("refresh used as access = %v, want ErrWrongTokenType", err)
	}
	if _, err := issuer.Parse(pair.Refresh, TokenRefresh); err != nil {
		t.Errorf("Parse refresh: %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Minute, time.Hour)
	base := time.Now()
	issuer.now = func() time.Time { return base }

	tok, err := issuer.Generate(&models.User{ID: 1, Role: models.RoleAdmin}, TokenAccess)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	issuer.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := issuer.Parse(tok, TokenAccess); err == nil {
		t.Error("expired token accepted")
	}
}

func TestTokenWrongSecret(t *testing.T) {
	a := NewTokenIssuer(testSecret, time.Hour, time.Hour)
	b := NewTokenIssuer("ffffffffffffffffffffffffffffffff", time.Hour, time.Hour)

	tok, _ := a.Generate(&models.User{ID: 1, Role: models.RoleAdmin}, TokenAccess)
	if _, err := b.Parse(tok, TokenAccess); err == nil {
		t.Error("token signed with another secret accepted")
	}
}

func TestMiddlewareAndEnforceMesa(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour, time.Hour)
	app := testApp()
	app.Use(JWTMiddleware(issuer))
	app.Get("/mesa/:n", func(c *fiber.Ctx) error {
		n, _ := c.ParamsInt("n")
		if err := EnforceMesa(c, n); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	operator, _ := issuer.Generate(&models.User{ID: 2, Username: "op", Role: models.RoleOperator, Mesa: intPtr(3)}, TokenAccess)
	supervisor, _ := issuer.Generate(&models.User{ID: 3, Username: "sup", Role: models.RoleSupervisor}, TokenAccess)
	refresh, _ := issuer.Generate(&models.User{ID: 2, Role: models.RoleOperator}, TokenRefresh)

	cases := []struct {
		name   string
		token  string
		path   string
		status int
	}{
		{"no header", "", "/mesa/3", 401},
		{"refresh token", refresh, "/mesa/3", 401},
		{"own mesa", operator, "/mesa/3", 204},
		{"other mesa", operator, "/mesa/4", 403},
		{"supervisor any mesa", supervisor, "/mesa/9", 204},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", tc.path, nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if resp.StatusCode != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.name, resp.StatusCode, tc.status)
		}
	}
}

func TestRequireRole(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour, time.Hour)
	app := testApp()
	app.Use(JWTMiddleware(issuer), RequireRole(models.RoleAdmin))
	app.Get("/x", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	op, _ := issuer.Generate(&models.User{ID: 2, Role: models.RoleOperator}, TokenAccess)
	admin, _ := issuer.Generate(&models.User{ID: 1, Role: models.RoleAdmin}, TokenAccess)

	for tok, want := range map[string]int{op: 403, admin: 204} {
		req := httptest.NewRequest("GET", "/x", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, _ := app.Test(req)
		if resp.StatusCode != want {
			t.Errorf("status = %d, want %d", resp.StatusCode, want)
		}
	}
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	u, err := CreateUser(ctx, db, CreateUserInput{Username: " Marta ", Password: "secreto1", Mesa: intPtr(2)})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.Username != "marta" || u.Role != models.RoleOperator {
		t.Errorf("user = %+v", u)
	}

	if _, err := CreateUser(ctx, db, CreateUserInput{Username: "MARTA", Password: "otra123"}); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("duplicate username = %v, want Conflict", err)
	}
	if _, err := CreateUser(ctx, db, CreateUserInput{Username: "x", Password: "secreto1", Role: "jefe"}); !apperr.Is(err, apperr.KindInvalidInput) {
		t.Errorf("unknown role = %v, want InvalidInput", err)
	}

	if _, err := Authenticate(ctx, db, "MARTA", "secreto1"); err != nil {
		t.Errorf("Authenticate: %v", err)
	}
	if _, err := Authenticate(ctx, db, "marta", "mal"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("bad password = %v, want Unauthorized", err)
	}
}

func TestLoginAndRefreshHandlers(t *testing.T) {
	db := dbtest.New(t)
	issuer := NewTokenIssuer(testSecret, time.Hour, time.Hour)
	if _, err := CreateUser(context.Background(), db, CreateUserInput{Username: "admin", Password: "secreto1", Role: models.RoleAdmin}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	app := testApp()
	app.Post("/login", LoginHandler(db, issuer))
	app.Post("/refresh", RefreshHandler(db, issuer))

	body, _ := json.Marshal(LoginRequest{Username: "admin", Password: "secreto1"})
	req := httptest.NewRequest("POST", "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("login status = %v, err = %v", resp.StatusCode, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	var login struct {
		Access  string       `json:"access"`
		Refresh string       `json:"refresh"`
		User    UserResponse `json:"user"`
	}
	if err := json.Unmarshal(raw, &login); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if login.User.Role != models.RoleAdmin || login.Access == "" || login.Refresh == "" {
		t.Errorf("login = %+v", login)
	}

	body, _ = json.Marshal(RefreshRequest{Refresh: login.Refresh})
	req = httptest.NewRequest("POST", "/refresh", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != 200 {
		t.Errorf("refresh status = %d, want 200", resp.StatusCode)
	}

	// An access token is not accepted for refreshing.
	body, _ = json.Marshal(RefreshRequest{Refresh: login.Access})
	req = httptest.NewRequest("POST", "/refresh", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != 401 {
		t.Errorf("refresh with access token status = %d, want 401", resp.StatusCode)
	}

	body, _ = json.Marshal(LoginRequest{Username: "admin", Password: "nope"})
	req = httptest.NewRequest("POST", "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != 401 {
		t.Errorf("bad login status = %d, want 401", resp.StatusCode)
	}
}
