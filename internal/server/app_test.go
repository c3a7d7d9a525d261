package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"comexiger-backend/internal/auth"
	"comexiger-backend/internal/catalog"
	"comexiger-backend/internal/config"
	"comexiger-backend/internal/database/dbtest"
	"comexiger-backend/internal/models"
	"comexiger-backend/internal/notify"
	"comexiger-backend/internal/shift"
	"comexiger-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const secret = "0123456789abcdef0123456789abcdef"

func newTestApp(t *testing.T) (*fiber.App, *notify.Memory) {
	t.Helper()
	db := dbtest.New(t)
	sink := &notify.Memory{}
	log := zerolog.Nop()
	cfg := &config.Config{AppEnv: "test", CORSOrigins: "*", MetricsEnabled: true}

	ctx := context.Background()
	mesa := 2
	if _, err := auth.CreateUser(ctx, db, auth.CreateUserInput{Username: "admin", Password: "secreto1", Role: models.RoleAdmin}); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if _, err := auth.CreateUser(ctx, db, auth.CreateUserInput{Username: "op2", Password: "secreto1", Mesa: &mesa}); err != nil {
		t.Fatalf("create operator: %v", err)
	}

	app := NewApp(Deps{
		Config:  cfg,
		DB:      db,
		Log:     log,
		Issuer:  auth.NewTokenIssuer(secret, time.Hour, 24*time.Hour),
		Stock:   stock.NewLedger(stock.Options{DB: db, Notifier: sink, Log: log, BurnOutboundOnEmpty: true}),
		Shifts:  shift.NewLedger(shift.Options{DB: db, Notifier: sink, Log: log}),
		Catalog: catalog.New(db, log, time.UTC),
	})
	return app, sink
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func login(t *testing.T, app *fiber.App, user string) string {
	t.Helper()
	status, resp := call(t, app, http.MethodPost, "/api/auth/login", "", map[string]any{"username": user, "password": "secreto1"})
	if status != http.StatusOK {
		t.Fatalf("login %s = %d %v", user, status, resp)
	}
	return resp["access"].(string)
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	app, _ := newTestApp(t)

	status, resp := call(t, app, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK || resp["status"] != "ok" {
		t.Errorf("health = %d %v", status, resp)
	}
	resp2, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if err != nil || resp2.StatusCode != http.StatusOK {
		t.Errorf("metrics = %v %v", resp2, err)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	app, _ := newTestApp(t)

	for _, path := range []string{"/api/disponibilidad", "/api/rendimiento/stats", "/api/variedades", "/api/admin/audit-logs"} {
		if status, _ := call(t, app, http.MethodGet, path, "", nil); status != http.StatusUnauthorized {
			t.Errorf("GET %s without token = %d, want 401", path, status)
		}
	}
}

func TestAdminRoutesNeedAdminRole(t *testing.T) {
	app, _ := newTestApp(t)
	op := login(t, app, "op2")

	if status, _ := call(t, app, http.MethodGet, "/api/admin/usuarios", op, nil); status != http.StatusForbidden {
		t.Errorf("operator on admin route = %d, want 403", status)
	}
	admin := login(t, app, "admin")
	if status, _ := call(t, app, http.MethodGet, "/api/admin/usuarios", admin, nil); status != http.StatusOK {
		t.Errorf("admin on admin route = %d, want 200", status)
	}
}

func TestStockAndShiftFlow(t *testing.T) {
	app, sink := newTestApp(t)
	op := login(t, app, "op2")

	scan := map[string]any{"qr_id": "IN-1", "numero_mesa": 2, "variedad": "Freedom", "medida": "50"}
	if status, resp := call(t, app, http.MethodPost, "/api/disponibilidad", op, scan); status != http.StatusCreated {
		t.Fatalf("inbound = %d %v", status, resp)
	}
	scan["qr_id"] = "OUT-1"
	if status, resp := call(t, app, http.MethodPost, "/api/disponibilidad/salida", op, scan); status != http.StatusOK || resp["stock"] != float64(0) {
		t.Fatalf("outbound = %d %v", status, resp)
	}
	if status, resp := call(t, app, http.MethodGet, "/api/disponibilidad/stats", op, nil); status != http.StatusOK || resp["total_registros"] != float64(1) {
		t.Errorf("stock stats = %d %v", status, resp)
	}

	if status, _ := call(t, app, http.MethodPost, "/api/jornada/iniciar", op, map[string]any{"mesa": 3}); status != http.StatusForbidden {
		t.Errorf("operator start on other mesa = %d, want 403", status)
	}
	if status, resp := call(t, app, http.MethodPost, "/api/jornada/iniciar", op, map[string]any{"mesa": 2}); status != http.StatusCreated {
		t.Fatalf("start = %d %v", status, resp)
	}
	if status, resp := call(t, app, http.MethodPost, "/api/rendimiento", op, map[string]any{"qr_id": "B-1", "numero_mesa": 2}); status != http.StatusOK || resp["bonches"] != float64(1) {
		t.Errorf("production = %d %v", status, resp)
	}
	if status, resp := call(t, app, http.MethodGet, "/api/rendimiento/activos", op, nil); status != http.StatusOK {
		t.Errorf("activos = %d %v", status, resp)
	}
	if status, _ := call(t, app, http.MethodPost, "/api/jornada/finalizar", op, map[string]any{"mesa": 2}); status != http.StatusOK {
		t.Errorf("end = %d, want 200", status)
	}

	if n := len(sink.OnChannel(notify.ChannelStock)); n != 2 {
		t.Errorf("stock notifications = %d, want 2", n)
	}
	if n := len(sink.OnChannel(notify.ChannelPerformance)); n != 3 {
		t.Errorf("performance notifications = %d, want 3", n)
	}
}

func TestCatalogRoutes(t *testing.T) {
	app, _ := newTestApp(t)
	admin := login(t, app, "admin")

	status, resp := call(t, app, http.MethodPost, "/api/variedades", admin, map[string]any{"nombre": "explorer"})
	if status != http.StatusCreated {
		t.Fatalf("create variety = %d %v", status, resp)
	}
	if status, _ := call(t, app, http.MethodPost, "/api/variedades", admin, map[string]any{"nombre": "EXPLORER"}); status != http.StatusConflict {
		t.Errorf("duplicate variety = %d, want 409", status)
	}
	if status, _ := call(t, app, http.MethodPost, "/api/admin/mesas", admin, map[string]any{"numero_mesa": 4}); status != http.StatusCreated {
		t.Errorf("create mesa = %d, want 201", status)
	}

	status, logs := call(t, app, http.MethodGet, "/api/admin/audit-logs", admin, nil)
	if status != http.StatusOK {
		t.Errorf("audit logs = %d %v", status, logs)
	}
}
