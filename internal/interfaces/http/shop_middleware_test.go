package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/Farmacia-api/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// buildActorApp aplicación mínima con ActorMiddleware y un handler que devuelve el cajero leído.
func buildActorApp(required bool) *fiber.App {
	app := fiber.New()
	app.Get("/protected",
		apphttp.ActorMiddleware(required),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"actor": apphttp.GetActorID(c)})
		},
	)
	return app
}

func doActorRequest(t *testing.T, app *fiber.App, actor string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if actor != "" {
		req.Header.Set(apphttp.HeaderActorID, actor)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func readJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out), "body: %s", body)
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests ActorMiddleware
// ──────────────────────────────────────────────────────────────────────────────

func TestActorMiddleware_CabeceraPresente(t *testing.T) {
	app := buildActorApp(true)

	resp := doActorRequest(t, app, "  cajero-7 ")

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "cajero-7", readJSON(t, resp)["actor"])
}

func TestActorMiddleware_ObligatorioSinCabecera(t *testing.T) {
	app := buildActorApp(true)

	resp := doActorRequest(t, app, "")

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "MISSING_ACTOR", readJSON(t, resp)["code"])
}

func TestActorMiddleware_OpcionalSinCabecera(t *testing.T) {
	app := buildActorApp(false)

	resp := doActorRequest(t, app, "")

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "", readJSON(t, resp)["actor"])
}

func TestGetActorID_SinMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("[" + apphttp.GetActorID(c) + "]")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "[]", string(body))
}
