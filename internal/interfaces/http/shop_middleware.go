package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Farmacia-api/internal/application/dto"
)

// Cabecera y Locals key del cajero/usuario que ejecuta la operación.
const (
	HeaderActorID = "X-Cashier-ID"
	LocalActorID  = "actor_id"
)

// ActorMiddleware extrae el cajero de la cabecera X-Cashier-ID a c.Locals.
// Con required=true responde 401 si la cabecera falta o está vacía.
func ActorMiddleware(required bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := strings.TrimSpace(c.Get(HeaderActorID))
		if actor == "" && required {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ACTOR", Message: HeaderActorID + " requerido"})
		}
		c.Locals(LocalActorID, actor)
		return c.Next()
	}
}

// GetActorID devuelve el cajero del contexto (después de ActorMiddleware).
func GetActorID(c *fiber.Ctx) string {
	v := c.Locals(LocalActorID)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// shopID parámetro :shopId de la ruta.
func shopID(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Params("shopId"))
}
