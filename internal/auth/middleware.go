package auth

import (
	"strings"

	"comexiger-backend/internal/apperr"
	"comexiger-backend/internal/audit"
	"comexiger-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUsernameKey = "username"
	CtxUserRoleKey = "user_role"
	CtxMesaKey     = "mesa"
)

func JWTMiddleware(issuer *TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return apperr.New(apperr.KindUnauthorized, "Falta el encabezado Authorization")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return apperr.New(apperr.KindUnauthorized, "El formato debe ser 'Bearer <token>'")
		}

		claims, err := issuer.Parse(parts[1], TokenAccess)
		if err != nil {
			return apperr.Wrap(apperr.KindUnauthorized, "Token inválido o expirado", err)
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUsernameKey, claims.Username)
		c.Locals(CtxUserRoleKey, claims.Role)
		c.Locals(CtxMesaKey, claims.Mesa)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return apperr.New(apperr.KindForbidden, "No se pudo obtener el rol")
		}
		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return apperr.New(apperr.KindForbidden, "No tienes permiso para esta operación")
	}
}

// Principal is the authenticated caller as seen by handlers.
type Principal struct {
	UserID   uint
	Username string
	Role     models.UserRole
	Mesa     *int
}

func (p Principal) Actor() audit.Actor {
	return audit.Actor{UserID: p.UserID, UserName: p.Username}
}

func PrincipalFrom(c *fiber.Ctx) (Principal, bool) {
	id, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok {
		return Principal{}, false
	}
	p := Principal{UserID: id}
	p.Username, _ = c.Locals(CtxUsernameKey).(string)
	p.Role, _ = c.Locals(CtxUserRoleKey).(models.UserRole)
	p.Mesa, _ = c.Locals(CtxMesaKey).(*int)
	return p, true
}

// EnforceMesa rejects operators acting on a mesa other than their own.
// Admins and supervisors may act on any mesa.
func EnforceMesa(c *fiber.Ctx, mesa int) error {
	p, ok := PrincipalFrom(c)
	if !ok {
		return apperr.New(apperr.KindUnauthorized, "No autenticado")
	}
	if p.Role.HasGlobalMesaAccess() {
		return nil
	}
	if p.Mesa == nil || *p.Mesa != mesa {
		return apperr.New(apperr.KindForbidden, "No puedes operar en otra mesa")
	}
	return nil
}
