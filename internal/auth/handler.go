package auth

import (
	"comexiger-backend/internal/apperr"
	"comexiger-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

type CreateUserRequest struct {
	Username  string          `json:"username"`
	Password  string          `json:"password"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Role      models.UserRole `json:"cargo"`
	Mesa      *int            `json:"mesa"`
}

type UserResponse struct {
	ID        uint            `json:"id"`
	Username  string          `json:"username"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Role      models.UserRole `json:"cargo"`
	Mesa      *int            `json:"mesa"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		Mesa:      u.Mesa,
	}
}

// POST /api/auth/login
func LoginHandler(db *gorm.DB, issuer *TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.New(apperr.KindInvalidInput, "Cuerpo de la solicitud inválido")
		}
		if body.Username == "" || body.Password == "" {
			return apperr.New(apperr.KindInvalidInput, "Usuario y contraseña son obligatorios")
		}

		user, err := Authenticate(c.UserContext(), db, body.Username, body.Password)
		if err != nil {
			return err
		}

		pair, err := issuer.IssuePair(user)
		if err != nil {
			return apperr.Internal("No se pudo generar el token", err)
		}

		return c.JSON(fiber.Map{
			"access":  pair.Access,
			"refresh": pair.Refresh,
			"user":    toUserResponse(user),
		})
	}
}

// POST /api/auth/refresh
func RefreshHandler(db *gorm.DB, issuer *TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RefreshRequest
		if err := c.BodyParser(&body); err != nil || body.Refresh == "" {
			return apperr.New(apperr.KindInvalidInput, "El token de refresco es obligatorio")
		}

		claims, err := issuer.Parse(body.Refresh, TokenRefresh)
		if err != nil {
			return apperr.Wrap(apperr.KindUnauthorized, "Token de refresco inválido o expirado", err)
		}

		// Role and mesa may have changed since the refresh token was issued.
		var user models.User
		if err := db.WithContext(c.UserContext()).First(&user, claims.UserID).Error; err != nil {
			return apperr.New(apperr.KindUnauthorized, "El usuario ya no existe")
		}

		access, err := issuer.Generate(&user, TokenAccess)
		if err != nil {
			return apperr.Internal("No se pudo generar el token", err)
		}
		return c.JSON(fiber.Map{"access": access})
	}
}

// GET /api/auth/me
func MeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return apperr.New(apperr.KindUnauthorized, "No autenticado")
		}
		var user models.User
		if err := db.WithContext(c.UserContext()).First(&user, p.UserID).Error; err != nil {
			return apperr.New(apperr.KindNotFound, "Usuario no encontrado")
		}
		return c.JSON(toUserResponse(&user))
	}
}

// POST /api/admin/usuarios
func CreateUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.New(apperr.KindInvalidInput, "Cuerpo de la solicitud inválido")
		}
		user, err := CreateUser(c.UserContext(), db, CreateUserInput{
			Username:  body.Username,
			Password:  body.Password,
			FirstName: body.FirstName,
			LastName:  body.LastName,
			Role:      body.Role,
			Mesa:      body.Mesa,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
	}
}

// GET /api/admin/usuarios
func ListUsersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := db.WithContext(c.UserContext()).Order("username").Find(&users).Error; err != nil {
			return apperr.Internal("No se pudieron listar los usuarios", err)
		}
		resp := make([]UserResponse, 0, len(users))
		for i := range users {
			resp = append(resp, toUserResponse(&users[i]))
		}
		return c.JSON(resp)
	}
}
