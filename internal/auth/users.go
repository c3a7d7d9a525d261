package auth

import (
	"context"
	"errors"
	"strings"

	"comexiger-backend/internal/apperr"
	"comexiger-backend/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type CreateUserInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Role      models.UserRole
	Mesa      *int
}

// CreateUser hashes the password and stores the user; usernames are case-insensitive.
func CreateUser(ctx context.Context, db *gorm.DB, in CreateUserInput) (*models.User, error) {
	in.Username = strings.TrimSpace(strings.ToLower(in.Username))
	if in.Username == "" || in.Password == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "Usuario y contraseña son obligatorios")
	}
	if len(in.Password) < 6 {
		return nil, apperr.New(apperr.KindInvalidInput, "La contraseña debe tener al menos 6 caracteres")
	}
	if in.Role == "" {
		in.Role = models.RoleOperator
	}
	if !in.Role.Valid() {
		return nil, apperr.Newf(apperr.KindInvalidInput, "Rol desconocido: %s", in.Role)
	}
	if in.Mesa != nil && *in.Mesa <= 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "La mesa debe ser un número positivo")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("No se pudo procesar la contraseña", err)
	}

	user := models.User{
		Username:     in.Username,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: string(hash),
		Role:         in.Role,
		Mesa:         in.Mesa,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, apperr.New(apperr.KindConflict, "El usuario ya existe")
		}
		return nil, apperr.Internal("No se pudo crear el usuario", err)
	}
	return &user, nil
}

// Authenticate returns the user when the credentials match.
func Authenticate(ctx context.Context, db *gorm.DB, username, password string) (*models.User, error) {
	username = strings.TrimSpace(strings.ToLower(username))

	var user models.User
	if err := db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, apperr.New(apperr.KindUnauthorized, "Usuario o contraseña incorrectos")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.New(apperr.KindUnauthorized, "Usuario o contraseña incorrectos")
	}
	return &user, nil
}
