package auth

import (
	errors "github.com/frahmantamala/plant-operations/internal"
	"github.com/frahmantamala/plant-operations/internal/core/common/validation"
	"github.com/frahmantamala/plant-operations/internal/user"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenDTO for refresh token requests
type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (d LoginDTO) Validate() *errors.AppError {
	return validation.Struct(d)
}

func (d RefreshTokenDTO) Validate() *errors.AppError {
	return validation.Struct(d)
}

// LoginResponse carries the tokens plus the signed-in user with their matrix, so a client can gate
// its UI without a second round trip.
type LoginResponse struct {
	AuthTokens
	User *user.User `json:"user"`
}
