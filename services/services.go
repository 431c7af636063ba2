package services

import (
	"github.com/blogem/fyers-login/authenticator"
	"github.com/blogem/fyers-login/models"
)

// Services holds all service instances
type Services struct {
	Auth AuthService
}

// NewServices creates and initializes all service instances
func NewServices(session *models.Session, provider authenticator.Provider, listener CallbackListener, opts AuthOptions) *Services {
	return &Services{
		Auth: NewAuthService(session, provider, listener, opts),
	}
}
