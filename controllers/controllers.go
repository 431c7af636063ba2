package controllers

import (
	"github.com/blogem/fyers-login/models"
)

// Controllers holds all controller instances
type Controllers struct {
	Auth *AuthController
}

// NewControllers creates and initializes all controller instances
func NewControllers(state string, session *models.Session) *Controllers {
	return &Controllers{
		Auth: NewAuthController(state, session),
	}
}
