package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/blogem/fyers-login/authenticator"
	"github.com/blogem/fyers-login/browser"
	"github.com/blogem/fyers-login/callback"
	"github.com/blogem/fyers-login/config"
	"github.com/blogem/fyers-login/controllers"
	"github.com/blogem/fyers-login/models"
	"github.com/blogem/fyers-login/services"
)

func main() {
	// Load settings from .env and the environment
	settings, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: settings.SlogLevel(),
	})))

	// Shared session slots, seeded with any token already configured
	session := models.NewSession(settings.AccessToken)

	// Initialize Fyers provider
	provider, err := authenticator.NewFyersProvider(authenticator.FyersConfig{
		ClientID:     settings.ClientID,
		ClientSecret: settings.SecretID,
		CallbackURL:  settings.RedirectURI,
		APIBaseURL:   settings.APIBaseURL,
		GrantType:    config.GrantType,
		HTTPClient:   &http.Client{Timeout: settings.HTTPTimeout},
	})
	if err != nil {
		log.Fatalf("Failed to initialize Fyers provider: %v", err)
	}

	// Initialize controllers and the callback listener
	ctrl := controllers.NewControllers(settings.State, session)
	listener := callback.NewListener(settings.ListenAddr(), settings.CallbackPath(), ctrl)

	// Initialize services
	srvs := services.NewServices(session, provider, listener, services.AuthOptions{
		State:        settings.State,
		ForceLogin:   settings.ForceLogin,
		PollInterval: settings.PollInterval,
		WaitTimeout:  settings.WaitTimeout,
		OpenBrowser:  browser.Open,
		Out:          os.Stdout,
	})

	result, err := srvs.Auth.GenerateAccessToken(context.Background())
	if err != nil {
		log.Fatalf("Login flow aborted: %v", err)
	}

	if !result.Success() {
		os.Exit(1)
	}

	if result.State == models.StateTokenAcquired {
		fmt.Printf("FYERS_ACCESS_TOKEN=%s\n", session.AccessToken())
	}
}
