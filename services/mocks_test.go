package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/blogem/fyers-login/authenticator"
)

// MockProvider is a testify mock of authenticator.Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) GetAuthURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *MockProvider) ExchangeCode(ctx context.Context, code string) (*authenticator.Token, error) {
	args := m.Called(ctx, code)
	token, _ := args.Get(0).(*authenticator.Token)
	return token, args.Error(1)
}

// MockListener is a testify mock of CallbackListener
type MockListener struct {
	mock.Mock
}

func (m *MockListener) Start(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockListener) Shutdown(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
