package shim

import (
	"context"
	"net/url"

	"github.com/stretchr/testify/mock"
)

type mockShim struct {
	mock.Mock
}

var _ Shim = (*mockShim)(nil)

func (m *mockShim) Key() string {
	return m.Called().String(0)
}

func (m *mockShim) Configured() bool {
	return m.Called().Bool(0)
}

func (m *mockShim) Begin(ctx context.Context, userID, clientRedirectURL string) (*BeginAuthorization, error) {
	args := m.Called(ctx, userID, clientRedirectURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BeginAuthorization), args.Error(1)
}

func (m *mockShim) Complete(ctx context.Context, params url.Values, pending *PendingAuthorization) (*AuthorizationResult, error) {
	args := m.Called(ctx, params, pending)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AuthorizationResult), args.Error(1)
}
