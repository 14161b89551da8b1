package shim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/dmitrymomot/shimkit/pkg/logger"
)

// Orchestrator drives Begin/Complete against the right adapter, owns the
// pending-authorization lifecycle, and persists credentials. All side
// effects are confined to the injected stores; adapters do the network I/O.
type Orchestrator struct {
	registry    *Registry
	credentials CredentialStore
	pending     PendingAuthorizationStore
	logger      *slog.Logger
}

// OrchestratorOption configures an orchestrator during construction.
type OrchestratorOption func(*Orchestrator)

// WithLogger configures the orchestrator's logger.
func WithLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOrchestrator wires the registry and the two stores together. The logger
// discards by default.
func NewOrchestrator(registry *Registry, credentials CredentialStore, pending PendingAuthorizationStore, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		registry:    registry,
		credentials: credentials,
		pending:     pending,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Begin starts an authorization flow for the user against the named shim and
// persists the pending record the adapter produced. clientRedirectURL, when
// non-empty, is recorded so Complete can hand it back to the HTTP layer.
func (o *Orchestrator) Begin(ctx context.Context, userID, shimKey, clientRedirectURL string) (*BeginAuthorization, error) {
	adapter, err := o.registry.Get(shimKey)
	if err != nil {
		return nil, fmt.Errorf("resolve shim %q: %w", shimKey, err)
	}

	begin, err := adapter.Begin(ctx, userID, clientRedirectURL)
	if err != nil {
		return nil, err
	}

	if begin.Pending != nil {
		if err := o.pending.Save(ctx, begin.Pending); err != nil {
			return nil, fmt.Errorf("store pending authorization: %w", err)
		}
	}
	return begin, nil
}

// Complete correlates a provider callback with the authorization attempt
// that initiated it and finishes the token exchange. An unknown or
// already-consumed state token fails with ErrInvalidState; this is never
// bypassed. The credential is persisted only on an Authorized outcome.
func (o *Orchestrator) Complete(ctx context.Context, shimKey string, params url.Values) (*AuthorizationResult, error) {
	adapter, err := o.registry.Get(shimKey)
	if err != nil {
		return nil, fmt.Errorf("resolve shim %q: %w", shimKey, err)
	}

	stateToken := params.Get("state")
	if stateToken == "" {
		return nil, ErrMissingState
	}

	pending, err := o.pending.FindByStateToken(ctx, stateToken)
	if err != nil {
		if errors.Is(err, ErrNoPendingAuthorization) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("look up pending authorization: %w", err)
	}
	if pending.ShimKey != shimKey {
		return nil, ErrInvalidState
	}

	// Consume the state token before the exchange so a duplicate callback
	// delivery can never double-create a credential. The store reports a
	// miss when a concurrent delivery consumed the token first; that caller
	// already owns the exchange.
	if err := o.pending.Delete(ctx, pending); err != nil {
		if errors.Is(err, ErrNoPendingAuthorization) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("consume pending authorization: %w", err)
	}

	result, err := adapter.Complete(ctx, params, pending)
	if err != nil {
		return nil, err
	}
	result.ClientRedirectURL = pending.ClientRedirectURL

	if result.Outcome == OutcomeAuthorized {
		if err := o.credentials.Save(ctx, result.Credential); err != nil {
			return nil, fmt.Errorf("store access credential: %w", err)
		}
		o.logger.InfoContext(ctx, "authorization completed",
			logger.ShimKey(shimKey), logger.UserID(pending.UserID))
	} else {
		o.logger.InfoContext(ctx, "authorization not granted",
			logger.ShimKey(shimKey),
			logger.UserID(pending.UserID),
			slog.String("outcome", string(result.Outcome)),
			slog.String("details", result.Details),
		)
	}

	return result, nil
}

// Deauthorize removes every credential for the (user, shim) pair, not just
// the latest. Deleting when none exist is not an error.
func (o *Orchestrator) Deauthorize(ctx context.Context, userID, shimKey string) error {
	credentials, err := o.credentials.FindAll(ctx, userID, shimKey)
	if err != nil {
		return fmt.Errorf("list credentials: %w", err)
	}
	for _, credential := range credentials {
		if err := o.credentials.Delete(ctx, credential); err != nil && !errors.Is(err, ErrCredentialNotFound) {
			return fmt.Errorf("delete credential: %w", err)
		}
	}
	o.logger.InfoContext(ctx, "deauthorized",
		logger.ShimKey(shimKey), logger.UserID(userID), slog.Int("removed", len(credentials)))
	return nil
}

// Keys reports the shims that are registered and usable.
func (o *Orchestrator) Keys() []string {
	return o.registry.Keys()
}
