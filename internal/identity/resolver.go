// Package identity maps a caller-supplied email to a stable principal via
// the external identity provider. Resolution is read-only; provider faults
// are surfaced as transient errors distinct from client-caused ones.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingIdentifier marks a request without a caller identifier.
	ErrMissingIdentifier = errors.New("missing identifier")
	// ErrPrincipalNotFound marks an identifier the provider does not know.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrProviderUnavailable marks a transient identity-provider fault.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Principal is the resolved internal representation of a caller.
type Principal struct {
	UID   string
	Email string
}

// Verifier is the narrow capability the resolver needs from the identity
// provider. Implementations classify misses with ErrPrincipalNotFound and
// wrap transport faults in ErrProviderUnavailable.
type Verifier interface {
	UserByEmail(ctx context.Context, email string) (Principal, error)
}

// Resolver validates the identifier and delegates to the provider with a
// bounded call.
type Resolver struct {
	verifier Verifier
	timeout  time.Duration
}

func NewResolver(v Verifier, timeout time.Duration) *Resolver {
	return &Resolver{verifier: v, timeout: timeout}
}

// Resolve returns the principal for an email address.
func (r *Resolver) Resolve(ctx context.Context, email string) (Principal, error) {
	if email == "" {
		return Principal{}, ErrMissingIdentifier
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	p, err := r.verifier.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return Principal{}, err
		}
		if errors.Is(err, ErrProviderUnavailable) {
			return Principal{}, err
		}
		return Principal{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return p, nil
}
