// Package store defines the durable mapping from a service name to its
// current token record. Backends provide their own atomicity; the core does
// not serialize concurrent refreshes, so the last writer wins.
package store

import (
	"context"

	"go.pilab.hu/oauthkit/domain"
)

// TokenStore persists the token record of each configured service.
type TokenStore interface {
	// Get returns the stored record, or errors.ErrTokenNotFound when the
	// service has no record.
	Get(ctx context.Context, serviceName string) (*domain.TokenRecord, error)

	// Put stores or replaces the record for the service.
	Put(ctx context.Context, serviceName string, record *domain.TokenRecord) error

	// Delete removes the record for the service. Deleting an absent record
	// is not an error.
	Delete(ctx context.Context, serviceName string) error
}
