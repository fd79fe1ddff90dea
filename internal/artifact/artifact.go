// Package artifact defines the boundary to durable blob storage for
// uploaded answer sheet files. It abstracts the object storage details
// (MinIO/S3), allowing the pipeline to store, fetch and reference
// artifacts without coupling to a specific backend.
package artifact

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the interface for artifact blob storage.
type Store interface {
	// Put writes the artifact bytes and returns an opaque reference that
	// can later be resolved with Get or PublicURL. The reference is scoped
	// under the owner so artifacts from different owners never collide.
	Put(ctx context.Context, ownerID uuid.UUID, data []byte, contentType string) (string, error)

	// Get retrieves the artifact bytes for the given reference.
	Get(ctx context.Context, ref string) ([]byte, string, error)

	// PublicURL returns a time-limited URL under which the artifact can be
	// fetched without credentials.
	PublicURL(ctx context.Context, ref string) (string, error)

	// Delete removes the artifact. Used to compensate a failed ingestion
	// and to clean up withdrawn sheets.
	Delete(ctx context.Context, ref string) error
}
