package googledrive

import (
	"context"
	"fmt"

	"github.com/studybite/backend/internal/adapter"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// Provider implements adapter.StorageProvider for Google Drive.
type Provider struct {
	opts []option.ClientOption
}

// NewProvider creates a new Google Drive provider. opts are appended to
// every client it builds.
func NewProvider(opts ...option.ClientOption) *Provider {
	return &Provider{opts: opts}
}

// GetAdapter returns a DriveAdapter authorized with accessToken for one request.
func (p *Provider) GetAdapter(ctx context.Context, accessToken string) (adapter.StorageAdapter, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})

	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, p.opts...)
	storage, err := NewDriveAdapter(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive adapter: %w", err)
	}
	return storage, nil
}
