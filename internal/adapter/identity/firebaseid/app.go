// Package firebaseid talks to Firebase Authentication: the Identity Toolkit REST
// API for interactive sign-in and the Admin SDK for bearer verification.
package firebaseid

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/kolapodev-a11y/PropertyHub/internal/config"
)

// NewApp initialises the Admin SDK. Without a credentials file the SDK falls
// back to application default credentials.
func NewApp(ctx context.Context, cfg config.FirebaseConfig) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise firebase app: %w", err)
	}
	return app, nil
}
