package firebase

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// NewApp initializes the Firebase app. With no options the SDK falls back to
// Application Default Credentials.
func NewApp(ctx context.Context, projectID string, opts ...option.ClientOption) (*firebase.App, error) {
	// If ProjectID is set, pass it (useful when running locally)
	appCfg := &firebase.Config{}
	if projectID != "" {
		appCfg.ProjectID = projectID
	}
	return firebase.NewApp(ctx, appCfg, opts...)
}
