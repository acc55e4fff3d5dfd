package firebase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"kavach/backend/internal/config"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
)

// Clients bundles the Firebase app and the clients the admin tool uses.
type Clients struct {
	App  *firebase.App
	Auth *auth.Client

	Source    SourceKind
	ProjectID string
	// Operator is the service account acting on users, when known.
	Operator string

	mu        sync.Mutex
	firestore *firestore.Client
	closers   []io.Closer
}

func NewClients(ctx context.Context, cfg config.Config) (*Clients, error) {
	src, err := ResolveSource(cfg)
	if err != nil {
		return nil, err
	}

	res, err := src.resolve(ctx, cfg.ProjectID)
	if err != nil {
		return nil, err
	}

	app, err := NewApp(ctx, res.projectID, res.opts...)
	if err != nil {
		closeAll(res.closers)
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		closeAll(res.closers)
		return nil, fmt.Errorf("app.Auth: %w", err)
	}

	return &Clients{
		App:       app,
		Auth:      authClient,
		Source:    src.Kind,
		ProjectID: res.projectID,
		Operator:  res.operator,
		closers:   res.closers,
	}, nil
}

// Firestore returns the Firestore client, creating it on first use.
func (c *Clients) Firestore(ctx context.Context) (*firestore.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.firestore != nil {
		return c.firestore, nil
	}
	fs, err := c.App.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("app.Firestore: %w", err)
	}
	c.firestore = fs
	c.closers = append(c.closers, fs)
	return fs, nil
}

func (c *Clients) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	err := closeAll(c.closers)
	c.closers = nil
	c.firestore = nil
	return err
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
