package store

import (
	"context"
	"fmt"

	"kavach/backend/internal/claims"

	"cloud.google.com/go/firestore"
)

// ProfileRecorder mirrors the admin claim onto the user's profile document
// so clients can read it without refreshing their ID token. Only the admin
// key is mirrored; role claims are left to IsAdmin on the token.
type ProfileRecorder struct {
	fs         *firestore.Client
	collection string
}

func (s *Store) ProfileRecorder(collection string) (*ProfileRecorder, error) {
	if collection == "" {
		return nil, ErrMissingCollection
	}
	return &ProfileRecorder{fs: s.FS, collection: collection}, nil
}

func (r *ProfileRecorder) Record(ctx context.Context, change claims.Change) error {
	ref := r.fs.Collection(r.collection).Doc(change.UID)
	_, err := ref.Set(ctx, map[string]any{
		"admin":           adminFlag(change.After),
		"claimsUpdatedAt": change.ChangedAt.Unix(),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("profile %s/%s: %w", r.collection, change.UID, err)
	}
	return nil
}

func adminFlag(c claims.Claims) bool {
	v, ok := c[claims.AdminKey].(bool)
	return ok && v
}
