package store

import (
	"context"
	"fmt"
	"time"

	"kavach/backend/internal/claims"

	"cloud.google.com/go/firestore"
)

// AuditEntry is the document written for every applied claim change.
type AuditEntry struct {
	UID       string                 `firestore:"uid"`
	Action    string                 `firestore:"action"`
	Before    map[string]interface{} `firestore:"before"`
	After     map[string]interface{} `firestore:"after"`
	ProjectID string                 `firestore:"projectId,omitempty"`
	Operator  string                 `firestore:"operator,omitempty"`
	ChangedAt time.Time              `firestore:"changedAt"`
}

// AuditRecorder writes claim changes to <collection>/<change ID>.
type AuditRecorder struct {
	fs         *firestore.Client
	collection string
	projectID  string
	operator   string
}

func (s *Store) AuditRecorder(collection, projectID, operator string) (*AuditRecorder, error) {
	if collection == "" {
		return nil, ErrMissingCollection
	}
	return &AuditRecorder{fs: s.FS, collection: collection, projectID: projectID, operator: operator}, nil
}

func (r *AuditRecorder) Record(ctx context.Context, change claims.Change) error {
	entry := AuditEntry{
		UID:       change.UID,
		Action:    string(change.Action),
		Before:    change.Before,
		After:     change.After,
		ProjectID: r.projectID,
		Operator:  r.operator,
		ChangedAt: change.ChangedAt,
	}
	if _, err := r.fs.Collection(r.collection).Doc(change.ID).Set(ctx, entry); err != nil {
		return fmt.Errorf("audit %s/%s: %w", r.collection, change.ID, err)
	}
	return nil
}
