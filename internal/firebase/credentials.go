package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"kavach/backend/internal/config"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

var (
	ErrInvalidCredentialSource = errors.New("invalid credential source")
	ErrMissingProjectID        = errors.New("missing FIREBASE_PROJECT_ID or GOOGLE_CLOUD_PROJECT")
)

type SourceKind int

const (
	SourceADC SourceKind = iota
	SourceFile
	SourceGCS
	SourceJSON
	SourceImpersonate
)

func (k SourceKind) String() string {
	switch k {
	case SourceFile:
		return "file"
	case SourceGCS:
		return "gcs"
	case SourceJSON:
		return "json"
	case SourceImpersonate:
		return "impersonate"
	}
	return "adc"
}

// CredentialSource describes where the admin credential comes from.
type CredentialSource struct {
	Kind SourceKind

	Path           string
	Bucket         string
	Object         string
	JSON           []byte
	ServiceAccount string
}

// ResolveSource picks the credential source from cfg. Precedence:
// impersonation, inline JSON, gs:// object, file path, then ADC.
func ResolveSource(cfg config.Config) (CredentialSource, error) {
	switch {
	case cfg.Impersonate != "":
		if !strings.Contains(cfg.Impersonate, "@") {
			return CredentialSource{}, fmt.Errorf("%w: %q is not a service account email", ErrInvalidCredentialSource, cfg.Impersonate)
		}
		if cfg.ProjectID == "" {
			return CredentialSource{}, fmt.Errorf("%w: required when impersonating", ErrMissingProjectID)
		}
		return CredentialSource{Kind: SourceImpersonate, ServiceAccount: cfg.Impersonate}, nil

	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return CredentialSource{Kind: SourceJSON, JSON: []byte(cfg.CredentialsJSON)}, nil

	case strings.HasPrefix(cfg.CredentialsFile, "gs://"):
		bucket, object, err := parseGCSURI(cfg.CredentialsFile)
		if err != nil {
			return CredentialSource{}, err
		}
		return CredentialSource{Kind: SourceGCS, Bucket: bucket, Object: object}, nil

	case cfg.CredentialsFile != "":
		return CredentialSource{Kind: SourceFile, Path: cfg.CredentialsFile}, nil
	}
	return CredentialSource{Kind: SourceADC}, nil
}

func parseGCSURI(uri string) (bucket, object string, err error) {
	rest := strings.TrimPrefix(uri, "gs://")
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" || strings.HasSuffix(object, "/") {
		return "", "", fmt.Errorf("%w: want gs://bucket/object, got %q", ErrInvalidCredentialSource, uri)
	}
	return bucket, object, nil
}

// serviceAccountKey holds the fields of a service account key we report on.
type serviceAccountKey struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
}

func parseServiceAccountKey(b []byte) (serviceAccountKey, error) {
	var k serviceAccountKey
	if err := json.Unmarshal(b, &k); err != nil {
		return serviceAccountKey{}, fmt.Errorf("%w: credentials are not valid JSON: %v", ErrInvalidCredentialSource, err)
	}
	return k, nil
}

// resolved is a credential source turned into client options.
type resolved struct {
	opts      []option.ClientOption
	projectID string
	operator  string
	closers   []io.Closer
}

func (s CredentialSource) resolve(ctx context.Context, projectID string) (*resolved, error) {
	r := &resolved{projectID: projectID}

	switch s.Kind {
	case SourceImpersonate:
		ts, closer, err := newImpersonatedTokenSource(ctx, s.ServiceAccount)
		if err != nil {
			return nil, err
		}
		r.opts = append(r.opts, option.WithTokenSource(ts))
		r.operator = s.ServiceAccount
		r.closers = append(r.closers, closer)
		return r, nil

	case SourceGCS:
		b, err := readGCSObject(ctx, s.Bucket, s.Object)
		if err != nil {
			return nil, err
		}
		return r.withJSON(b)

	case SourceJSON:
		return r.withJSON(s.JSON)

	case SourceFile:
		r.opts = append(r.opts, option.WithCredentialsFile(s.Path))
		// Metadata is best effort; the SDK reports a bad file itself.
		if b, err := os.ReadFile(s.Path); err == nil {
			if k, err := parseServiceAccountKey(b); err == nil {
				r.fill(k)
			}
		}
		return r, nil
	}
	return r, nil
}

func (r *resolved) withJSON(b []byte) (*resolved, error) {
	k, err := parseServiceAccountKey(b)
	if err != nil {
		return nil, err
	}
	r.fill(k)
	r.opts = append(r.opts, option.WithCredentialsJSON(b))
	return r, nil
}

func (r *resolved) fill(k serviceAccountKey) {
	if r.projectID == "" {
		r.projectID = k.ProjectID
	}
	r.operator = k.ClientEmail
}

// readGCSObject downloads a credential object using ambient credentials.
func readGCSObject(ctx context.Context, bucket, object string) ([]byte, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	defer client.Close()

	rd, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", bucket, object, err)
	}
	defer rd.Close()

	b, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", bucket, object, err)
	}
	return b, nil
}
