package firebase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"kavach/backend/internal/config"

	credentialspb "cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const testKey = `{"type":"service_account","project_id":"kavach-c9d5b","client_email":"firebase-adminsdk@kavach-c9d5b.iam.gserviceaccount.com"}`

func TestResolveSource(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want CredentialSource
	}{
		{
			name: "adc when nothing set",
			cfg:  config.Config{},
			want: CredentialSource{Kind: SourceADC},
		},
		{
			name: "file path",
			cfg:  config.Config{CredentialsFile: "key.json"},
			want: CredentialSource{Kind: SourceFile, Path: "key.json"},
		},
		{
			name: "gcs object",
			cfg:  config.Config{CredentialsFile: "gs://secrets/admin/key.json"},
			want: CredentialSource{Kind: SourceGCS, Bucket: "secrets", Object: "admin/key.json"},
		},
		{
			name: "json wins over file",
			cfg:  config.Config{CredentialsFile: "key.json", CredentialsJSON: testKey},
			want: CredentialSource{Kind: SourceJSON, JSON: []byte(testKey)},
		},
		{
			name: "impersonation wins over everything",
			cfg: config.Config{
				CredentialsFile: "key.json",
				CredentialsJSON: testKey,
				Impersonate:     "admin@kavach-c9d5b.iam.gserviceaccount.com",
				ProjectID:       "kavach-c9d5b",
			},
			want: CredentialSource{Kind: SourceImpersonate, ServiceAccount: "admin@kavach-c9d5b.iam.gserviceaccount.com"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveSource(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveSource_Errors(t *testing.T) {
	_, err := ResolveSource(config.Config{Impersonate: "admin@x.iam.gserviceaccount.com"})
	assert.ErrorIs(t, err, ErrMissingProjectID)

	_, err = ResolveSource(config.Config{Impersonate: "not-an-email", ProjectID: "p"})
	assert.ErrorIs(t, err, ErrInvalidCredentialSource)

	for _, uri := range []string{"gs://", "gs://bucket", "gs://bucket/", "gs:///key.json", "gs://bucket/dir/"} {
		_, err = ResolveSource(config.Config{CredentialsFile: uri})
		assert.ErrorIs(t, err, ErrInvalidCredentialSource, uri)
	}
}

func TestResolve_JSONFillsProjectAndOperator(t *testing.T) {
	src := CredentialSource{Kind: SourceJSON, JSON: []byte(testKey)}

	res, err := src.resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "kavach-c9d5b", res.projectID)
	assert.Equal(t, "firebase-adminsdk@kavach-c9d5b.iam.gserviceaccount.com", res.operator)
	assert.Len(t, res.opts, 1)

	res, err = src.resolve(context.Background(), "override")
	require.NoError(t, err)
	assert.Equal(t, "override", res.projectID)
}

func TestResolve_InvalidJSON(t *testing.T) {
	src := CredentialSource{Kind: SourceJSON, JSON: []byte("{not json")}
	_, err := src.resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidCredentialSource)
}

func TestResolve_FileReadsMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, []byte(testKey), 0o600))

	res, err := CredentialSource{Kind: SourceFile, Path: path}.resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "kavach-c9d5b", res.projectID)
	assert.Len(t, res.opts, 1)
}

func TestResolve_MissingFileLeftToSDK(t *testing.T) {
	res, err := CredentialSource{Kind: SourceFile, Path: "does-not-exist.json"}.resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, res.projectID)
	assert.Len(t, res.opts, 1)
}

func TestSourceKindString(t *testing.T) {
	assert.Equal(t, "adc", SourceADC.String())
	assert.Equal(t, "file", SourceFile.String())
	assert.Equal(t, "gcs", SourceGCS.String())
	assert.Equal(t, "json", SourceJSON.String())
	assert.Equal(t, "impersonate", SourceImpersonate.String())
}

type fakeGenerator struct {
	req  *credentialspb.GenerateAccessTokenRequest
	resp *credentialspb.GenerateAccessTokenResponse
	err  error
}

func (f *fakeGenerator) GenerateAccessToken(_ context.Context, req *credentialspb.GenerateAccessTokenRequest, _ ...gax.CallOption) (*credentialspb.GenerateAccessTokenResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestImpersonatedTokenSource(t *testing.T) {
	expiry := time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC)
	gen := &fakeGenerator{resp: &credentialspb.GenerateAccessTokenResponse{
		AccessToken: "ya29.token",
		ExpireTime:  timestamppb.New(expiry),
	}}
	ts := &impersonatedTokenSource{
		ctx:      context.Background(),
		iam:      gen,
		name:     serviceAccountResource("admin@kavach-c9d5b.iam.gserviceaccount.com"),
		lifetime: impersonatedTokenLifetime,
	}

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "ya29.token", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.True(t, tok.Expiry.Equal(expiry))

	assert.Equal(t, "projects/-/serviceAccounts/admin@kavach-c9d5b.iam.gserviceaccount.com", gen.req.GetName())
	assert.Contains(t, gen.req.GetScope(), "https://www.googleapis.com/auth/identitytoolkit")
	assert.Equal(t, time.Hour, gen.req.GetLifetime().AsDuration())
}

func TestImpersonatedTokenSource_Error(t *testing.T) {
	boom := errors.New("permission denied")
	ts := &impersonatedTokenSource{ctx: context.Background(), iam: &fakeGenerator{err: boom}, name: "sa"}

	_, err := ts.Token()
	assert.ErrorIs(t, err, boom)
}
