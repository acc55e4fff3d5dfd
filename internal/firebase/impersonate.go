package firebase

import (
	"context"
	"fmt"
	"io"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	credentialspb "cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"github.com/googleapis/gax-go/v2"
	"golang.org/x/oauth2"
	"google.golang.org/protobuf/types/known/durationpb"
)

const impersonatedTokenLifetime = time.Hour

// Scopes needed by the Auth and Firestore admin APIs.
var impersonationScopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/datastore",
	"https://www.googleapis.com/auth/firebase",
	"https://www.googleapis.com/auth/identitytoolkit",
	"https://www.googleapis.com/auth/userinfo.email",
}

type tokenGenerator interface {
	GenerateAccessToken(ctx context.Context, req *credentialspb.GenerateAccessTokenRequest, opts ...gax.CallOption) (*credentialspb.GenerateAccessTokenResponse, error)
}

// impersonatedTokenSource mints access tokens for a service account via the
// IAM Credentials API. The caller must be granted
// roles/iam.serviceAccountTokenCreator on it.
type impersonatedTokenSource struct {
	ctx      context.Context
	iam      tokenGenerator
	name     string
	lifetime time.Duration
}

func (ts *impersonatedTokenSource) Token() (*oauth2.Token, error) {
	resp, err := ts.iam.GenerateAccessToken(ts.ctx, &credentialspb.GenerateAccessTokenRequest{
		Name:     ts.name,
		Scope:    impersonationScopes,
		Lifetime: durationpb.New(ts.lifetime),
	})
	if err != nil {
		return nil, fmt.Errorf("iam GenerateAccessToken for %s: %w", ts.name, err)
	}
	return &oauth2.Token{
		AccessToken: resp.GetAccessToken(),
		TokenType:   "Bearer",
		Expiry:      resp.GetExpireTime().AsTime(),
	}, nil
}

func serviceAccountResource(email string) string {
	return "projects/-/serviceAccounts/" + email
}

func newImpersonatedTokenSource(ctx context.Context, email string) (oauth2.TokenSource, io.Closer, error) {
	iamClient, err := credentials.NewIamCredentialsClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("iam credentials client: %w", err)
	}
	ts := &impersonatedTokenSource{
		ctx:      ctx,
		iam:      iamClient,
		name:     serviceAccountResource(email),
		lifetime: impersonatedTokenLifetime,
	}
	return oauth2.ReuseTokenSource(nil, ts), iamClient, nil
}
