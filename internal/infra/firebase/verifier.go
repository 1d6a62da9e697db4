package firebase

import (
	"context"
	"fmt"

	"escape-room-service/internal/domain"
	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
)

// Verifier checks Firebase ID tokens and looks up the profile of the signed-in user.
type Verifier struct {
	client *auth.Client
}

func NewVerifier(ctx context.Context, app *fb.App) (*Verifier, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting auth client: %w", err)
	}
	return &Verifier{client: client}, nil
}

func (v *Verifier) Verify(ctx context.Context, idToken string) (domain.Identity, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	user, err := v.client.GetUser(ctx, token.UID)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: lookup %s: %w", domain.ErrRemoteRead, token.UID, err)
	}
	return domain.Identity{
		UID:         token.UID,
		DisplayName: user.DisplayName,
		PhoneNumber: user.PhoneNumber,
	}, nil
}

// Revoke invalidates the refresh tokens of uid, signing the user out everywhere.
func (v *Verifier) Revoke(ctx context.Context, uid string) error {
	if err := v.client.RevokeRefreshTokens(ctx, uid); err != nil {
		return fmt.Errorf("error revoking tokens for %s: %w", uid, err)
	}
	return nil
}
