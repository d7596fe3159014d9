package identity

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
)

// FirebaseVerifier resolves principals through the Firebase Admin SDK.
type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(client *auth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) UserByEmail(ctx context.Context, email string) (Principal, error) {
	user, err := v.client.GetUserByEmail(ctx, email)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return Principal{}, fmt.Errorf("%w: %s", ErrPrincipalNotFound, email)
		}
		return Principal{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return Principal{UID: user.UID, Email: user.Email}, nil
}
