package cloud

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/harshpatel5940/reelmark/internal/security"
)

// resolveToken returns the bearer token to use for REST providers. When no
// access token is supplied but a refresh token and client id are, a fresh
// access token is obtained from the vendor's token endpoint.
func resolveToken(ctx context.Context, creds Credentials, endpoint oauth2.Endpoint) (string, error) {
	if creds.AccessToken != "" {
		return creds.AccessToken, nil
	}
	if creds.RefreshToken == "" || creds.ClientID == "" {
		return "", nil
	}

	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     endpoint,
	}
	tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("failed to refresh access token: %w", err)
	}
	return tok.AccessToken, nil
}

func bearer(token string) string {
	return "Bearer " + token
}

// folderName sanitizes the configured application folder so it is safe in
// both search queries and paths.
func folderName(folder string) string {
	if clean := security.SanitizeFilename(folder); clean != "" {
		return clean
	}
	return DefaultFolder
}
