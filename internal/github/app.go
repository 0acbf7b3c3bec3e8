package github

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AppCredentials identify a GitHub App that can mint installation tokens.
type AppCredentials struct {
	AppID      int64
	PrivateKey []byte // PEM encoded RSA key
}

// LoadAppCredentials parses an app id and a private key given either inline
// (PEM text) or as a path to a PEM file.
func LoadAppCredentials(appID, privateKey string) (AppCredentials, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(appID), 10, 64)
	if err != nil || id <= 0 {
		return AppCredentials{}, fmt.Errorf("invalid app id %q", appID)
	}

	key := strings.TrimSpace(privateKey)
	if key == "" {
		return AppCredentials{}, errors.New("app private key is required")
	}
	if !strings.HasPrefix(key, "-----BEGIN") {
		raw, err := os.ReadFile(key)
		if err != nil {
			return AppCredentials{}, fmt.Errorf("read app private key: %w", err)
		}
		key = strings.TrimSpace(string(raw))
	}
	return AppCredentials{AppID: id, PrivateKey: []byte(key)}, nil
}

// AppJWT signs the short-lived RS256 token GitHub expects from an app. The
// issued-at time is backdated a minute to absorb clock drift.
func AppJWT(creds AppCredentials, now time.Time) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(creds.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("parse app private key: %w", err)
	}
	claims := jwt.RegisteredClaims{
		Issuer:    strconv.FormatInt(creds.AppID, 10),
		IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(9 * time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign app jwt: %w", err)
	}
	return signed, nil
}

// InstallationToken exchanges app credentials for an installation token
// scoped to owner/repo, or to the owner's installation when repo is empty
// (the repository may not exist yet). opts configure the app client the
// same way as NewClient.
func InstallationToken(ctx context.Context, creds AppCredentials, owner, repo string, opts ...Option) (string, error) {
	signed, err := AppJWT(creds, time.Now())
	if err != nil {
		return "", err
	}
	app, err := NewClient(ctx, signed, opts...)
	if err != nil {
		return "", err
	}

	var installationID int64
	if repo != "" {
		inst, _, err := app.Client.Apps.FindRepositoryInstallation(ctx, owner, repo)
		if err != nil {
			return "", fmt.Errorf("find app installation for %s/%s: %s", owner, repo, ErrorMessage(err))
		}
		installationID = inst.GetID()
	} else {
		inst, _, err := app.Client.Apps.FindOrganizationInstallation(ctx, owner)
		if err != nil {
			inst, _, err = app.Client.Apps.FindUserInstallation(ctx, owner)
		}
		if err != nil {
			return "", fmt.Errorf("find app installation for %s: %s", owner, ErrorMessage(err))
		}
		installationID = inst.GetID()
	}

	tok, _, err := app.Client.Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		return "", fmt.Errorf("create installation token: %s", ErrorMessage(err))
	}
	return tok.GetToken(), nil
}
