// Package auth resolves the access token used by the storage backends.
// Tokens are only read; dbxmirror never stores credentials.
package auth

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"strings"
	"time"

	"github.com/zalando/go-keyring"

	"github.com/dl-alexandre/dbxmirror/internal/utils"
)

// EnvAccessToken names the environment variable checked after the argument
const EnvAccessToken = "DBXMIRROR_ACCESS_TOKEN"

// Source records where a token came from
type Source string

const (
	SourceArgument    Source = "argument"
	SourceEnvironment Source = "environment"
	SourceKeyring     Source = "keyring"
)

// Token is a resolved access token
type Token struct {
	Value  string
	Source Source
}

// String hides the token value
func (t Token) String() string {
	return "token(" + string(t.Source) + ")"
}

// storedCredentials is the JSON shape accepted from the keyring, as
// written by other OAuth tooling. A bare token string is accepted too.
type storedCredentials struct {
	AccessToken string `json:"accessToken"`
	ExpiryDate  string `json:"expiryDate,omitempty"`
}

// ResolveToken returns the first non-empty token from the positional
// argument, the environment and the system keyring entry
// (service "dbxmirror", user profile), in that order.
func ResolveToken(arg, profile string) (Token, error) {
	if v := strings.TrimSpace(arg); v != "" {
		return Token{Value: v, Source: SourceArgument}, nil
	}
	if v := strings.TrimSpace(os.Getenv(EnvAccessToken)); v != "" {
		return Token{Value: v, Source: SourceEnvironment}, nil
	}
	if profile == "" {
		profile = "default"
	}

	secret, err := keyring.Get(utils.KeyringService, profile)
	if err != nil {
		b := utils.NewCLIError(utils.ErrCodeAuthRequired,
			"No access token: pass one as an argument, set "+EnvAccessToken+" or add it to the system keyring").
			WithContext("profile", profile)
		if !stderrors.Is(err, keyring.ErrNotFound) {
			b = b.WithContext("keyringError", err.Error())
		}
		return Token{}, utils.NewAppError(b.Build())
	}
	return parseStored(secret, profile, time.Now())
}

func parseStored(secret, profile string, now time.Time) (Token, error) {
	secret = strings.TrimSpace(secret)
	if !strings.HasPrefix(secret, "{") {
		if secret == "" {
			return Token{}, invalid(profile, "keyring entry is empty")
		}
		return Token{Value: secret, Source: SourceKeyring}, nil
	}

	var creds storedCredentials
	if err := json.Unmarshal([]byte(secret), &creds); err != nil {
		return Token{}, invalid(profile, "keyring entry is not valid credentials JSON")
	}
	if creds.AccessToken == "" {
		return Token{}, invalid(profile, "keyring entry has no accessToken")
	}
	if creds.ExpiryDate != "" {
		expiry, err := time.Parse(time.RFC3339, creds.ExpiryDate)
		if err != nil {
			return Token{}, invalid(profile, "keyring entry has a malformed expiryDate")
		}
		if !expiry.After(now) {
			return Token{}, utils.NewAppError(utils.NewCLIError(utils.ErrCodeAuthExpired,
				"Access token in the system keyring has expired").
				WithContext("profile", profile).
				WithContext("expiry", creds.ExpiryDate).
				Build())
		}
	}
	return Token{Value: creds.AccessToken, Source: SourceKeyring}, nil
}

func invalid(profile, msg string) error {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeAuthInvalid, msg).
		WithContext("profile", profile).
		Build())
}
