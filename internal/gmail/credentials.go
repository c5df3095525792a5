// Package gmail wraps the Gmail API for report ingestion and notification
// dispatch: searching for report mail, downloading PDF attachments, labeling
// processed messages, and sending MIME notifications with retry handling for
// rate limits.
package gmail

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"

	apperrors "github.com/seacliff-digital/reportpilot/pkg/errors"
)

// expirySlack refreshes tokens slightly before their stated expiry so an
// in-flight request never races the cutoff.
const expirySlack = 30 * time.Second

// Credentials holds the OAuth client configuration and the current token,
// persisting refreshed tokens back to disk so the next run starts warm.
type Credentials struct {
	cfg       *oauth2.Config
	tokenPath string

	mu    sync.Mutex
	token *oauth2.Token
}

// LoadCredentials reads the OAuth client secret and stored token files.
func LoadCredentials(credentialsPath, tokenPath string) (*Credentials, error) {
	secret, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, apperrors.Wrap(err, "GMAIL_CREDENTIALS", 500, "reading oauth client secret")
	}
	cfg, err := google.ConfigFromJSON(secret, gmailapi.GmailModifyScope)
	if err != nil {
		return nil, apperrors.Wrap(err, "GMAIL_CREDENTIALS", 500, "parsing oauth client secret")
	}

	raw, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, apperrors.Wrap(err, "GMAIL_CREDENTIALS", 500, "reading stored oauth token")
	}
	token := &oauth2.Token{}
	if err := json.Unmarshal(raw, token); err != nil {
		return nil, apperrors.Wrap(err, "GMAIL_CREDENTIALS", 500, "parsing stored oauth token")
	}

	return &Credentials{cfg: cfg, tokenPath: tokenPath, token: token}, nil
}

// Refresh exchanges the refresh token for a fresh access token, but only
// when the current one is expired or about to expire. Callers may invoke it
// freely; a valid token is a no-op.
func (c *Credentials) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token.Valid() && time.Until(c.token.Expiry) > expirySlack {
		return nil
	}

	fresh, err := c.cfg.TokenSource(ctx, c.token).Token()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrUnauthorized.Code, apperrors.ErrUnauthorized.Status,
			"refreshing oauth token")
	}
	c.token = fresh
	return c.persistLocked()
}

// Token implements oauth2.TokenSource with the expiry-guarded refresh.
func (c *Credentials) Token() (*oauth2.Token, error) {
	if err := c.Refresh(context.Background()); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, nil
}

func (c *Credentials) persistLocked() error {
	raw, err := json.Marshal(c.token)
	if err != nil {
		return apperrors.Wrap(err, "GMAIL_CREDENTIALS", 500, "encoding oauth token")
	}
	if err := os.WriteFile(c.tokenPath, raw, 0o600); err != nil {
		return apperrors.Wrap(err, "GMAIL_CREDENTIALS", 500, "persisting oauth token")
	}
	return nil
}
