package events

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"
)

const (
	UserRegistered         = "user_registered"
	UserLoggedIn           = "user_logged_in"
	LoginFailed            = "login_failed"
	UserLoggedOut          = "user_logged_out"
	TokenRefreshed         = "token_refreshed"
	RefreshReuseDetected   = "refresh_reuse_detected"
	ProfileUpdated         = "profile_updated"
	PasswordResetRequested = "password_reset_requested"
	PasswordReset          = "password_reset"
	RoleAssigned           = "role_assigned"
)

type Event struct {
	ID     string            `json:"id"`
	Type   string            `json:"type"`
	UserID string            `json:"user_id,omitempty"`
	Email  string            `json:"email,omitempty"`
	At     time.Time         `json:"at"`
	Meta   map[string]string `json:"meta,omitempty"`

	// ResetToken is only set on PasswordResetRequested, for the mail consumer.
	ResetToken string `json:"reset_token,omitempty"`
}

func New(typ, userID, email string) Event {
	return Event{
		ID:     uuid.NewString(),
		Type:   typ,
		UserID: userID,
		Email:  email,
		At:     time.Now().UTC(),
	}
}

func (e Event) With(key, value string) Event {
	m := make(map[string]string, len(e.Meta)+1)
	maps.Copy(m, e.Meta)
	m[key] = value
	e.Meta = m
	return e
}

// Redacted drops secrets before the event leaves the delivery channel.
func (e Event) Redacted() Event {
	e.ResetToken = ""
	if e.Meta != nil {
		e.Meta = maps.Clone(e.Meta)
	}
	return e
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Fanout delivers to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
