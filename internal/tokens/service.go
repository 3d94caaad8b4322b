package tokens

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrExpiredToken     = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrWrongTokenType   = errors.New("wrong token type")
	ErrRevoked          = errors.New("token revoked")
	ErrMalformedToken   = errors.New("malformed token")

	ErrEmptySubject = errors.New("token subject is empty")
)

// RevocationChecker reports whether a jti has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Service struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration
	now        func() time.Time

	revoked      RevocationChecker
	resetRevoked RevocationChecker
}

type Option func(*Service) error

func WithAccessTTL(d time.Duration) Option {
	return func(s *Service) error {
		if d <= 0 {
			return fmt.Errorf("access ttl must be positive")
		}
		s.accessTTL = d
		return nil
	}
}

func WithRefreshTTL(d time.Duration) Option {
	return func(s *Service) error {
		if d <= 0 {
			return fmt.Errorf("refresh ttl must be positive")
		}
		s.refreshTTL = d
		return nil
	}
}

func WithResetTTL(d time.Duration) Option {
	return func(s *Service) error {
		if d <= 0 {
			return fmt.Errorf("reset ttl must be positive")
		}
		s.resetTTL = d
		return nil
	}
}

func WithIssuer(iss string) Option {
	return func(s *Service) error {
		s.issuer = iss
		return nil
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) error {
		if now == nil {
			return fmt.Errorf("clock must not be nil")
		}
		s.now = now
		return nil
	}
}

// WithResetRevocations sets the store consulted for reset tokens. Without it reset
// tokens are checked against the main store.
func WithResetRevocations(r RevocationChecker) Option {
	return func(s *Service) error {
		s.resetRevoked = r
		return nil
	}
}

func New(secret []byte, revoked RevocationChecker, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, errors.New("signing secret is empty")
	}
	if revoked == nil {
		return nil, errors.New("revocation checker is nil")
	}
	s := &Service{
		secret:     slices.Clone(secret),
		accessTTL:  30 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
		resetTTL:   15 * time.Minute,
		now:        time.Now,
		revoked:    revoked,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.resetRevoked == nil {
		s.resetRevoked = s.revoked
	}
	return s, nil
}

func (s *Service) AccessTTL() time.Duration  { return s.accessTTL }
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }
func (s *Service) Now() time.Time            { return s.now() }

func (s *Service) sign(typ Type, subject, email string, perms []string, ttl time.Duration) (string, *Claims, error) {
	now := s.now().UTC()
	if perms == nil {
		perms = []string{}
	}
	claims := &Claims{
		Email:       email,
		Permissions: slices.Clone(perms),
		Type:        typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, claims, nil
}

// IssuePair mints an access and a refresh token carrying the same subject and permissions.
func (s *Service) IssuePair(id Identity) (*Pair, error) {
	if id.UserID == "" {
		return nil, ErrEmptySubject
	}
	access, ac, err := s.sign(Access, id.UserID, id.Email, id.Permissions, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, rc, err := s.sign(Refresh, id.UserID, id.Email, id.Permissions, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessJTI:        ac.ID,
		RefreshJTI:       rc.ID,
		AccessExpiresAt:  ac.ExpiresAt.Time,
		RefreshExpiresAt: rc.ExpiresAt.Time,
	}, nil
}

// IssueReset mints a password reset token. It carries no permissions.
func (s *Service) IssueReset(userID, email string) (string, time.Time, error) {
	tok, c, err := s.sign(Reset, userID, email, nil, s.resetTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, c.ExpiresAt.Time, nil
}

// Parse checks signature, expiry and type, without consulting the revocation store.
// On ErrExpiredToken the decoded claims are still returned, but only for the expected type.
func (s *Service) Parse(token string, expected Type) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			if claims.Type != expected {
				return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongTokenType, claims.Type, expected)
			}
			return &claims, fmt.Errorf("%w: %w", ErrExpiredToken, err)
		default:
			return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
		}
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing sub or jti", ErrMalformedToken)
	}
	if claims.Type != expected {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongTokenType, claims.Type, expected)
	}
	return &claims, nil
}

// Validate is Parse plus the revocation lookup for the token's namespace.
func (s *Service) Validate(ctx context.Context, token string, expected Type) (*Claims, error) {
	claims, err := s.Parse(token, expected)
	if err != nil {
		return nil, err
	}
	store := s.revoked
	if expected == Reset {
		store = s.resetRevoked
	}
	revoked, err := store.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrRevoked
	}
	return claims, nil
}
