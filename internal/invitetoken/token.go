// Package invitetoken issues and verifies the signed join tokens that
// accompany session invitations.
package invitetoken

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"telesession/internal/participant"
	dErrors "telesession/pkg/domain-errors"
	"telesession/pkg/requestcontext"
)

const defaultTokenTTL = 24 * time.Hour

// Claims bind a join token to one invitation of one session.
type Claims struct {
	SessionID    string `json:"session_id"`
	InvitationID string `json:"invitation_id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	jwt.RegisteredClaims
}

// Service signs and verifies invitation join tokens.
type Service struct {
	signingKey []byte
	issuer     string
	tokenTTL   time.Duration
}

// NewService builds a token service. A non-positive tokenTTL falls back to
// 24 hours; the invitation's own expiry still caps every token.
func NewService(signingKey string, issuer string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		tokenTTL:   tokenTTL,
	}
}

// Issue signs a join token for the invitation. The token never outlives the
// invitation it grants access to.
func (s *Service) Issue(ctx context.Context, sessionID string, inv participant.Invitation) (string, error) {
	now := requestcontext.Now(ctx)
	expiresAt := now.Add(s.tokenTTL)
	if !inv.ExpiresAt.IsZero() && inv.ExpiresAt.Before(expiresAt) {
		expiresAt = inv.ExpiresAt
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SessionID:    sessionID,
		InvitationID: inv.ID,
		Email:        inv.Email,
		Role:         string(inv.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign join token")
	}
	return signed, nil
}

// Verify parses and validates a join token, returning its claims.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeInvitationExpired, "join token has expired")
		}
		return nil, dErrors.New(dErrors.CodeInvitationTokenInvalid, "invalid join token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeInvitationTokenInvalid, "invalid join token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvitationTokenInvalid, "invalid join token claims")
	}
	return claims, nil
}
