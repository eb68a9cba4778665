package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/digkill/QuitCoachAPI/internal/models"
	"github.com/digkill/QuitCoachAPI/internal/service"
)

const tokenLeeway = 30 * time.Second

// Claims are the principal fields carried by an access token. The subject is
// the numeric user id.
type Claims struct {
	Role  models.Role `json:"role"`
	Email string      `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type ctxKey int

const actorKey ctxKey = iota

// WithActor stores the authenticated caller in a context.
func WithActor(ctx context.Context, actor service.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the authenticated caller from a context.
func ActorFromContext(ctx context.Context) (service.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(service.Actor)
	return actor, ok
}

// Verifier checks HS256 access tokens.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must be set")
	}
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
			jwt.WithLeeway(tokenLeeway),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Verify parses a token and returns the caller it names.
func (v *Verifier) Verify(tokenString string) (*Claims, int64, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, 0, err
	}
	if !token.Valid {
		return nil, 0, errors.New("invalid token")
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, 0, fmt.Errorf("token subject %q is not a user id", claims.Subject)
	}
	return claims, id, nil
}

// IssueToken signs an HS256 token for userID. Used by quitctl and tests; the
// production identity provider issues its own tokens with the same claims.
func IssueToken(secret string, userID int64, role models.Role, email string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret must be set")
	}
	now := time.Now()
	claims := Claims{
		Role:  role,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// authMiddleware enforces bearer auth, upserts the user from the verified
// claims and puts the Actor into the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractBearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "missing or malformed authorization header")
			return
		}
		claims, userID, err := s.verifier.Verify(token)
		if err != nil {
			s.log.Debug("auth failure", "err", err, "path", r.URL.Path)
			writeMessage(w, http.StatusUnauthorized, "invalid token")
			return
		}
		user, _, err := s.users.Ensure(r.Context(), userID, claims.Email, claims.Role)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		ctx := WithActor(r.Context(), service.Actor{UserID: user.ID, Role: user.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok || !actor.IsAdmin() {
			writeMessage(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
