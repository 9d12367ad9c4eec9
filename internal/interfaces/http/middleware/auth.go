// Package middleware holds the HTTP middleware of the notes API.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	gotrue "github.com/supabase-community/gotrue-go"
	"go.uber.org/zap"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
	"github.com/DaX-523/notes-ai-1811/internal/interfaces/http/response"
)

// SupabaseAudience is the audience Supabase puts in user access tokens.
const SupabaseAudience = "authenticated"

// TokenVerifier turns a bearer token into the user it was issued to.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (note.User, error)
}

type contextKey struct{ name string }

var userKey = contextKey{"user"}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, u note.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the user set by Authenticator.
func UserFromContext(ctx context.Context) (note.User, bool) {
	u, ok := ctx.Value(userKey).(note.User)
	return u, ok && u.ID != ""
}

// Authenticator rejects requests without a valid bearer token.
func Authenticator(verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				response.Error(w, logger, apperrors.Permission(apperrors.CodeNoSession, "authentication required").Build())
				return
			}
			user, err := verifier.Verify(r.Context(), token)
			if err != nil {
				response.Error(w, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Claims are the parts of a Supabase access token the API reads.
type Claims struct {
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// JWTVerifier checks HS256 tokens signed with the project's JWT secret
// without a network round trip.
type JWTVerifier struct {
	secret   []byte
	audience string
}

func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTVerifier{secret: []byte(secret), audience: SupabaseAudience}, nil
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (note.User, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		message := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			message = "token has expired"
		}
		return note.User{}, invalidToken(message, err)
	}
	if claims.Subject == "" {
		return note.User{}, invalidToken("token has no subject", nil)
	}

	user := note.User{ID: claims.Subject, Email: claims.Email}
	if name, ok := claims.UserMetadata["name"].(string); ok {
		user.Name = name
	}
	return user, nil
}

// SupabaseVerifier asks Supabase Auth who the token belongs to. Used when
// no JWT secret is configured.
type SupabaseVerifier struct {
	client gotrue.Client
}

func NewSupabaseVerifier(client gotrue.Client) *SupabaseVerifier {
	return &SupabaseVerifier{client: client}
}

func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (note.User, error) {
	type result struct {
		user note.User
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := v.client.WithToken(token).GetUser()
		if err != nil {
			done <- result{err: err}
			return
		}
		user := note.User{ID: resp.User.ID.String(), Email: resp.User.Email}
		if name, ok := resp.User.UserMetadata["name"].(string); ok {
			user.Name = name
		}
		done <- result{user: user}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return note.User{}, invalidToken("invalid token", res.err)
		}
		return res.user, nil
	case <-ctx.Done():
		return note.User{}, apperrors.FromContext(ctx.Err(), "VerifyToken")
	}
}

func invalidToken(message string, cause error) error {
	b := apperrors.Permission(apperrors.CodeInvalidToken, message).WithOperation("VerifyToken")
	if cause != nil {
		b = b.WithDetails(fmt.Sprint(cause)).WithCause(cause)
	}
	return b.Build()
}

var (
	_ TokenVerifier = (*JWTVerifier)(nil)
	_ TokenVerifier = (*SupabaseVerifier)(nil)
)
