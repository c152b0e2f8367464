package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/fitvibe/pkg/httputil"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "fitvibe_session"

// Viewer is the authenticated user behind a request.
type Viewer struct {
	UserID string
	Name   string
	Avatar string
	Role   string
}

// IsAdmin reports whether the viewer has the admin role.
func (v Viewer) IsAdmin() bool {
	return v.Role == "admin"
}

// SessionClaims is the JWT payload of a session token.
type SessionClaims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// SessionCodec signs and verifies HS256 session tokens.
type SessionCodec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewSessionCodec creates a codec for the given shared secret.
func NewSessionCodec(secret, issuer string) *SessionCodec {
	return &SessionCodec{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Sign mints a token for v valid for ttl.
func (c *SessionCodec) Sign(v Viewer, ttl time.Duration) (string, error) {
	now := c.now()
	role := v.Role
	if role == "" {
		role = "user"
	}
	claims := SessionClaims{
		UserID: v.UserID,
		Name:   v.Name,
		Avatar: v.Avatar,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   v.UserID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

// Parse verifies a token and returns its viewer.
func (c *SessionCodec) Parse(tokenString string) (Viewer, error) {
	var claims SessionClaims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return Viewer{}, fmt.Errorf("parse session: %w", err)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return Viewer{}, errors.New("parse session: missing user_id")
	}
	return Viewer{UserID: userID, Name: claims.Name, Avatar: claims.Avatar, Role: claims.Role}, nil
}

// Cookie wraps a token in the session cookie.
func (c *SessionCodec) Cookie(token string, ttl time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  c.now().Add(ttl),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

type viewerKey struct{}

// WithViewer stores the viewer in context.
func WithViewer(ctx context.Context, v Viewer) context.Context {
	return context.WithValue(ctx, viewerKey{}, v)
}

// ViewerFromContext returns the viewer stored by Session.
func ViewerFromContext(ctx context.Context) (Viewer, bool) {
	v, ok := ctx.Value(viewerKey{}).(Viewer)
	return v, ok
}

// Session resolves the viewer from the session cookie, or from a Bearer
// token when no cookie is sent. Anonymous requests pass through; an invalid
// token is treated as anonymous.
func Session(codec *SessionCodec, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			v, err := codec.Parse(token)
			if err != nil {
				logger.DebugContext(r.Context(), "ignoring invalid session",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithViewer(r.Context(), v)))
		})
	}
}

func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// RequireSession rejects anonymous requests with 401.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ViewerFromContext(r.Context()); !ok {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{
				Message: "Please sign in to continue",
				Code:    "UNAUTHORIZED",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects viewers whose role is not one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, _ := ViewerFromContext(r.Context())
			if !slices.Contains(roles, v.Role) {
				httputil.WriteJSON(w, http.StatusForbidden, httputil.ErrorResponse{
					Message: "You are not allowed to do this",
					Code:    "FORBIDDEN",
				})
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
