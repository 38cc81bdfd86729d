package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	apierrors "wexport/internal/errors"
)

// CapabilityManageStore is required for every export and template operation
const CapabilityManageStore = "manage_woocommerce"

var (
	// ErrUnauthenticated is returned when no valid credential is presented
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when the principal lacks the required capability
	ErrForbidden = errors.New("forbidden")
)

// Principal is the authenticated caller
type Principal struct {
	UserID       int64    `json:"user_id"`
	Capabilities []string `json:"capabilities"`
}

// Can reports whether the principal holds capability
func (p *Principal) Can(capability string) bool {
	return p != nil && slices.Contains(p.Capabilities, capability)
}

// Authorizer resolves a bearer credential into a principal
type Authorizer interface {
	Authorize(ctx context.Context, token string) (*Principal, error)
}

// TokenAuthorizer authorizes static tokens, each mapped to one owner id
type TokenAuthorizer struct {
	tokens map[string]int64
}

// NewTokenAuthorizer creates an authorizer over token -> user id pairs.
// Every configured token carries the store management capability.
func NewTokenAuthorizer(tokens map[string]int64) *TokenAuthorizer {
	copied := make(map[string]int64, len(tokens))
	for k, v := range tokens {
		copied[k] = v
	}
	return &TokenAuthorizer{tokens: copied}
}

// Authorize implements Authorizer
func (a *TokenAuthorizer) Authorize(ctx context.Context, token string) (*Principal, error) {
	userID, ok := a.tokens[token]
	if !ok || token == "" {
		return nil, ErrUnauthenticated
	}
	return &Principal{UserID: userID, Capabilities: []string{CapabilityManageStore}}, nil
}

type principalKey struct{}

// WithPrincipal stores the principal in ctx
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the authenticated principal, if any
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// RequireCapability authenticates the bearer token and checks capability
// before the request reaches any handler.
func RequireCapability(authorizer Authorizer, capability string, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) func(next http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "auth"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "missing or malformed authorization header",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				errorHandler.HandleError(w, r, apierrors.ErrUnauthorized)
				return
			}

			principal, err := authorizer.Authorize(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "authentication failed",
					slog.String("error", err.Error()),
					slog.String("path", r.URL.Path),
				)
				if errors.Is(err, ErrForbidden) {
					errorHandler.HandleError(w, r, apierrors.ErrForbidden)
					return
				}
				errorHandler.HandleError(w, r, apierrors.ErrUnauthorized)
				return
			}

			if !principal.Can(capability) {
				logger.WarnContext(ctx, "capability check failed",
					slog.Int64("user_id", principal.UserID),
					slog.String("capability", capability),
				)
				errorHandler.HandleError(w, r, apierrors.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>"
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
