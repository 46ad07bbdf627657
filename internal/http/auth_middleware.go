package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type authContextKey string

type authInfo struct {
	UID   string
	Email string
}

const contextKeyAuth authContextKey = "spendwise-auth-info"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth ensures the request carries a valid, unrevoked bearer token
// before invoking the handler.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, _, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// ensureAuth validates the Authorization header, checks the revocation marker
// and enriches the context with the authenticated subject. The marker is read
// from the identity service on every request; caching it would reopen the
// revocation window.
func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request) (context.Context, authInfo, bool) {
	token, err := bearerToken(req.Header.Get("Authorization"))
	if err != nil {
		r.logger.Warn("authorization header invalid", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "No token provided")
		return req.Context(), authInfo{}, false
	}
	claims, err := r.identity.Verify(token)
	if err != nil {
		r.logger.Warn("token validation failed", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return req.Context(), authInfo{}, false
	}
	marker, err := r.identity.RevocationMarker(req.Context(), claims.UID)
	if err != nil {
		r.logger.Warn("revocation marker lookup failed", "error", err, "user_uid", claims.UID)
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return req.Context(), authInfo{}, false
	}
	if claims.IssuedAt.Before(marker) {
		r.logger.Warn("revoked token rejected", "user_uid", claims.UID, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "Token has been revoked. Please log in again.")
		return req.Context(), authInfo{}, false
	}
	info := authInfo{UID: claims.UID, Email: claims.Email}
	ctx := context.WithValue(req.Context(), contextKeyAuth, info)
	return ctx, info, true
}

// authInfoFromContext extracts auth metadata from context.
func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	value := ctx.Value(contextKeyAuth)
	if value == nil {
		return authInfo{}, false
	}
	info, ok := value.(authInfo)
	return info, ok
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
