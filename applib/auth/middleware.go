package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

// RequireUser rejects requests without a valid token. The token is read from
// the Authorization header or, for calendar clients that cannot set headers,
// from the token query parameter.
func (i *Issuer) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			http.Error(w, "missing access token", http.StatusUnauthorized)
			return
		}
		claims, err := i.Parse(tokenString)
		if err != nil {
			log.WithError(err).WithField("path", r.URL.Path).Debug("Rejected access token")
			http.Error(w, "invalid access token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ClaimsKey, claims)))
	})
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// ClaimsFromContext returns the claims stored by RequireUser.
func ClaimsFromContext(ctx context.Context) (*JosekiUserClaims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*JosekiUserClaims)
	return claims, ok
}

// UserIDFromContext returns the authenticated user's ID.
func UserIDFromContext(ctx context.Context) (int, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return 0, errors.New("request is not authenticated")
	}
	return claims.UserID()
}
