package middleware

import (
	"net/http"
	"strings"
)

// TokenVerifier resolves a bearer token to an account id.
type TokenVerifier interface {
	VerifyToken(token string) (int64, error)
}

// NewAuthMiddleware requires "Authorization: Bearer <token>" and puts the account id in
// the request context.
func NewAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				WriteErrorResponse(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			accountID, err := verifier.VerifyToken(token)
			if err != nil {
				WriteErrorResponse(w, r, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithAccountID(r.Context(), accountID)))
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
