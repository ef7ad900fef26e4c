package httpapi

import (
	"net/http"
	"strings"

	"github.com/chunksync/chunksync/internal/server/auth"
)

// authMiddleware requires a valid "Authorization: Bearer <token>" header on
// every API route.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeJSON(w, http.StatusUnauthorized, errorResponseDTO{Error: "missing bearer token"})
			return
		}

		if _, err := auth.GetSubjectFromToken(token, s.secretKey); err != nil {
			s.writeJSON(w, http.StatusUnauthorized, errorResponseDTO{Error: "invalid token"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
