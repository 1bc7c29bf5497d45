package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/sellerdesk/approvals/internal/auth/actortoken"
	apperrors "github.com/sellerdesk/approvals/internal/errors"
	"github.com/sellerdesk/approvals/internal/platform/requestctx"
	"github.com/sellerdesk/approvals/internal/workflow/domain"
)

// requireActor verifies the bearer token and stores the actor on the request
// context. Requests without a valid token never reach the handler.
func (s *Server) requireActor(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, r, apperrors.New(apperrors.CodeUnauthenticated, "missing bearer token"))
			return
		}
		actor, err := actortoken.Verify(token, s.tokens)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r.WithContext(requestctx.WithActor(r.Context(), actor)))
	}
}

// actorFromContext returns the verified actor stored by requireActor.
func actorFromContext(ctx context.Context) (domain.Actor, bool) {
	return requestctx.ActorFromContext(ctx)
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
