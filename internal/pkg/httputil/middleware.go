package httputil

import (
	"context"
	"net/http"

	"github.com/bissquit/timesheet/internal/domain"
	"github.com/bissquit/timesheet/internal/pkg/ctxlog"
)

// CORSMiddleware creates CORS middleware that handles preflight requests
// and adds appropriate CORS headers to responses.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	originsSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if originsSet[origin] || originsSet["*"] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID, X-User-Role")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type contextKey string

const actorKey contextKey = "actor"

// ActorResolver extracts the acting user from a request.
// It returns ok=false when the request carries no identity and an error
// when the identity it carries is malformed.
type ActorResolver interface {
	ResolveActor(r *http.Request) (actor domain.Actor, ok bool, err error)
}

// ActorMiddleware stores the resolved actor in the request context.
// Anonymous requests pass through; malformed identities are rejected.
func ActorMiddleware(resolver ActorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok, err := resolver.ResolveActor(r)
			if err != nil {
				Error(w, http.StatusUnauthorized, err.Error())
				return
			}
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := ctxlog.With(WithActor(r.Context(), actor), "actor_id", actor.ID, "actor_role", actor.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActor rejects requests without an actor.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetActor(r.Context()); !ok {
			Error(w, http.StatusUnauthorized, "actor identity required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithActor returns a context carrying actor.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor extracts the actor from context.
func GetActor(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	return actor, ok
}
