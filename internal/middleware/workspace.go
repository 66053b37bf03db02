package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	chatservice "github.com/sadat-shakeeb/gemini-partner/backend/internal/service/chat"
)

// WorkspaceCookie names the cookie that ties a browser session to its chats.
// It carries no Expires, so the browser drops it when the session ends.
const WorkspaceCookie = "gp_workspace"

type workspaceKey struct{}

// Workspace makes sure every request carries a workspace id, minting one when
// the cookie is missing or malformed.
func Workspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if cookie, err := r.Cookie(WorkspaceCookie); err == nil {
			if parsed, err := uuid.Parse(cookie.Value); err == nil {
				id = parsed.String()
			}
		}

		if id == "" {
			id = chatservice.NewWorkspaceID()
			http.SetCookie(w, &http.Cookie{
				Name:     WorkspaceCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(WithWorkspaceID(r.Context(), id)))
	})
}

// WithWorkspaceID stores id in ctx.
func WithWorkspaceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, workspaceKey{}, id)
}

// WorkspaceID returns the workspace id stored by the Workspace middleware.
func WorkspaceID(ctx context.Context) string {
	id, _ := ctx.Value(workspaceKey{}).(string)
	return id
}
