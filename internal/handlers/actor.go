package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/alextreichler/shopkeeper/internal/models"
	"github.com/alextreichler/shopkeeper/internal/store"
	"github.com/gorilla/sessions"
)

const sessionName = "session"

// Role is the closed set of actor states. Every protected handler is wrapped
// by exactly one of the Require* gates below, so the authorization matrix
// lives in one place instead of ad-hoc admin-flag checks.
type Role int

const (
	RoleAnonymous Role = iota
	RoleCustomer
	RoleAdmin
)

// Actor is the identity context of one request, resolved once by the gate
// and threaded through the request context. Handlers never consult session
// state directly.
type Actor struct {
	Role Role
	User *models.User
}

type ctxKey string

const actorCtxKey = ctxKey("actor")

func withActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey, a)
}

// ActorFromContext returns the actor resolved for this request. Requests that
// did not pass through the gate middleware count as anonymous.
func ActorFromContext(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorCtxKey).(Actor); ok {
		return a
	}
	return Actor{Role: RoleAnonymous}
}

// Gate resolves the current actor from the session and enforces the
// role requirements of each route.
type Gate struct {
	Store        *store.Store
	SessionStore *sessions.CookieStore
}

// Resolve establishes the actor for the request: the session's user id is
// verified against the store, so a stale session for a deleted user degrades
// to anonymous instead of a broken half-identity.
func (g *Gate) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := Actor{Role: RoleAnonymous}
		session, _ := g.SessionStore.Get(r, sessionName)
		if id, ok := session.Values["user_id"].(int); ok {
			user, err := g.Store.GetUserByID(r.Context(), id)
			if err == nil {
				if user.IsAdmin {
					actor = Actor{Role: RoleAdmin, User: user}
				} else {
					actor = Actor{Role: RoleCustomer, User: user}
				}
			} else {
				slog.Debug("Session refers to unknown user, treating as anonymous", "user_id", id, "error", err)
			}
		}
		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
	})
}

// RequireCustomer allows authenticated non-admin actors only. Anonymous
// actors are sent to login with the requested destination preserved; admins
// are silently redirected away.
func (g *Gate) RequireCustomer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch ActorFromContext(r.Context()).Role {
		case RoleCustomer:
			next(w, r)
		case RoleAdmin:
			http.Redirect(w, r, "/", http.StatusSeeOther)
		default:
			g.redirectToLogin(w, r)
		}
	}
}

// RequireAdmin allows admin actors only.
func (g *Gate) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch ActorFromContext(r.Context()).Role {
		case RoleAdmin:
			next(w, r)
		case RoleCustomer:
			http.Redirect(w, r, "/", http.StatusSeeOther)
		default:
			g.redirectToLogin(w, r)
		}
	}
}

// RequireAnonymous guards login and registration: already-authenticated
// actors are sent home.
func (g *Gate) RequireAnonymous(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ActorFromContext(r.Context()).Role != RoleAnonymous {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

func (g *Gate) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	session, _ := g.SessionStore.Get(r, sessionName)
	session.AddFlash(FlashMessage{Type: "error", Message: "You must be logged in to access this page."})
	session.Save(r, w)
	http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
}

// SignIn binds the session to the user and returns to the deep-linked
// destination, if a safe one was carried through the login form.
func (g *Gate) SignIn(w http.ResponseWriter, r *http.Request, user *models.User, next string) {
	session, _ := g.SessionStore.Get(r, sessionName)
	session.Values["user_id"] = user.ID
	session.Options.Path = "/"
	session.AddFlash(FlashMessage{Type: "success", Message: "Welcome, " + user.Username + "!"})
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

// SignOut clears the session.
func (g *Gate) SignOut(w http.ResponseWriter, r *http.Request) {
	session, _ := g.SessionStore.Get(r, sessionName)
	delete(session.Values, "user_id")
	session.Options.MaxAge = -1 // Expire immediately
	session.Save(r, w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// safeNext accepts local paths only, so the login redirect cannot be abused
// to bounce users to another site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}
