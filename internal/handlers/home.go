package handlers

import (
	"net/http"

	"github.com/alextreichler/shopkeeper/internal/store"
	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
)

type HomeHandler struct {
	Store        *store.Store
	Templates    *TemplateCache
	SessionStore *sessions.CookieStore
}

// Index lists the catalog for anonymous visitors and customers. Admins manage
// the shop instead of browsing it, so they land on the management page.
func (h *HomeHandler) Index(w http.ResponseWriter, r *http.Request) {
	actor := ActorFromContext(r.Context())
	if actor.Role == RoleAdmin {
		http.Redirect(w, r, "/shopmanagement", http.StatusSeeOther)
		return
	}

	items, err := h.Store.ListItems(r.Context())
	if err != nil {
		http.Error(w, "Error fetching items", http.StatusInternalServerError)
		return
	}

	tmpl := h.Templates.Get("home.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	session, _ := h.SessionStore.Get(r, sessionName)
	data := map[string]interface{}{
		"Items":      items,
		"Actor":      actor,
		"LoggedIn":   actor.Role != RoleAnonymous,
		"Flashes":    GetFlash(session),
		"CsrfField":  csrf.TemplateField(r),
	}
	session.Save(r, w)
	tmpl.Execute(w, data)
}
