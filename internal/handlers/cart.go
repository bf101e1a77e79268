package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alextreichler/shopkeeper/internal/store"
	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
)

// CartHandler shows a customer's orders and places new ones. One POST places
// one unit of one item; there is no quantity or merging of duplicates.
type CartHandler struct {
	Store        *store.Store
	SessionStore *sessions.CookieStore
	Templates    *TemplateCache
}

func (h *CartHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := ActorFromContext(r.Context()).User

	orders, err := h.Store.ListOrdersForUser(r.Context(), user.ID)
	if err != nil {
		http.Error(w, "Error fetching orders", http.StatusInternalServerError)
		return
	}

	tmpl := h.Templates.Get("cart.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	session, _ := h.SessionStore.Get(r, sessionName)
	data := map[string]interface{}{
		"Orders":    orders,
		"Flashes":   GetFlash(session),
		"CsrfField": csrf.TemplateField(r),
	}
	session.Save(r, w)
	tmpl.Execute(w, data)
}

func (h *CartHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	user := ActorFromContext(r.Context()).User

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	itemID, err := strconv.Atoi(r.FormValue("orderedItemID"))
	if err != nil {
		http.Error(w, "Invalid item ID", http.StatusBadRequest)
		return
	}

	err = h.Store.Tx(r.Context(), func(tx *sql.Tx) error {
		_, err := h.Store.CreateOrder(r.Context(), tx, user.ID, itemID)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Item not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to place order", "error", err, "user_id", user.ID, "item_id", itemID)
		http.Error(w, "Failed to place order", http.StatusInternalServerError)
		return
	}

	session, _ := h.SessionStore.Get(r, sessionName)
	session.AddFlash(FlashMessage{Type: "success", Message: "Order placed successfully!"})
	session.Save(r, w)
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}
