package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alextreichler/shopkeeper/internal/models"
	"github.com/alextreichler/shopkeeper/internal/store"
	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
)

// OrderAdminHandler lists every order and updates statuses.
type OrderAdminHandler struct {
	Store        *store.Store
	SessionStore *sessions.CookieStore
	Templates    *TemplateCache
}

func (h *OrderAdminHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Store.ListAllOrders(r.Context())
	if err != nil {
		http.Error(w, "Error fetching orders", http.StatusInternalServerError)
		return
	}

	tmpl := h.Templates.Get("orders.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	session, _ := h.SessionStore.Get(r, sessionName)
	data := map[string]interface{}{
		"Orders":    orders,
		"Statuses":  []string{models.StatusPending, models.StatusConfirmed, models.StatusShipped, models.StatusCancelled},
		"Flashes":   GetFlash(session),
		"CsrfField": csrf.TemplateField(r),
	}
	session.Save(r, w)
	tmpl.Execute(w, data)
}

func (h *OrderAdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var form OrderStatusForm
	if err := decodeForm(r, &form); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	id, err := strconv.Atoi(form.OrderID)
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}

	// Statuses outside the closed set are rejected rather than written
	// through as free text.
	if !models.ValidOrderStatuses[form.Status] {
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}

	err = h.Store.Tx(r.Context(), func(tx *sql.Tx) error {
		return h.Store.SetOrderStatus(r.Context(), tx, id, form.Status)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to update order status", "error", err, "order_id", id)
		http.Error(w, "Error updating status", http.StatusInternalServerError)
		return
	}

	session, _ := h.SessionStore.Get(r, sessionName)
	session.AddFlash(FlashMessage{Type: "success", Message: "Order updated!"})
	session.Save(r, w)
	http.Redirect(w, r, "/orders", http.StatusSeeOther)
}
