package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/alextreichler/shopkeeper/internal/config"
	"github.com/alextreichler/shopkeeper/internal/images"
	"github.com/alextreichler/shopkeeper/internal/models"
	"github.com/alextreichler/shopkeeper/internal/store"
	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
)

// ShopHandler is the admin catalog management: list, create, delete.
type ShopHandler struct {
	Store        *store.Store
	SessionStore *sessions.CookieStore
	Templates    *TemplateCache
	ShopImageDir string
}

func (h *ShopHandler) Show(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, nil, nil, http.StatusOK)
}

// Submit dispatches the management page's two forms explicitly on which
// field is present: deletedItemID deletes, the item fields create.
func (h *ShopHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil { // 10MB
		http.Error(w, "File too large. Max 10MB.", http.StatusRequestEntityTooLarge)
		return
	}

	if r.FormValue("deletedItemID") != "" {
		h.deleteItem(w, r)
		return
	}
	h.createItem(w, r)
}

func (h *ShopHandler) createItem(w http.ResponseWriter, r *http.Request) {
	var form NewItemForm
	if err := formDecoder.Decode(&form, r.PostForm); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	errs := form.Validate()

	file, header, fileErr := r.FormFile("itemImage")
	if fileErr != nil {
		errs["itemImage"] = "Image file is required."
	} else {
		defer file.Close()
	}

	imageFile := ""
	if len(errs) == 0 {
		filename, err := images.Ingest(file, header.Filename, h.ShopImageDir, config.ShopImageMax, config.ShopImageMax)
		if err != nil {
			if errors.Is(err, images.ErrUnsupportedFormat) {
				errs["itemImage"] = "Unsupported image format. Only PNG, JPG, JPEG, GIF are allowed."
			} else {
				slog.Error("Failed to store item image", "error", err)
				http.Error(w, "Failed to store image", http.StatusInternalServerError)
				return
			}
		} else {
			imageFile = filename
		}
	}

	if len(errs) > 0 {
		h.renderList(w, r, &form, errs, http.StatusUnprocessableEntity)
		return
	}

	item := &models.Item{
		Name:              form.Name,
		MainDescription:   form.MainDescription,
		PointsDescription: form.PointsDescription,
		ImageFile:         imageFile,
		Price:             form.Price,
	}
	err := h.Store.Tx(r.Context(), func(tx *sql.Tx) error {
		return h.Store.CreateItem(r.Context(), tx, item)
	})
	if err != nil {
		slog.Error("Failed to create item", "error", err)
		http.Error(w, "Error saving item to database", http.StatusInternalServerError)
		return
	}

	session, _ := h.SessionStore.Get(r, sessionName)
	session.AddFlash(FlashMessage{Type: "success", Message: "Item added successfully!"})
	session.Save(r, w)
	http.Redirect(w, r, "/shopmanagement", http.StatusSeeOther)
}

func (h *ShopHandler) deleteItem(w http.ResponseWriter, r *http.Request) {
	session, _ := h.SessionStore.Get(r, sessionName)

	id, err := strconv.Atoi(r.FormValue("deletedItemID"))
	if err != nil {
		http.Error(w, "Invalid item ID", http.StatusBadRequest)
		return
	}

	item, err := h.Store.GetItemByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Item not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Error fetching item", http.StatusInternalServerError)
		return
	}

	// Items with orders cannot be removed; the orders would dangle.
	count, err := h.Store.CountOrdersForItem(r.Context(), id)
	if err != nil {
		http.Error(w, "Error fetching orders", http.StatusInternalServerError)
		return
	}
	if count > 0 {
		session.AddFlash(FlashMessage{Type: "error", Message: fmt.Sprintf("Cannot delete %q: %d order(s) reference it.", item.Name, count)})
		session.Save(r, w)
		http.Redirect(w, r, "/shopmanagement", http.StatusSeeOther)
		return
	}

	// Row first, file second: a file-remove failure rolls the row delete back,
	// so the catalog never points at nothing. A file that is already missing
	// counts as removed.
	err = h.Store.Tx(r.Context(), func(tx *sql.Tx) error {
		if err := h.Store.DeleteItem(r.Context(), tx, id); err != nil {
			return err
		}
		path := filepath.Join(h.ShopImageDir, item.ImageFile)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove item image: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrItemInUse) {
			// An order slipped in between the count check and the delete.
			session.AddFlash(FlashMessage{Type: "error", Message: fmt.Sprintf("Cannot delete %q: orders reference it.", item.Name)})
			session.Save(r, w)
			http.Redirect(w, r, "/shopmanagement", http.StatusSeeOther)
			return
		}
		slog.Error("Failed to delete item", "error", err, "item_id", id)
		http.Error(w, "Error deleting item", http.StatusInternalServerError)
		return
	}

	session.AddFlash(FlashMessage{Type: "success", Message: "Item deleted successfully!"})
	session.Save(r, w)
	http.Redirect(w, r, "/shopmanagement", http.StatusSeeOther)
}

func (h *ShopHandler) renderList(w http.ResponseWriter, r *http.Request, form *NewItemForm, errs map[string]string, status int) {
	if form == nil {
		form = &NewItemForm{}
	}
	if errs == nil {
		errs = map[string]string{}
	}
	items, err := h.Store.ListItems(r.Context())
	if err != nil {
		http.Error(w, "Error fetching items", http.StatusInternalServerError)
		return
	}

	stats, err := h.Store.GetShopStats(r.Context())
	if err != nil {
		http.Error(w, "Error fetching stats", http.StatusInternalServerError)
		return
	}

	tmpl := h.Templates.Get("shopmanagement.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	session, _ := h.SessionStore.Get(r, sessionName)
	data := map[string]interface{}{
		"Items":     items,
		"Stats":     stats,
		"Flashes":   GetFlash(session),
		"CsrfField": csrf.TemplateField(r),
		"Form":      form,
		"Errors":    errs,
	}
	session.Save(r, w)
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	tmpl.Execute(w, data)
}
