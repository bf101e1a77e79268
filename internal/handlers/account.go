package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alextreichler/shopkeeper/internal/config"
	"github.com/alextreichler/shopkeeper/internal/images"
	"github.com/alextreichler/shopkeeper/internal/models"
	"github.com/alextreichler/shopkeeper/internal/store"
	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
)

// AccountHandler lets a customer view and update their own profile.
type AccountHandler struct {
	Store           *store.Store
	SessionStore    *sessions.CookieStore
	Templates       *TemplateCache
	ProfileImageDir string
}

func (h *AccountHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := ActorFromContext(r.Context()).User
	form := AccountForm{
		Username: user.Username,
		Email:    user.Email,
		Address:  user.Address,
		Phone:    user.Phone,
	}
	h.render(w, r, &form, user, nil, http.StatusOK)
}

// Update overwrites the profile fields with the submitted values. The picture
// is optional; when present it is ingested first and the previous file
// superseded only after the row update committed.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := ActorFromContext(r.Context()).User

	if err := r.ParseMultipartForm(10 << 20); err != nil { // 10MB
		http.Error(w, "File too large. Max 10MB.", http.StatusRequestEntityTooLarge)
		return
	}

	var form AccountForm
	if err := formDecoder.Decode(&form, r.PostForm); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	errs := form.Validate()

	// Re-check uniqueness against other rows before writing, so a concurrent
	// registration cannot slip a duplicate past the update.
	if len(errs) == 0 {
		taken, err := h.Store.UsernameOrEmailTaken(r.Context(), form.Username, form.Email, user.ID)
		if err != nil {
			slog.Error("Failed to check uniqueness", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if taken {
			errs["username"] = "Username or email is already taken."
		}
	}

	// Optional picture: ingest before the transaction so the row never points
	// at a file that failed to write.
	newImage := ""
	if len(errs) == 0 {
		file, header, fileErr := r.FormFile("picture")
		if fileErr == nil {
			defer file.Close()
			filename, err := images.Ingest(file, header.Filename, h.ProfileImageDir, config.ProfileImageMax, config.ProfileImageMax)
			if err != nil {
				if errors.Is(err, images.ErrUnsupportedFormat) {
					errs["picture"] = "Unsupported image format. Only PNG, JPG, JPEG, GIF are allowed."
				} else {
					slog.Error("Failed to store profile picture", "error", err)
					http.Error(w, "Failed to store picture", http.StatusInternalServerError)
					return
				}
			} else {
				newImage = filename
			}
		}
	}

	if len(errs) > 0 {
		h.render(w, r, &form, user, errs, http.StatusUnprocessableEntity)
		return
	}

	oldImage := user.ImageFile
	err := h.Store.Tx(r.Context(), func(tx *sql.Tx) error {
		if err := h.Store.UpdateUserProfile(r.Context(), tx, user.ID, form.Username, form.Email, form.Address, form.Phone); err != nil {
			return err
		}
		if newImage != "" {
			return h.Store.UpdateUserImage(r.Context(), tx, user.ID, newImage)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			errs["username"] = "Username or email is already taken."
			h.render(w, r, &form, user, errs, http.StatusUnprocessableEntity)
			return
		}
		slog.Error("Failed to update profile", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if newImage != "" {
		images.Supersede(oldImage, h.ProfileImageDir, models.DefaultProfileImage)
	}

	session, _ := h.SessionStore.Get(r, sessionName)
	session.AddFlash(FlashMessage{Type: "success", Message: "Account updated successfully!"})
	session.Save(r, w)
	http.Redirect(w, r, "/account", http.StatusSeeOther)
}

func (h *AccountHandler) render(w http.ResponseWriter, r *http.Request, form *AccountForm, user *models.User, errs map[string]string, status int) {
	if errs == nil {
		errs = map[string]string{}
	}
	tmpl := h.Templates.Get("account.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	session, _ := h.SessionStore.Get(r, sessionName)
	data := map[string]interface{}{
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
		"Form":      form,
		"Errors":    errs,
		"ImageFile": user.ImageFile,
	}
	session.Save(r, w)
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	tmpl.Execute(w, data)
}
