package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alextreichler/shopkeeper/internal/models"
	"github.com/alextreichler/shopkeeper/internal/store"
	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler serves login, logout and registration.
type AuthHandler struct {
	Store        *store.Store
	SessionStore *sessions.CookieStore
	Templates    *TemplateCache
	Gate         *Gate
}

func (h *AuthHandler) LoginGet(w http.ResponseWriter, r *http.Request) {
	tmpl := h.Templates.Get("login.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	session, _ := h.SessionStore.Get(r, sessionName)
	data := map[string]interface{}{
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
		"Errors":    map[string]string{},
		"Email":     "",
		"Next":      safeNext(r.URL.Query().Get("next")),
	}
	session.Save(r, w)
	tmpl.Execute(w, data)
}

func (h *AuthHandler) LoginPost(w http.ResponseWriter, r *http.Request) {
	var form LoginForm
	if err := decodeForm(r, &form); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	if errs := form.Validate(); len(errs) > 0 {
		h.renderLoginError(w, r, &form, errs)
		return
	}

	user, err := h.Store.GetUserByEmail(r.Context(), form.Email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Error("Failed to look up user", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		h.renderLoginError(w, r, &form, map[string]string{"email": "Invalid email or password."})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(form.Password)); err != nil {
		h.renderLoginError(w, r, &form, map[string]string{"email": "Invalid email or password."})
		return
	}

	slog.Info("Login successful", "user_id", user.ID)
	h.Gate.SignIn(w, r, user, form.Next)
}

// renderLoginError re-renders the login form with field messages, keeping the
// deep-link destination intact.
func (h *AuthHandler) renderLoginError(w http.ResponseWriter, r *http.Request, form *LoginForm, errs map[string]string) {
	tmpl := h.Templates.Get("login.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	data := map[string]interface{}{
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   []FlashMessage(nil),
		"Errors":    errs,
		"Email":     form.Email,
		"Next":      safeNext(form.Next),
	}
	w.WriteHeader(http.StatusUnprocessableEntity)
	tmpl.Execute(w, data)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Gate.SignOut(w, r)
}

func (h *AuthHandler) RegisterGet(w http.ResponseWriter, r *http.Request) {
	tmpl := h.Templates.Get("register.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	session, _ := h.SessionStore.Get(r, sessionName)
	data := map[string]interface{}{
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
		"Errors":    map[string]string{},
		"Form":      &RegisterForm{},
	}
	session.Save(r, w)
	tmpl.Execute(w, data)
}

func (h *AuthHandler) RegisterPost(w http.ResponseWriter, r *http.Request) {
	var form RegisterForm
	if err := decodeForm(r, &form); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	errs := form.Validate()
	if len(errs) == 0 {
		hashed, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
		if err != nil {
			slog.Error("Failed to hash password", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		user := &models.User{
			Username: form.Username,
			Email:    form.Email,
			Password: string(hashed),
			Address:  form.Address,
			Phone:    form.Phone,
		}
		err = h.Store.Tx(r.Context(), func(tx *sql.Tx) error {
			return h.Store.CreateUser(r.Context(), tx, user)
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				errs["username"] = "Username or email is already taken."
			} else {
				slog.Error("Failed to create user", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
		}
	}

	if len(errs) > 0 {
		tmpl := h.Templates.Get("register.html")
		if tmpl == nil {
			http.Error(w, "Template not found", http.StatusInternalServerError)
			return
		}
		data := map[string]interface{}{
			"CsrfField": csrf.TemplateField(r),
			"Flashes":   []FlashMessage(nil),
			"Errors":    errs,
			"Form":      &form,
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		tmpl.Execute(w, data)
		return
	}

	session, _ := h.SessionStore.Get(r, sessionName)
	session.AddFlash(FlashMessage{Type: "success", Message: "Account created. You can log in now."})
	session.Save(r, w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
