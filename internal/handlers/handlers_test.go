package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alextreichler/shopkeeper/internal/models"
	"github.com/alextreichler/shopkeeper/internal/store"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "secret123"

type testEnv struct {
	store      *store.Store
	sessions   *sessions.CookieStore
	handler    http.Handler
	profileDir string
	shopDir    string
}

// newTestEnv wires the same routes as cmd/server, minus CSRF and rate
// limiting, over a per-test in-memory database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	st, err := store.NewStore(dsn)
	require.NoError(t, err)
	require.NoError(t, st.InitSchema())
	t.Cleanup(func() { st.DB.Close() })

	sessionStore := sessions.NewCookieStore([]byte("test-session-key-0123456789abcdef"))

	templates := NewTemplateCache()
	require.NoError(t, templates.Load("../../templates"))

	profileDir := t.TempDir()
	shopDir := t.TempDir()

	gate := &Gate{Store: st, SessionStore: sessionStore}
	homeHandler := &HomeHandler{Store: st, Templates: templates, SessionStore: sessionStore}
	authHandler := &AuthHandler{Store: st, SessionStore: sessionStore, Templates: templates, Gate: gate}
	accountHandler := &AccountHandler{Store: st, SessionStore: sessionStore, Templates: templates, ProfileImageDir: profileDir}
	cartHandler := &CartHandler{Store: st, SessionStore: sessionStore, Templates: templates}
	shopHandler := &ShopHandler{Store: st, SessionStore: sessionStore, Templates: templates, ShopImageDir: shopDir}
	orderAdminHandler := &OrderAdminHandler{Store: st, SessionStore: sessionStore, Templates: templates}

	mux := http.NewServeMux()
	mux.HandleFunc("/", homeHandler.Index)
	mux.HandleFunc("/login", gate.RequireAnonymous(authHandler.LoginGet))
	mux.HandleFunc("POST /login", gate.RequireAnonymous(authHandler.LoginPost))
	mux.HandleFunc("/logout", authHandler.Logout)
	mux.HandleFunc("/register", gate.RequireAnonymous(authHandler.RegisterGet))
	mux.HandleFunc("POST /register", gate.RequireAnonymous(authHandler.RegisterPost))
	mux.HandleFunc("/account", gate.RequireCustomer(accountHandler.Show))
	mux.HandleFunc("POST /account", gate.RequireCustomer(accountHandler.Update))
	mux.HandleFunc("/cart", gate.RequireCustomer(cartHandler.Show))
	mux.HandleFunc("POST /cart", gate.RequireCustomer(cartHandler.PlaceOrder))
	mux.HandleFunc("/shopmanagement", gate.RequireAdmin(shopHandler.Show))
	mux.HandleFunc("POST /shopmanagement", gate.RequireAdmin(shopHandler.Submit))
	mux.HandleFunc("/orders", gate.RequireAdmin(orderAdminHandler.List))
	mux.HandleFunc("POST /orders", gate.RequireAdmin(orderAdminHandler.UpdateStatus))

	return &testEnv{
		store:      st,
		sessions:   sessionStore,
		handler:    gate.Resolve(mux),
		profileDir: profileDir,
		shopDir:    shopDir,
	}
}

func (e *testEnv) seedUser(t *testing.T, username, email string, admin bool) *models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Username: username, Email: email, Password: string(hashed), IsAdmin: admin}
	ctx := context.Background()
	err = e.store.Tx(ctx, func(tx *sql.Tx) error {
		return e.store.CreateUser(ctx, tx, u)
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) seedItem(t *testing.T, name string, price float64) *models.Item {
	t.Helper()
	item := &models.Item{Name: name, ImageFile: "seed.jpg", Price: price}
	ctx := context.Background()
	err := e.store.Tx(ctx, func(tx *sql.Tx) error {
		return e.store.CreateItem(ctx, tx, item)
	})
	require.NoError(t, err)
	return item
}

func (e *testEnv) seedOrder(t *testing.T, userID, itemID int) *models.Order {
	t.Helper()
	var order *models.Order
	ctx := context.Background()
	err := e.store.Tx(ctx, func(tx *sql.Tx) error {
		var err error
		order, err = e.store.CreateOrder(ctx, tx, userID, itemID)
		return err
	})
	require.NoError(t, err)
	return order
}

// sessionCookie builds the cookie a logged-in user would carry.
func (e *testEnv) sessionCookie(t *testing.T, userID int) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	sess, _ := e.sessions.Get(req, sessionName)
	sess.Values["user_id"] = userID
	require.NoError(t, sess.Save(req, rec))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func (e *testEnv) get(t *testing.T, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// postMultipart sends fields plus an optional file part.
func (e *testEnv) postMultipart(t *testing.T, path string, fields map[string]string, fileField, fileName string, fileContent []byte, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		part, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = io.Copy(part, bytes.NewReader(fileContent))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func requireRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code, "body: %s", rec.Body.String())
	require.Equal(t, location, rec.Header().Get("Location"))
}
