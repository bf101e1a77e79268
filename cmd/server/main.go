package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alextreichler/shopkeeper/internal/config"
	"github.com/alextreichler/shopkeeper/internal/handlers"
	"github.com/alextreichler/shopkeeper/internal/store"
	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
)

func main() {
	handlerOpts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	// TextHandler for console readability; for production JSONHandler might be preferred.
	logger := slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
	slog.SetDefault(logger)

	// 1. Load Configuration (.env first, then environment)
	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Init DB
	db, err := store.NewStore(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}

	// Run Migrations
	if err := db.Migrate(cfg.MigrationsDir); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Image upload directories must exist before the first ingest.
	for _, dir := range []string{cfg.ProfileImageDir, cfg.ShopImageDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("Failed to create image directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	// 3. Session Setup
	sessionStore := sessions.NewCookieStore(cfg.SessionKey)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.CookieSecure // Configurable for production
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Path = "/"
	if cfg.CookieDomain != "" {
		sessionStore.Options.Domain = cfg.CookieDomain
	}

	// 4. Init Templates
	templates := handlers.NewTemplateCache()
	if err := templates.Load(cfg.TemplatesDir); err != nil {
		slog.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}

	// 5. Setup Handlers
	gate := &handlers.Gate{Store: db, SessionStore: sessionStore}
	homeHandler := &handlers.HomeHandler{
		Store:        db,
		Templates:    templates,
		SessionStore: sessionStore,
	}
	authHandler := &handlers.AuthHandler{
		Store:        db,
		SessionStore: sessionStore,
		Templates:    templates,
		Gate:         gate,
	}
	accountHandler := &handlers.AccountHandler{
		Store:           db,
		SessionStore:    sessionStore,
		Templates:       templates,
		ProfileImageDir: cfg.ProfileImageDir,
	}
	cartHandler := &handlers.CartHandler{
		Store:        db,
		SessionStore: sessionStore,
		Templates:    templates,
	}
	shopHandler := &handlers.ShopHandler{
		Store:        db,
		SessionStore: sessionStore,
		Templates:    templates,
		ShopImageDir: cfg.ShopImageDir,
	}
	orderAdminHandler := &handlers.OrderAdminHandler{
		Store:        db,
		SessionStore: sessionStore,
		Templates:    templates,
	}

	mux := http.NewServeMux()

	// Static Files
	fileServer := http.FileServer(http.Dir("./static"))
	mux.Handle("/static/", http.StripPrefix("/static", fileServer))

	// Rate Limiter for credential submissions
	rateLimiter := handlers.NewRateLimiter(10 * time.Second)

	// Public Routes
	mux.HandleFunc("/", homeHandler.Index)
	mux.HandleFunc("/login", gate.RequireAnonymous(authHandler.LoginGet))
	mux.HandleFunc("POST /login", rateLimiter.Middleware(gate.RequireAnonymous(authHandler.LoginPost)))
	mux.HandleFunc("/logout", authHandler.Logout)
	mux.HandleFunc("/register", gate.RequireAnonymous(authHandler.RegisterGet))
	mux.HandleFunc("POST /register", rateLimiter.Middleware(gate.RequireAnonymous(authHandler.RegisterPost)))

	// Customer Routes
	mux.HandleFunc("/account", gate.RequireCustomer(accountHandler.Show))
	mux.HandleFunc("POST /account", gate.RequireCustomer(accountHandler.Update))
	mux.HandleFunc("/cart", gate.RequireCustomer(cartHandler.Show))
	mux.HandleFunc("POST /cart", gate.RequireCustomer(cartHandler.PlaceOrder))

	// Admin Routes
	mux.HandleFunc("/shopmanagement", gate.RequireAdmin(shopHandler.Show))
	mux.HandleFunc("POST /shopmanagement", gate.RequireAdmin(shopHandler.Submit))
	mux.HandleFunc("/orders", gate.RequireAdmin(orderAdminHandler.List))
	mux.HandleFunc("POST /orders", gate.RequireAdmin(orderAdminHandler.UpdateStatus))

	// 6. Middleware Setup
	CSRF := csrf.Protect(
		cfg.CSRFKey,
		csrf.Secure(cfg.CookieSecure), // Configurable for production
		csrf.TrustedOrigins([]string{"localhost:" + cfg.Port, "127.0.0.1:" + cfg.Port, "localhost", "127.0.0.1"}),
	)

	// Chain: Logger -> Security Headers -> CSRF -> Actor Gate -> Mux
	handler := handlers.LoggingMiddleware(
		handlers.SecurityHeadersMiddleware(
			CSRF(gate.Resolve(mux)),
		),
	)

	// 7. Start Server with Graceful Shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to listen and serve", "error", err)
			os.Exit(1)
		}
	}()

	<-stop

	slog.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited gracefully.")
}
