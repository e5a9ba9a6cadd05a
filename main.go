// Command libris runs the library management API: accounts, the book
// catalog, the loan lifecycle and librarian reports. This file wires
// configuration, the database pool, services and handlers into a chi
// router and runs the HTTP server with graceful shutdown.
//
// @title Libris API
// @version 1.0
// @description Library management API: catalog, accounts and the loan lifecycle.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_JWT_TOKEN' to authorize
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/user/libris-go/apperror"
	"github.com/user/libris-go/auth"
	"github.com/user/libris-go/books"
	"github.com/user/libris-go/config"
	"github.com/user/libris-go/db"
	_ "github.com/user/libris-go/docs" // registers the Swagger spec
	"github.com/user/libris-go/loans"
	"github.com/user/libris-go/profiles"
	"github.com/user/libris-go/reports"
	"github.com/user/libris-go/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading it: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pool, err := db.NewPool(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to create database pool: %v", err)
	}
	defer pool.Close()

	if err := db.EnableExtensions(pool); err != nil {
		log.Fatalf("Failed to enable extensions: %v", err)
	}
	if err := db.RunMigrations(cfg.DB, "./migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	blobs, err := storage.NewDiskStore(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize media storage: %v", err)
	}

	// Services and handlers, wired by hand. The loan service runs on the
	// store interface so the lifecycle logic stays independent of pgx.
	authService := auth.NewAuthService(pool, *cfg.Auth)
	authHandlers := auth.NewHandlers(authService)

	bookService := books.NewBookService(pool)
	bookHandlers := books.NewBookHandlers(bookService, blobs)

	loanStore := loans.NewPgStore(pool)
	loanService := loans.NewService(loanStore, cfg.Loans)
	loanHandlers := loans.NewLoanHandlers(loanService)

	profileService := profiles.NewProfileService(pool)
	profileHandlers := profiles.NewProfileHandlers(profileService, loanService, blobs)

	reportService := reports.NewReportService(pool)
	reportHandlers := reports.NewReportHandlers(reportService)

	// The sweeper only observes and logs; loan state changes happen solely
	// through the lifecycle endpoints.
	sweeperStop := make(chan struct{})
	sweeperDone := loans.StartOverdueSweeper(loanStore, cfg.Loans.SweepInterval, sweeperStop)

	r := chi.NewRouter()

	// Chi requires all middleware to be registered before any routes.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Panic recovery that reports through the apperror envelope.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				if rvr := recover(); rvr != nil {
					log.Printf("Panic: %+v", rvr)
					writeError(ww, apperror.NewInternalError("internal server error", nil))
				}
			}()
			next.ServeHTTP(ww, r)
		})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Uploaded covers and avatars, served read-only.
	r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(blobs.Root()))))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandlers.HandleRegister())
		r.Post("/login", authHandlers.HandleLogin())
		r.Post("/refresh", authHandlers.HandleRefreshToken())
	})

	r.Route("/profiles", func(r chi.Router) {
		r.Use(auth.JWTMiddleware(cfg.Auth))

		r.Get("/me", profileHandlers.HandleGetMe())
		r.Put("/me", profileHandlers.HandleUpdateMe())
		r.Post("/me/avatar", profileHandlers.HandleUploadAvatar())

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleLibrarian))
			r.Get("/", profileHandlers.HandleList())
			r.Get("/{id}/loans", profileHandlers.HandleListLoans())
		})
	})

	r.Route("/books", func(r chi.Router) {
		r.Use(auth.JWTMiddleware(cfg.Auth))

		r.Get("/", bookHandlers.HandleList())
		r.Get("/categories", bookHandlers.HandleCategories())
		r.Get("/{id}", bookHandlers.HandleGet())

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleLibrarian))
			r.Post("/", bookHandlers.HandleCreate())
			r.Put("/{id}", bookHandlers.HandleUpdate())
			r.Post("/{id}/cover", bookHandlers.HandleUploadCover())
		})
	})

	r.Route("/loans", func(r chi.Router) {
		r.Use(auth.JWTMiddleware(cfg.Auth))

		// Students see their own loans; the handlers narrow the scope from
		// the token claims.
		r.Get("/", loanHandlers.HandleList())
		r.Get("/{id}", loanHandlers.HandleGet())

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleLibrarian))
			r.Post("/", loanHandlers.HandleOpen())
			r.Post("/{id}/return", loanHandlers.HandleReturn())
		})
	})

	r.Route("/reports", func(r chi.Router) {
		r.Use(auth.JWTMiddleware(cfg.Auth))
		r.Use(auth.RequireRole(auth.RoleLibrarian))

		r.Get("/dashboard", reportHandlers.HandleDashboard())
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	close(sweeperStop)
	sweeperDone.Wait()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped gracefully")
}

// writeError is a local helper for the panic recovery middleware, kept
// here to avoid pulling handler helpers into the middleware chain.
func writeError(w http.ResponseWriter, appErr *apperror.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())
	if err := json.NewEncoder(w).Encode(appErr.ToResponse()); err != nil {
		http.Error(w, `{"error":"Failed to encode error response"}`, http.StatusInternalServerError)
	}
}
