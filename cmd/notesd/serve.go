package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"example.com/notesync/internal/auth"
	"example.com/notesync/internal/config"
	"example.com/notesync/internal/db"
	"example.com/notesync/internal/feed"
	"example.com/notesync/internal/notes"
	"example.com/notesync/internal/profile"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if cfg.DatabaseURL == "" {
			glog.Exit("DATABASE_URL is required")
		}
		if cfg.JWTSecret == "" {
			glog.Exit("JWT_SECRET is required")
		}

		ctx := context.Background()

		dbConn, err := db.Open(ctx, cfg.DatabaseURL, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime)
		if err != nil {
			glog.Exit(err)
		}
		defer dbConn.SQL.Close()

		broker := feed.NewBroker(cfg.FeedBuffer)

		repo, err := notes.NewRepository(ctx, dbConn.SQL, broker)
		if err != nil {
			glog.Exit(err)
		}
		defer repo.Close()

		issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
		authHandlers := auth.NewHandlers(auth.NewService(auth.NewUserStore(dbConn.SQL)), issuer)
		noteHandlers := notes.NewHandlers(repo, profile.NewStore(dbConn.SQL), feed.Handler(broker))

		r := chi.NewRouter()
		r.Use(auth.Middleware(issuer))
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		r.Mount("/auth", authHandlers.Routes())
		r.Mount("/notes", noteHandlers.Routes())

		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		}

		glog.Infof("notesd listening on %s", cfg.HTTPAddr)
		glog.Exit(srv.ListenAndServe())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
