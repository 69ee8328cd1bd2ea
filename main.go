package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/AutoMap-DE/AutoMap-Backend/internal/auth"
	"github.com/AutoMap-DE/AutoMap-Backend/internal/config"
	"github.com/AutoMap-DE/AutoMap-Backend/internal/db"
	"github.com/AutoMap-DE/AutoMap-Backend/internal/device"
	"github.com/AutoMap-DE/AutoMap-Backend/internal/kv"
	"github.com/AutoMap-DE/AutoMap-Backend/internal/middleware"
	"github.com/AutoMap-DE/AutoMap-Backend/internal/replica"
	"github.com/AutoMap-DE/AutoMap-Backend/internal/tags"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	db.Connect()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5050"
	}

	auth.Init()
	if err := kv.Init(db.DB); err != nil {
		log.Fatal("Failed to init kv schema: ", err)
	}
	if err := replica.Init(db.DB); err != nil {
		log.Fatal("Failed to init replica schema: ", err)
	}

	svc, err := tags.NewService(cfg, kv.NewGormStore(db.DB))
	if err != nil {
		log.Fatal("Failed to restore snapshot: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	channel := replica.NewChannel(db.DB, device.NodeID())
	syncer := replica.NewSyncer(channel, svc, cfg.SyncInterval)
	svc.NotifyDeletes(func(id string) {
		if err := syncer.PushDelete(ctx, id); err != nil {
			log.Printf("[sync] tombstone for %s failed: %v", id, err)
		}
	})
	go syncer.Run(ctx)

	handler := tags.NewHandler(svc, device.NewFingerprinter())

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Get("/", RootHandler)

	r.Mount("/auth", auth.SetupRoutes())
	r.Mount("/tags", tags.SetupRoutes(handler, auth.SessionInfo{}))

	log.Printf("Server listening on port :%s (node %s)...", port, device.NodeID())

	http.ListenAndServe("0.0.0.0:"+port, r)
}
