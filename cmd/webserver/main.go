package main

import (
	"context"
	"flag"
	"log"
	"net/http"

	"mcqgen"

	"github.com/gorilla/sessions"
)

func main() {
	cfg := mcqgen.LoadConfig()

	var (
		port    = flag.String("port", cfg.Port, "HTTP port")
		backend = flag.String("store", cfg.StoreBackend, "State backend: sqlite, redis, memory")
		dbPath  = flag.String("db", cfg.DBPath, "sqlite database holding per-browser state")
		offline = flag.Bool("offline", cfg.Offline, "Use the built-in offline question service instead of OpenAI")
		verbose = flag.Bool("verbose", cfg.Verbose, "Enable verbose debugging output")
		idle    = flag.Duration("session-idle", DefaultIdleTimeout, "Drop in-memory browser sessions unused for this long")
	)
	flag.Parse()

	cfg.Port = *port
	cfg.StoreBackend = *backend
	cfg.DBPath = *dbPath
	cfg.Offline = *offline
	mcqgen.SetVerbose(*verbose)

	store, closer, err := mcqgen.OpenStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to open state store: %v", err)
	}
	defer closer.Close()

	cookies := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 365,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	server := NewServer(
		store,
		cookies,
		mcqgen.NewGenerator(mcqgen.NewQuestionService(cfg), mcqgen.WithTimeout(cfg.GenerationTimeout)),
		mcqgen.NewIngestor(mcqgen.PdftotextExtractor{}),
	)
	server.IdleTimeout = *idle
	if cfg.Offline {
		log.Printf("Using offline question service")
	}

	log.Printf("Starting server on port %s (store: %s)", cfg.Port, cfg.StoreBackend)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, server.Routes()))
}
