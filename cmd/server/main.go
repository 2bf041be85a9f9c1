// Command server serves the read-only results API (and optionally the static
// front end) over a database produced by the ingest command.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/peterbourgon/ff/v3"

	"examresults/internal/api"
	"examresults/internal/store"
)

func main() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	var (
		dbPath     = fs.String("db", "database.db", "SQLite database file produced by ingest")
		addr       = fs.String("addr", ":3000", "listen address")
		staticDir  = fs.String("static", "", "directory with the static front end (optional)")
		university = fs.String("university", "Bihar Engineering University, Patna", "university display name in student payloads")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("EXAMRESULTS")); err != nil {
		fatalf("parse flags: %v", err)
	}

	ctx := context.Background()
	db, err := store.Open(ctx, *dbPath)
	if err != nil {
		log.Fatalf("open database %s: %v", *dbPath, err)
	}
	defer db.Close()

	srv := &api.Server{
		Store:      db,
		University: *university,
		Logger:     log.Default(),
	}

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           srv.Routes(*staticDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("serving results api on %s (db=%s)", *addr, *dbPath)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("%v", err)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
