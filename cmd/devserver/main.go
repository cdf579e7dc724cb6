package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"scanflow/internal/devserver"
)

func main() {
	addr := flag.String("addr", ":10019", "Listen address")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	srv := devserver.New(logger)
	r := devserver.NewRouter(srv)

	logger.Info("devserver running", "addr", *addr)
	if err := http.ListenAndServe(*addr, r); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
