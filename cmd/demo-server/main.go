package main

import (
	"log/slog"
	"net/http"
	"os"

	mem "shanyrakkit/adapters/memory"
	"shanyrakkit/api/httpapi"
	"shanyrakkit/engine"
	"shanyrakkit/realtime"
	"shanyrakkit/shanyrak"
)

// A single-binary demo: in-memory storage, no auth, readable logs.
// Try:
//
//	curl -X POST localhost:8080/shanyraks -d '{"name":"Red","color":"#FF0000"}'
//	curl -X POST localhost:8080/shanyraks/{id}/add-points -d '{"points":50}'
//	curl localhost:8080/shanyraks/leaderboard
func main() {
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(textHandler))

	hub := realtime.NewHub()
	svc := shanyrak.New(
		shanyrak.WithStorage(mem.New()),
		shanyrak.WithRealtime(hub),
		shanyrak.WithDispatchMode(engine.DispatchAsync),
	)

	handler := httpapi.NewMux(svc, hub, httpapi.Options{})

	slog.Info("starting demo server on :8080")

	if err := http.ListenAndServe(":8080", handler); err != nil {
		slog.Error("demo server crashed", "error", err)
		os.Exit(1)
	}
}
