package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/aidiary/backend/internal/config"
	"github.com/aidiary/backend/internal/handler"
	chatservice "github.com/aidiary/backend/internal/service/chat"
	diaryservice "github.com/aidiary/backend/internal/service/diary"
	"github.com/aidiary/backend/internal/service/llm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	resolver := llm.NewResolver(cfg.OpenAI)
	completer := llm.OpenAIClient{}

	if resolver.Available("") {
		log.Printf("OpenAI configured, model=%s", resolver.Model())
	} else {
		log.Println("OPENAI_API_KEY 未設定のためデモモードで起動します")
	}

	responder := chatservice.NewResponder(resolver, completer, cfg.OpenAI)
	synthesizer := diaryservice.NewSynthesizer(resolver, completer, time.UTC, cfg.OpenAI)

	router := handler.NewRouter(cfg, resolver, completer, responder, synthesizer)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("AI Diary backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
