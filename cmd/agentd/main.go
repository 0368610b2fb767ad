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

	"github.com/mentorcrm/chat/internal/config"
	"github.com/mentorcrm/chat/internal/handler"
	"github.com/mentorcrm/chat/internal/model/catalog"
	"github.com/mentorcrm/chat/internal/service/ai"
	"github.com/mentorcrm/chat/internal/service/chat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("[agentd] warning: failed to load .env file: %v", err)
		log.Println("[agentd] continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[agentd] failed to load configuration: %v", err)
	}

	chatService := chat.NewService()
	catalogs := catalog.NewMemoryStore(catalog.Seed())

	var responder ai.Responder = ai.Echo{}
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("[agentd] warning: failed to initialize AI service: %v", err)
			log.Println("[agentd] falling back to echo responder, check the Ark model environment variables")
		} else {
			responder = aiService
			log.Println("[agentd] AI service initialized successfully")
		}
	} else {
		log.Println("[agentd] Ark credentials not configured, using echo responder")
	}

	if len(cfg.Server.Tokens) == 0 {
		log.Println("[agentd] AGENTD_TOKENS not set, accepting any bearer token")
	}

	router := handler.NewRouter(cfg.Server, catalogs, chatService, responder)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("[agentd] listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("[agentd] server error: %v", err)
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
