package main

import (
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mentorcrm/chat/internal/api"
	"github.com/mentorcrm/chat/internal/auth"
	"github.com/mentorcrm/chat/internal/cache"
	"github.com/mentorcrm/chat/internal/client"
	"github.com/mentorcrm/chat/internal/config"
	"github.com/mentorcrm/chat/internal/metrics"
	"github.com/mentorcrm/chat/internal/model/chat"
	"github.com/mentorcrm/chat/internal/render"
	"github.com/mentorcrm/chat/internal/transport/ws"
)

// runtime holds everything a command needs. Close releases the cache and
// the metrics listener.
type runtime struct {
	cfg      config.ClientConfig
	tokens   auth.Source
	api      *api.Client
	metrics  *metrics.Collector
	renderer *render.Renderer

	closers []io.Closer
}

// resolveConfig layers explicit flags over the environment.
func resolveConfig() (config.ClientConfig, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return config.ClientConfig{}, err
	}
	if origin != "" {
		cfg.Origin = origin
	}
	if mode != "" {
		cfg.Mode = chat.Mode(mode)
		if !cfg.Mode.Valid() {
			return config.ClientConfig{}, errors.New("mode must be chat or diagnostico")
		}
	}
	if token != "" {
		cfg.Token = token
	}
	if tokenFile != "" {
		cfg.TokenFile = tokenFile
	}
	if cacheDir != "" {
		cfg.CacheDir = cacheDir
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	return cfg, nil
}

// tokenSource prefers an explicit token, then the token file, then the
// environment at call time.
func tokenSource(cfg config.ClientConfig) auth.Source {
	var sources auth.First
	if cfg.Token != "" {
		sources = append(sources, auth.Static(cfg.Token))
	}
	if cfg.TokenFile != "" {
		sources = append(sources, auth.File(cfg.TokenFile))
	}
	return append(sources, auth.Env("CHAT_TOKEN"))
}

func newRuntime() (*runtime, error) {
	if !verbose {
		log.SetOutput(io.Discard)
	}

	cfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, tokens: tokenSource(cfg)}

	var store cache.Store = cache.NewMemoryStore()
	if cfg.CacheDir != "" {
		pebbleStore, err := cache.OpenPebble(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, pebbleStore)
		store = pebbleStore
	}

	rt.api, err = api.New(cfg.Origin, rt.tokens, cache.New(store, cfg.CacheTTL), &http.Client{Timeout: 30 * time.Second})
	if err != nil {
		rt.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	rt.metrics, err = metrics.New(reg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if cfg.MetricsAddr != "" {
		if err := rt.serveMetrics(reg, cfg.MetricsAddr); err != nil {
			rt.Close()
			return nil, err
		}
	}

	rt.renderer, err = render.New(80, plain)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) serveMetrics(reg *prometheus.Registry, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[chat] metrics server: %v", err)
		}
	}()
	rt.closers = append(rt.closers, srv)
	return nil
}

// newClient builds a session client wired to this runtime.
func (rt *runtime) newClient(onChange func(client.State)) (*client.Client, error) {
	return client.New(client.Options{
		Origin:    rt.cfg.Origin,
		Mode:      rt.cfg.Mode,
		Tokens:    rt.tokens,
		Transport: ws.New(ws.DefaultOptions()),
		Sessions:  rt.api,
		Metrics:   rt.metrics,
		OnChange:  onChange,
	})
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			log.Printf("[chat] close: %v", err)
		}
	}
	rt.closers = nil
}
