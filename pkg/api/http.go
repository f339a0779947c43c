package api

import (
	"context"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gorilla/mux"
	"github.com/luscis/ipsecman/pkg/libol"
	"github.com/luscis/ipsecman/pkg/schema"
	"github.com/luscis/ipsecman/pkg/swan"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NotFound(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Oops!", http.StatusNotFound)
}

func NotAllowed(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Oops!", http.StatusMethodNotAllowed)
}

// Http serves the scrape endpoint of the manager.
type Http struct {
	listen string
	source swan.StatusSource
	server *http.Server
	router *mux.Router
	pprof  bool
}

func NewHttp(listen string, source swan.StatusSource) *Http {
	return &Http{
		listen: listen,
		source: source,
	}
}

func (h *Http) EnablePProf() {
	h.pprof = true
}

func (h *Http) Initialize() {
	r := h.Router()
	if h.server == nil {
		h.server = &http.Server{
			Addr:         h.listen,
			Handler:      r,
			ReadTimeout:  time.Minute,
			WriteTimeout: time.Minute,
		}
	}
	h.LoadRouter()
}

func (h *Http) PProf(r *mux.Router) {
	r.HandleFunc("/debug/pprof/", pprof.Index)
	r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	r.HandleFunc("/debug/pprof/profile", pprof.Profile)
	r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	r.HandleFunc("/debug/pprof/trace", pprof.Trace)
}

func (h *Http) Prome(r *mux.Router) {
	registry := swan.NewRegistry(swan.NewCollector(h.source))
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

// Health answers 200 while the daemon responds to stats and 503 otherwise.
func (h *Http) Health(w http.ResponseWriter, r *http.Request) {
	_, err := h.source.GetStats()
	result := swan.NewResult("health", "", "", err)
	if !result.Ok() {
		ResponseCode(w, http.StatusServiceUnavailable, result)
		return
	}
	ResponseJson(w, result)
}

func (h *Http) Version(w http.ResponseWriter, r *http.Request) {
	ResponseJson(w, schema.NewVersionSchema())
}

func (h *Http) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		libol.Debug("Http.Middleware %s %s", r.Method, r.URL.Path)
		start := time.Now()
		next.ServeHTTP(w, r)
		if dt := time.Since(start); dt > 2*time.Second {
			libol.Warn("Http.Middleware %s %s long time %s", r.Method, r.URL.Path, dt)
		}
	})
}

func (h *Http) Router() *mux.Router {
	if h.router == nil {
		h.router = mux.NewRouter()
		h.router.NotFoundHandler = http.HandlerFunc(NotFound)
		h.router.MethodNotAllowedHandler = http.HandlerFunc(NotAllowed)
		h.router.Use(h.Middleware)
	}
	return h.router
}

func (h *Http) LoadRouter() {
	router := h.Router()
	h.Prome(router)
	router.HandleFunc("/healthz", h.Health).Methods("GET")
	router.HandleFunc("/api/version", h.Version).Methods("GET")
	if h.pprof {
		h.PProf(router)
	}
}

// Start serves in the background and retries the listener with backoff.
func (h *Http) Start() {
	h.Initialize()
	libol.Info("Http.Start %s", h.listen)
	promise := libol.NewPromiseAlways()
	promise.Go(func() error {
		err := h.server.ListenAndServe()
		if err == http.ErrServerClosed {
			return nil
		}
		libol.Error("Http.Start on %s: %s", h.listen, err)
		return err
	})
}

func (h *Http) Shutdown() {
	libol.Info("Http.Shutdown %s", h.listen)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.server.Shutdown(ctx); err != nil {
		libol.Error("Http.Shutdown: %v", err)
	}
}
