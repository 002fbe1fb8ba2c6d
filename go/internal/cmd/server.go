package main

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/auctionhouse/go/internal/config"
	"github.com/mcdev12/auctionhouse/go/internal/gateway"
)

func setupServer(cfg *config.Config, services *Services) *http.Server {
	r := mux.NewRouter()

	services.Gateway.RegisterRoutes(r)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	setupHealthCheck(r, services)

	handler := gateway.CORSMiddleware(cfg.Server.AllowedOrigins)(r)

	// h2c keeps HTTP/2 available without TLS behind a proxy
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

func setupHealthCheck(r *mux.Router, services *Services) {
	if services.health != nil {
		r.Handle("/health", services.health).Methods(http.MethodGet)
		return
	}
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	}).Methods(http.MethodGet)
}
