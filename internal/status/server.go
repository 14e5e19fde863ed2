// Package status serves a read-only HTTP view of the bot's voice sessions.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/keshon/voice-relay/internal/session"
	"github.com/rs/zerolog"
)

// Source provides session snapshots.
type Source interface {
	Snapshot() []session.Status
}

type Report struct {
	Guilds        int     `json:"guilds"`
	Connected     int     `json:"connected"`
	Playing       int     `json:"playing"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

type Server struct {
	addr    string
	src     Source
	started time.Time
	log     zerolog.Logger
}

func NewServer(addr string, src Source, log zerolog.Logger) *Server {
	return &Server{addr: addr, src: src, started: time.Now(), log: log}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rep := Report{UptimeSeconds: time.Since(s.started).Seconds()}
	for _, st := range s.src.Snapshot() {
		rep.Guilds++
		if st.Connected {
			rep.Connected++
		}
		if st.Playing {
			rep.Playing++
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		s.log.Warn().Err(err).Msg("Failed to write status response")
	}
}

// Run serves until ctx is canceled. An empty address disables the server.
func (s *Server) Run(ctx context.Context) error {
	if s.addr == "" {
		return nil
	}
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("Shutting down status server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", s.addr).Msg("Status server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
