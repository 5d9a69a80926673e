package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Options struct {
	// Timeout is the request context deadline. Handlers still write their own
	// reply after it passes, so it must exceed a search plus a generation.
	Timeout     time.Duration
	CORSOrigins []string
}

type Server struct{ mux *chi.Mux }

func New(opt Options) *Server {
	if opt.Timeout <= 0 {
		opt.Timeout = 2 * time.Minute
	}
	m := chi.NewRouter()

	// all middlewares go before any routes are added
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(CORS(opt.CORSOrigins))
	m.Use(chimw.Timeout(opt.Timeout))
	m.Use(Metrics)
	m.Use(Logger(log.Logger))

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
