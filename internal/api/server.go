// Package api exposes the waterfall engine, sensitivity runs and saved
// scenarios over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/waterfall-cli/internal/sensitivity"
	"github.com/sells-group/waterfall-cli/internal/store"
	"github.com/sells-group/waterfall-cli/internal/waterfall"
)

// Options configures a Server.
type Options struct {
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	CacheTTL       time.Duration // zero disables the calculation cache
	RequestTimeout time.Duration
	// Defaults fill in parameters a request body leaves out.
	Defaults waterfall.Parameters
	// Multiples is used when a sensitivity request names none.
	Multiples []float64
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	store   store.Store
	runner  *sensitivity.Runner
	cache   *gocache.Cache
	limiter *RateLimiter
	opts    Options
}

// NewServer creates a Server. A nil store disables the scenario routes.
func NewServer(st store.Store, runner *sensitivity.Runner, opts Options) *Server {
	s := &Server{store: st, runner: runner, opts: opts}
	if opts.CacheTTL > 0 {
		s.cache = gocache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = NewRateLimiter(opts.RateLimitRPS, burst)
	}
	return s
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Router builds the chi router with middleware and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "X-Cache"},
		MaxAge:         300,
	}))
	r.Use(metricsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}
		if s.opts.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.opts.RequestTimeout))
		}

		r.Post("/calculate", s.handleCalculate)
		r.Post("/sensitivity", s.handleSensitivity)

		if s.store != nil {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", s.handleListScenarios)
				r.Post("/", s.handleSaveScenario)
				r.Get("/{id}", s.handleGetScenario)
				r.Delete("/{id}", s.handleDeleteScenario)
				r.Get("/{id}/calculate", s.handleCalculateScenario)
			})
		}
	})

	return r
}

// calculate runs the engine through the TTL cache. The bool reports a hit.
func (s *Server) calculate(p waterfall.Parameters) (*waterfall.Result, bool, error) {
	var key string
	if s.cache != nil {
		if b, err := json.Marshal(p); err == nil {
			key = string(b)
			if v, ok := s.cache.Get(key); ok {
				CalculationCacheTotal.WithLabelValues("hit").Inc()
				return v.(*waterfall.Result), true, nil
			}
			CalculationCacheTotal.WithLabelValues("miss").Inc()
		}
	}

	res, err := waterfall.Calculate(p)
	if err != nil {
		CalculationsTotal.WithLabelValues("invalid").Inc()
		return nil, false, err
	}
	CalculationsTotal.WithLabelValues("ok").Inc()

	if key != "" {
		s.cache.SetDefault(key, res)
	}
	return res, false, nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
