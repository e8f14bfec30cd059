package relay

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"optiscope/internal/domain"
	"optiscope/internal/normalize"
	"optiscope/internal/options"
	"optiscope/internal/upstream"
)

// Server serves the relay HTTP API.
type Server struct {
	relay *Relay
	agg   *options.Aggregator
	log   *slog.Logger
}

// NewServer creates a Server. agg may be nil, in which case the chain
// endpoint aggregates directly over relay.
func NewServer(relay *Relay, agg *options.Aggregator, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if agg == nil {
		agg = options.NewAggregator(relay, options.WithLogger(log))
	}
	return &Server{relay: relay, agg: agg, log: log}
}

// RegisterRoutes registers all API routes on the given router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/thetadata/*", s.handleForward(ProviderThetaData))
	r.Get("/api/yahoo/*", s.handleForward(ProviderYahoo))
	r.Get("/api/options/chain", s.handleChain)
	r.Get("/api/options/price", s.handlePrice)
}

// Handler returns the routed API wrapped in its middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(zstdMiddleware)
	s.RegisterRoutes(r)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleForward(p Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := chi.URLParam(r, "*")
		v, err := s.relay.Forward(r.Context(), p, path, r.URL.Query())
		if err != nil {
			s.log.Error("forwarding request", "provider", p, "path", path, "error", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, v)
	}
}

func (s *Server) handleChain(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := strings.ToUpper(strings.TrimSpace(q.Get("symbol")))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, errors.New("symbol is required"))
		return
	}

	data, err := s.agg.Fetch(r.Context(), options.Request{
		Symbol:     symbol,
		Right:      domain.ParseRight(q.Get("type")),
		Expiration: q.Get("expiration"),
		StartDate:  q.Get("start_date"),
		EndDate:    q.Get("end_date"),
	})
	if err != nil {
		s.log.Error("aggregating options", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, data)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	q := priceQuery(r.URL.Query())

	// Validate up front so a bad query is a 400, not an upstream failure.
	if _, err := normalize.EODQuery(q); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	strike, _ := strconv.ParseFloat(strings.TrimSpace(q.Get(normalize.ParamStrike)), 64)

	req := domain.EODRequest{
		Root:       strings.ToUpper(strings.TrimSpace(q.Get(normalize.ParamRoot))),
		Expiration: q.Get(normalize.ParamExp),
		Strike:     strike,
		Right:      domain.ParseRight(q.Get(normalize.ParamRight)),
		StartDate:  q.Get(normalize.ParamStartDate),
		EndDate:    q.Get(normalize.ParamEndDate),
	}
	price, err := s.relay.OptionHistory(r.Context(), req)
	if err != nil {
		s.log.Error("fetching option price", "symbol", req.Root, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, price)
}

// priceQuery accepts symbol as an alias of root.
func priceQuery(q url.Values) url.Values {
	if q.Get(normalize.ParamRoot) == "" && q.Get("symbol") != "" {
		q.Set(normalize.ParamRoot, q.Get("symbol"))
	}
	return q
}

// errorBody is the relay's failure response.
type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	body := errorBody{Error: err.Error()}
	var uerr *upstream.Error
	if errors.As(err, &uerr) {
		body.Details = uerr.Details()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
