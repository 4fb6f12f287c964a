package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vaultcraft/execd/pkg/events"
	"github.com/vaultcraft/execd/pkg/exec"
	"github.com/vaultcraft/execd/pkg/ledger"
	"github.com/vaultcraft/execd/pkg/models"
	"github.com/vaultcraft/execd/pkg/nav"
	"github.com/vaultcraft/execd/pkg/pricing"
)

// Server is a thin HTTP front-end over the execution core. It renders core
// results; all decisions happen in the dispatcher and friends.
type Server struct {
	dispatcher *exec.Dispatcher
	book       *ledger.Ledger
	nav        *nav.Calculator
	prices     *pricing.CachedRouter
	events     *events.MemorySink
	acks       *exec.AckTracker
	snapshots  *nav.MemorySnapshots
	logger     *logrus.Logger
	port       string
}

func NewServer(
	dispatcher *exec.Dispatcher,
	book *ledger.Ledger,
	navCalc *nav.Calculator,
	prices *pricing.CachedRouter,
	sink *events.MemorySink,
	acks *exec.AckTracker,
	snapshots *nav.MemorySnapshots,
	logger *logrus.Logger,
	port string,
) *Server {
	return &Server{
		dispatcher: dispatcher,
		book:       book,
		nav:        navCalc,
		prices:     prices,
		events:     sink,
		acks:       acks,
		snapshots:  snapshots,
		logger:     logger,
		port:       port,
	}
}

func (s *Server) Start() error {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/positions", s.handlePositions)
	mux.HandleFunc("/api/nav", s.handleNav)
	mux.HandleFunc("/api/price", s.handlePrice)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/api/orders/open", s.handleOpen)
	mux.HandleFunc("/api/orders/close", s.handleClose)

	// Enable CORS for the dashboard
	handler := corsMiddleware(mux)

	s.logger.Infof("Starting API server on port %s", s.port)
	return http.ListenAndServe(":"+s.port, handler)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func vaultParam(r *http.Request) string {
	if vault := r.URL.Query().Get("vault"); vault != "" {
		return vault
	}
	return "_global"
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}
	if latest, ok := s.acks.Latest(); ok {
		response["lastAck"] = latest.UTC()
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	vault := vaultParam(r)
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.book.GetProfile(vault))
	case http.MethodPost:
		var profile models.PositionProfile
		if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := s.book.SetProfile(vault, profile); err != nil {
			s.logger.WithError(err).Error("Failed to set profile")
			http.Error(w, "Failed to persist profile", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleNav(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	vault := vaultParam(r)
	unit := s.nav.ComputeUnitNav(r.Context(), vault)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"vault": vault, "unitNav": unit})
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	keys := r.URL.Query()["key"]
	if len(keys) == 0 {
		http.Error(w, "At least one key parameter is required", http.StatusBadRequest)
		return
	}
	prices, err := s.prices.GetIndexPrices(r.Context(), keys)
	if err != nil {
		s.logger.WithError(err).Error("Price lookup failed")
		http.Error(w, "Price lookup failed", http.StatusBadGateway)
		return
	}
	s.writeJSON(w, http.StatusOK, prices)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.events.List(vaultParam(r)))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	vault := vaultParam(r)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"vault":     vault,
		"snapshots": s.snapshots.List(vault),
	})
}

type openRequest struct {
	Vault string `json:"vault"`
	models.Order
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Vault == "" {
		req.Vault = "_global"
	}
	out := s.dispatcher.Open(r.Context(), req.Vault, req.Order)
	s.writeJSON(w, http.StatusOK, out)
}

type closeRequest struct {
	Vault  string   `json:"vault"`
	Symbol string   `json:"symbol"`
	Size   *float64 `json:"size,omitempty"`
	Venue  string   `json:"venue,omitempty"`
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req closeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Vault == "" {
		req.Vault = "_global"
	}
	out := s.dispatcher.Close(r.Context(), req.Vault, req.Symbol, req.Size, req.Venue)
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}
