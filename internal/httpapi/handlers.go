package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/gator-taxi/internal/command"
	"github.com/example/gator-taxi/internal/dispatch"
	"github.com/example/gator-taxi/internal/models"
	"github.com/example/gator-taxi/internal/registry"
)

// maxCommandBody bounds a POST /api/v1/commands batch.
const maxCommandBody = 4 << 20

type Server struct {
	Registry *registry.Registry
	WSReg    *dispatch.WSRegistry
	logger   *slog.Logger
	mux      *mux.Router
}

func NewServer(reg *registry.Registry, wsreg *dispatch.WSRegistry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{Registry: reg, WSReg: wsreg, logger: logger, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/rides", s.handleInsert).Methods("POST")
	s.mux.HandleFunc("/api/v1/rides", s.handleRange).Methods("GET")
	s.mux.HandleFunc("/api/v1/rides/next", s.handleNext).Methods("POST")
	s.mux.HandleFunc("/api/v1/rides/{id:-?[0-9]+}", s.handleLookup).Methods("GET")
	s.mux.HandleFunc("/api/v1/rides/{id:-?[0-9]+}", s.handleCancel).Methods("DELETE")
	s.mux.HandleFunc("/api/v1/rides/{id:-?[0-9]+}/trip", s.handleUpdateTrip).Methods("PATCH")
	s.mux.HandleFunc("/api/v1/commands", s.handleCommands).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/dispatch", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var ride models.Ride
	if err := json.NewDecoder(r.Body).Decode(&ride); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if err := s.Registry.Insert(ride); err != nil {
		if errors.Is(err, registry.ErrDuplicateRide) {
			http.Error(w, command.DuplicateRide, http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, http.StatusCreated, ride)
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	id, ok := rideID(w, r)
	if !ok {
		return
	}
	ride, found := s.Registry.Lookup(id)
	if !found {
		http.Error(w, "ride not found", http.StatusNotFound)
		return
	}
	writeJSON(w, 200, ride)
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lo, err1 := strconv.Atoi(q.Get("from"))
	hi, err2 := strconv.Atoi(q.Get("to"))
	if err1 != nil || err2 != nil {
		http.Error(w, "from and to must be integers", 400)
		return
	}
	rides := s.Registry.LookupRange(lo, hi)
	if rides == nil {
		rides = []models.Ride{}
	}
	writeJSON(w, 200, rides)
}

type tripUpdate struct {
	TripDuration *int `json:"trip_duration"`
}

type tripResponse struct {
	Outcome string      `json:"outcome"`
	Ride    models.Ride `json:"ride"`
}

func (s *Server) handleUpdateTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := rideID(w, r)
	if !ok {
		return
	}
	var body tripUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if body.TripDuration == nil {
		http.Error(w, "trip_duration is required", 400)
		return
	}
	ride, outcome := s.Registry.UpdateTrip(id, *body.TripDuration)
	if outcome == registry.TripNotFound {
		http.Error(w, "ride not found", http.StatusNotFound)
		return
	}
	writeJSON(w, 200, tripResponse{Outcome: outcome.String(), Ride: ride})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := rideID(w, r)
	if !ok {
		return
	}
	if _, found := s.Registry.Cancel(id); !found {
		http.Error(w, "ride not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	ride, err := s.Registry.Next()
	if errors.Is(err, registry.ErrNoActiveRides) {
		http.Error(w, command.NoActiveRides, http.StatusNotFound)
		return
	}
	writeJSON(w, 200, ride)
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	runner := command.Runner{Registry: s.Registry, Logger: s.logger}
	var out strings.Builder
	st, err := runner.Run(r.Context(), http.MaxBytesReader(w, r.Body, maxCommandBody), &out)
	if err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Commands-Skipped", strconv.Itoa(st.Skipped))
	if st.Halted {
		w.Header().Set("X-Commands-Halted", "true")
	}
	w.Write([]byte(out.String()))
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := newID()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.WSReg.Add(id, conn)
	s.logger.Info("dispatch console connected", "session", id)
}

func rideID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid ride number", 400)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
