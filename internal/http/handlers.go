package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ride-hailing/internal/dispatch"
	"github.com/example/ride-hailing/internal/geo"
	"github.com/example/ride-hailing/internal/ingest"
	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/observability"
	"github.com/example/ride-hailing/internal/ride"
)

// Server exposes the ride lifecycle over HTTP. Routes mirror the mobile
// clients' needs: position reports, availability toggles, ride requests and
// trip start/finish, plus the notification websocket.
type Server struct {
	Directory geo.Directory
	Rides     *ride.Service
	Kafka     *ingest.KafkaProducer // optional; nil when no brokers configured
	WSReg     *dispatch.WSRegistry

	logger *slog.Logger
	mux    *mux.Router
}

func NewServer(logger *slog.Logger, dir geo.Directory, rides *ride.Service, kafka *ingest.KafkaProducer, wsreg *dispatch.WSRegistry) *Server {
	s := &Server{
		Directory: dir,
		Rides:     rides,
		Kafka:     kafka,
		WSReg:     wsreg,
		logger:    logger,
		mux:       mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/users/{username}/position", s.handlePositionUpdate).Methods(http.MethodPut)
	api.HandleFunc("/drivers/{username}/availability", s.handleAvailability).Methods(http.MethodPut)
	api.HandleFunc("/riders/{username}/request", s.handleSubmitRequest).Methods(http.MethodPost)
	api.HandleFunc("/riders/{username}/request/{id}", s.handleCancelRequest).Methods(http.MethodDelete)
	api.HandleFunc("/drivers/{username}/trip", s.handleStartTrip).Methods(http.MethodPost)
	api.HandleFunc("/drivers/{username}/trip", s.handleFinishTrip).Methods(http.MethodDelete)

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{username}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handlePositionUpdate(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	var c models.Coord
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request_data")
		return
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		writeError(w, http.StatusBadRequest, "coordinates_out_of_range")
		return
	}
	if err := s.Directory.UpsertPosition(r.Context(), username, c); err != nil {
		s.logger.Error("position upsert", "user", username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if s.Kafka != nil {
		if err := s.Kafka.PublishPosition(username, c); err != nil {
			s.logger.Warn("position publish", "user", username, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "message": "position_updated"})
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	var body struct {
		Available bool `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request_data")
		return
	}
	if err := s.Directory.SetAvailability(r.Context(), username, body.Available); err != nil {
		s.logger.Error("availability update", "driver", username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if body.Available {
		observability.DriversOnline.Inc()
	} else {
		observability.DriversOnline.Dec()
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "available": body.Available})
}

func (s *Server) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	var body struct {
		Pickup  models.Coord `json:"pickup"`
		Dropoff models.Coord `json:"dropoff"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request_data")
		return
	}
	req, err := s.Rides.Submit(r.Context(), username, body.Pickup, body.Dropoff)
	if err != nil {
		s.writeRejection(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  "success",
		"message": "request_submitted",
		"request": req,
	})
}

func (s *Server) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.Rides.Cancel(r.Context(), vars["id"], vars["username"]); err != nil {
		s.writeRejection(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "message": "request_cancelled"})
}

func (s *Server) handleStartTrip(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	var body struct {
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RequestID == "" {
		writeError(w, http.StatusBadRequest, "bad_request_data")
		return
	}
	trip, err := s.Rides.StartTrip(r.Context(), username, body.RequestID)
	if err != nil {
		s.writeRejection(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  "success",
		"message": "trip_started",
		"trip":    trip,
	})
}

func (s *Server) handleFinishTrip(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	receipt, err := s.Rides.FinishTrip(r.Context(), username)
	if err != nil {
		s.writeRejection(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "trip_finished",
		"receipt": receipt,
	})
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "upgrade_failed")
		return
	}
	s.WSReg.Add(username, conn)
}

// writeRejection maps the lifecycle error taxonomy onto HTTP statuses; every
// failure body carries the stable reason code.
func (s *Server) writeRejection(w http.ResponseWriter, err error) {
	var status int
	switch ride.KindOf(err) {
	case ride.KindNotFound:
		status = http.StatusNotFound
	case ride.KindUnauthorized:
		status = http.StatusForbidden
	case ride.KindConflict, ride.KindUnavailable:
		status = http.StatusConflict
	case ride.KindDependency:
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
		s.logger.Error("ride operation failed", "error", err)
	}
	writeError(w, status, ride.CodeOf(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{"status": "fail", "message": code})
}
