package dispatch

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/fieldlink/adapter-sdk/errors"
	"github.com/fieldlink/adapter-sdk/health"
	"github.com/fieldlink/adapter-sdk/model"
)

// Server wires the dispatcher and callback handler to the northbound HTTP
// API. It is the only piece of the runtime that speaks chi.
type Server struct {
	Dispatch *Dispatcher
	Callback *Callback
	Health   *health.Manager

	// Metrics serves GET /api/v1/metrics, normally promhttp.HandlerFor a
	// registry the orchestrator assembled. Nil falls back to the prometheus
	// default global registry.
	Metrics http.Handler

	// Version is reported by GET /api/v1/config for operator diagnostics.
	Version string
}

// Router builds the chi.Router serving the adapter's northbound API.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", s.handlePing)
		r.Get("/config", s.handleConfig)
		r.Get("/metrics", s.handleMetrics)

		r.Post("/discovery", s.handleDiscovery)

		r.Put("/callback", s.handleCallbackUpsert)
		r.Post("/callback", s.handleCallbackUpsert)
		r.Delete("/callback", s.handleCallbackDelete)

		r.Route("/device", func(r chi.Router) {
			r.Get("/all/{command}", s.handleGetAll)
			r.Put("/all/{command}", s.handleSetAll)
			r.Get("/{selKind}/{selVal}/{command}", s.handleGetOne)
			r.Put("/{selKind}/{selVal}/{command}", s.handleSetOne)
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).Debug("[dispatch] request received")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	log.WithFields(log.Fields{"status": status, "error": err}).Warn("[dispatch] request failed")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// resolveDevice resolves the {selKind}/{selVal} path segments of a single
// device route against the registry.
func (s *Server) resolveDevice(r *http.Request) (*model.Device, error) {
	kind := chi.URLParam(r, "selKind")
	val := chi.URLParam(r, "selVal")

	var dev *model.Device
	switch kind {
	case "id":
		dev = s.Dispatch.Registry.GetByID(val)
	case "name":
		dev = s.Dispatch.Registry.GetByName(val)
	default:
		return nil, errors.New(errors.KindInvalidArg, "unrecognized device selector %q", kind)
	}
	if dev == nil {
		return nil, errors.New(errors.KindHTTPNotFound, "device %s/%s not found", kind, val)
	}
	return dev, nil
}

func (s *Server) handleGetOne(w http.ResponseWriter, r *http.Request) {
	dev, err := s.resolveDevice(r)
	if err != nil {
		writeError(w, err)
		return
	}
	command := chi.URLParam(r, "command")

	readings, err := s.Dispatch.Get(dev, command)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"device": dev.Name, "readings": readings})
}

func (s *Server) handleSetOne(w http.ResponseWriter, r *http.Request) {
	dev, err := s.resolveDevice(r)
	if err != nil {
		writeError(w, err)
		return
	}
	command := chi.URLParam(r, "command")

	body, err := decodePutBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.Dispatch.Set(dev, command, body); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetAll(w http.ResponseWriter, r *http.Request) {
	command := chi.URLParam(r, "command")
	results := s.Dispatch.GetAll(command)
	writeJSON(w, allResultsStatus(results), allResultsResponse(results))
}

func (s *Server) handleSetAll(w http.ResponseWriter, r *http.Request) {
	command := chi.URLParam(r, "command")
	body, err := decodePutBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	results := s.Dispatch.SetAll(command, body)
	writeJSON(w, allResultsStatus(results), allResultsResponse(results))
}

// allResultsStatus reports 200 if at least one device in a selector=all
// fan-out succeeded, and 500 only if every device failed.
func allResultsStatus(results []AllResult) int {
	for _, res := range results {
		if res.Err == nil {
			return http.StatusOK
		}
	}
	if len(results) > 0 {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

// allResultsResponse maps a selector=all fan-out into a JSON-friendly shape
// that reports each device's outcome rather than collapsing partial failures
// into a single error.
func allResultsResponse(results []AllResult) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(results))
	for _, res := range results {
		entry := map[string]interface{}{"device": res.Device}
		if res.Err != nil {
			entry["error"] = res.Err.Error()
		} else {
			entry["readings"] = res.Readings
		}
		out = append(out, entry)
	}
	return out
}

func decodePutBody(r *http.Request) (map[string]string, error) {
	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.Wrap(errors.KindInvalidArg, err, "failed to read request body")
	}
	if len(data) == 0 {
		return map[string]string{}, nil
	}
	var body map[string]string
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, errors.Wrap(errors.KindInvalidArg, err, "invalid put body")
	}
	return body, nil
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	go s.Dispatch.Driver.Discover(func(dev *model.Device) error {
		return s.Dispatch.Registry.Add(dev)
	})
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleCallbackUpsert(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, errors.Wrap(errors.KindInvalidArg, err, "failed to read callback body"))
		return
	}
	body, err := DecodeCallbackBody(data)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Callback.Upsert(r.Context(), body); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleCallbackDelete(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, errors.Wrap(errors.KindInvalidArg, err, "failed to read callback body"))
		return
	}
	body, err := DecodeCallbackBody(data)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Callback.Delete(r.Context(), body); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if !s.Health.Healthy() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"checks": s.Health.Status()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"checks": s.Health.Status()})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.Version})
}

// handleMetrics serves s.Metrics if the caller assembled one (normally
// promhttp.HandlerFor wrapping a registry with this package's and
// workerpool's collectors registered). Falls back to the default global
// registry so the endpoint is never empty.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.Metrics != nil {
		s.Metrics.ServeHTTP(w, r)
		return
	}
	promhttp.Handler().ServeHTTP(w, r)
}
