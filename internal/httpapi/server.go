package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nrmkhd/namewatch/internal/domain"
	"github.com/nrmkhd/namewatch/internal/query"
	"github.com/nrmkhd/namewatch/internal/repo"
)

type Server struct {
	Logger   *zap.Logger
	Watches  repo.WatchStore
	Logs     *query.Service
	validate *validator.Validate
}

func NewServer(l *zap.Logger, ws repo.WatchStore, logs *query.Service) *Server {
	return &Server{
		Logger:   l,
		Watches:  ws,
		Logs:     logs,
		validate: validator.New(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/logs", s.handleGetLogs)
	r.Post("/usernames", s.handleAddUsername)

	return r
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	watcher := r.URL.Query().Get("watcher")

	if watcher == "" {
		// Static-list deployments serve the latest 24h without a watcher.
		if !s.Logs.HasConfigured() {
			writeError(w, http.StatusBadRequest, "watcher parameter is missing")
			return
		}
		logs, err := s.Logs.Recent(r.Context())
		if err != nil {
			s.Logger.Error("recent_logs_failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, logs)
		return
	}

	logs, err := s.Logs.ForWatcher(r.Context(), watcher)
	if err != nil {
		if errors.Is(err, query.ErrNoUsernames) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.Logger.Error("watcher_logs_failed", zap.String("watcher", watcher), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if logs == nil {
		logs = []domain.CheckLogEntry{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleAddUsername(w http.ResponseWriter, r *http.Request) {
	var p domain.WatchedUsername
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.Watches.Add(r.Context(), p); err != nil {
		s.Logger.Error("add_watch_failed",
			zap.String("username", p.Username),
			zap.String("watcher", p.Watcher),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "could not persist watch entry")
		return
	}

	s.Logger.Info("watch_added",
		zap.String("username", p.Username),
		zap.String("watcher", p.Watcher),
	)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Username watch created successfully",
	})
}

// Every response carries the open CORS header, errors included, so browser
// clients can read the error body.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
