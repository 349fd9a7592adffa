package http

import (
	"net/http"

	"ledger/internal/log"
	"ledger/internal/storage"
)

type healthJSON struct {
	Status string `json:"status"`
	Engine string `json:"engine"`
	storage.DSNInfo
	Startup storage.StartupStatus `json:"startup"`
}

type healthErrorJSON struct {
	Status string `json:"status"`
	Engine string `json:"engine"`
	Detail string `json:"detail"`
}

// handleHealth runs a trivial query through the configured engine.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.api.Ping(r.Context()); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Health check failed",
			log.FieldEngine, s.cfg.Engine,
			log.FieldErrorType, storage.ErrorType(err),
			log.FieldError, err)
		NewJSONResponse().
			Status(http.StatusInternalServerError).
			Body(healthErrorJSON{
				Status: "error",
				Engine: s.cfg.Engine.String(),
				Detail: err.Error(),
			}).
			Write(w)
		return
	}

	NewJSONResponse().Body(healthJSON{
		Status:  "ok",
		Engine:  s.cfg.Engine.String(),
		DSNInfo: storage.DescribeDSN(s.cfg.DatabaseURL),
		Startup: s.cfg.Startup,
	}).Write(w)
}

// handleLiveness reports that the process is serving requests.
func handleLiveness(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}
