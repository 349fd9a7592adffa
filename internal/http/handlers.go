package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/storage"
)

type dashboardJSON struct {
	Income  string         `json:"income"`
	Expense string         `json:"expense"`
	Balance string         `json:"balance"`
	Recent  []movementJSON `json:"recent"`
}

type listJSON struct {
	Filter    filterJSON     `json:"filter"`
	Count     int            `json:"count"`
	Movements []movementJSON `json:"movements"`
}

type filterJSON struct {
	Type    string `json:"type,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Concept string `json:"concept,omitempty"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.api.Dashboard(r.Context())
	if err != nil {
		s.errors.respond(w, r, log.OpBalance, err)
		return
	}

	NewJSONResponse().Body(dashboardJSON{
		Income:  d.Balance.Income.String(),
		Expense: d.Balance.Expense.String(),
		Balance: d.Balance.Total().String(),
		Recent:  toMovementsJSON(d.Recent),
	}).Write(w)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	f := storage.FilterFromQuery(r.URL.Query())

	items, err := s.api.ListMovements(r.Context(), f)
	if err != nil {
		s.errors.respond(w, r, log.OpList, err)
		return
	}

	NewJSONResponse().Body(listJSON{
		Filter: filterJSON{
			Type:    f.Type,
			From:    f.DateFrom,
			To:      f.DateTo,
			Concept: f.Concept,
		},
		Count:     len(items),
		Movements: toMovementsJSON(items),
	}).Write(w)
}

// handleCreate returns a handler storing a movement of the fixed type typ.
func (s *Server) handleCreate(typ core.MovementType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parser := NewRequestBodyParser(w, r)
		if err := parser.Parse(); err != nil {
			BadRequestError("Cuerpo de la solicitud no válido").Write(w)
			return
		}

		m, err := parseMovementInput(parser, typ)
		if err != nil {
			s.respondInput(w, r, log.OpCreate, err)
			return
		}

		created, err := s.api.CreateMovement(r.Context(), m)
		if err != nil {
			s.errors.respond(w, r, log.OpCreate, err)
			return
		}

		NewJSONResponse().
			Status(http.StatusCreated).
			Header("Location", "/movements/"+strconv.FormatInt(created.ID, 10)).
			Body(toMovementJSON(created)).
			Write(w)
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.respondInput(w, r, log.OpRead, err)
		return
	}

	m, err := s.api.GetMovement(r.Context(), id)
	if err != nil {
		s.errors.respond(w, r, log.OpRead, err)
		return
	}

	NewJSONResponse().Body(toMovementJSON(m)).Write(w)
}

// handleUpdate loads the stored movement and overwrites the fields present
// in the body.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.respondInput(w, r, log.OpUpdate, err)
		return
	}

	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Cuerpo de la solicitud no válido").Write(w)
		return
	}

	current, err := s.api.GetMovement(r.Context(), id)
	if err != nil {
		s.errors.respond(w, r, log.OpUpdate, err)
		return
	}

	m, err := applyMovementUpdate(parser, current)
	if err != nil {
		s.respondInput(w, r, log.OpUpdate, err)
		return
	}

	if err := s.api.UpdateMovement(r.Context(), m); err != nil {
		s.errors.respond(w, r, log.OpUpdate, err)
		return
	}

	NewJSONResponse().Body(toMovementJSON(m)).Write(w)
}

// handleDelete removes a movement. Deleting an unknown id still succeeds.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.respondInput(w, r, log.OpDelete, err)
		return
	}

	if err := s.api.DeleteMovement(r.Context(), id); err != nil {
		s.errors.respond(w, r, log.OpDelete, err)
		return
	}

	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) respondInput(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ie *inputError
	if errors.As(err, &ie) {
		log.FromContext(r.Context()).InfoContext(r.Context(), "Rejected request input",
			log.FieldOperation, op,
			log.FieldErrorType, log.ErrorTypeValidation,
			log.FieldError, err)
		UnprocessableEntityError(fmt.Sprintf("Campo no válido: %s", ie.field)).Write(w)
		return
	}
	s.errors.respond(w, r, op, err)
}
