package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-lookup/internal/geolocation"
	"github.com/i474232898/weather-lookup/internal/lookup"
	"github.com/i474232898/weather-lookup/internal/store"
	"github.com/i474232898/weather-lookup/internal/weather"
)

var validate = validator.New()

// SessionFactory builds the orchestrator backing a new session.
type SessionFactory func() *lookup.Orchestrator

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, sessions *store.MemoryStore, newOrchestrator SessionFactory) {
	h := &handler{sessions: sessions, newOrchestrator: newOrchestrator}

	v1 := app.Group("/api/v1")

	v1.Post("/sessions", h.createSession)
	v1.Get("/sessions/:id", h.getSession)
	v1.Delete("/sessions/:id", h.deleteSession)
	v1.Put("/sessions/:id/query", h.setQuery)
	v1.Post("/sessions/:id/init", h.initLookup)
	v1.Post("/sessions/:id/retry", h.retryLookup)
	v1.Post("/sessions/:id/search", h.searchCity)
}

type handler struct {
	sessions        *store.MemoryStore
	newOrchestrator SessionFactory
}

// sessionResponse is the body returned by every session endpoint.
type sessionResponse struct {
	ID    string       `json:"id"`
	State lookup.State `json:"state"`
	View  weather.View `json:"view"`
}

// queryRequest is the body of the query and search endpoints.
type queryRequest struct {
	Query string `json:"query" validate:"max=100"`
}

// viewQuery holds query parameters shaping the view model.
type viewQuery struct {
	TZ string `validate:"omitempty,timezone"`
}

func (h *handler) createSession(c *fiber.Ctx) error {
	sess, err := h.sessions.Create(h.newOrchestrator())
	if err != nil {
		if errors.Is(err, store.ErrFull) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "too many active sessions")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to create session")
	}

	resp, err := render(c, sess)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *handler) getSession(c *fiber.Ctx) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}
	resp, err := render(c, sess)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *handler) deleteSession(c *fiber.Ctx) error {
	if err := h.sessions.Delete(c.Params("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to delete session")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handler) setQuery(c *fiber.Ctx) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}

	var req queryRequest
	if err := bindQuery(c, &req); err != nil {
		return err
	}
	sess.Orchestrator.SetSearchQuery(req.Query)

	resp, err := render(c, sess)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *handler) initLookup(c *fiber.Ctx) error {
	return h.runEntry(c, func(o *lookup.Orchestrator) error {
		ctx := geolocation.WithClientIP(c.UserContext(), c.IP())
		return o.Init(ctx)
	})
}

func (h *handler) retryLookup(c *fiber.Ctx) error {
	return h.runEntry(c, func(o *lookup.Orchestrator) error {
		ctx := geolocation.WithClientIP(c.UserContext(), c.IP())
		return o.RetryGeolocation(ctx)
	})
}

func (h *handler) searchCity(c *fiber.Ctx) error {
	var req *queryRequest
	if len(c.Body()) > 0 {
		req = &queryRequest{}
		if err := bindQuery(c, req); err != nil {
			return err
		}
	}

	return h.runEntry(c, func(o *lookup.Orchestrator) error {
		if req != nil {
			return o.SearchCity(c.UserContext(), req.Query)
		}
		return o.SearchByCity(c.UserContext())
	})
}

// runEntry runs an entry point to completion. Classified lookup failures are
// part of the returned state, not HTTP errors.
func (h *handler) runEntry(c *fiber.Ctx, run func(o *lookup.Orchestrator) error) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}

	if err := run(sess.Orchestrator); err != nil {
		if errors.Is(err, lookup.ErrBusy) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		if _, ok := weather.AsAppError(err); !ok {
			return fiber.NewError(fiber.StatusInternalServerError, "lookup failed")
		}
	}

	resp, err := render(c, sess)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *handler) lookupSession(c *fiber.Ctx) (*store.Session, error) {
	sess, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "failed to load session")
	}
	return sess, nil
}

func bindQuery(c *fiber.Ctx, req *queryRequest) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func render(c *fiber.Ctx, sess *store.Session) (sessionResponse, error) {
	q := viewQuery{TZ: c.Query("tz")}
	if err := validate.Struct(q); err != nil {
		return sessionResponse{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	loc := time.UTC
	if q.TZ != "" {
		l, err := time.LoadLocation(q.TZ)
		if err != nil {
			return sessionResponse{}, fiber.NewError(fiber.StatusBadRequest, "invalid tz")
		}
		loc = l
	}

	st := sess.Orchestrator.State()
	return sessionResponse{
		ID:    sess.ID,
		State: st,
		View:  weather.NewView(st.Weather, loc),
	}, nil
}
