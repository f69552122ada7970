package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"movie-discovery/internal/client"
	"movie-discovery/internal/models"
	"movie-discovery/internal/session"
)

// MovieFetcher loads a single movie for the detail view.
type MovieFetcher interface {
	GetMovie(ctx context.Context, movieID int) (*models.MovieDetail, error)
}

// SessionHandler exposes recommendation sessions over HTTP.
type SessionHandler struct {
	sessions *session.Manager
	movies   MovieFetcher
	validate *validator.Validate
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *session.Manager, movies MovieFetcher) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		movies:   movies,
		validate: validator.New(),
	}
}

// SelectionRequest sets or clears the selected movie. A null movie_id clears it.
type SelectionRequest struct {
	MovieID *int `json:"movie_id" validate:"omitempty,gt=0"`
}

// DislikeRequest names the movie to demote.
type DislikeRequest struct {
	MovieID int `json:"movie_id" validate:"required,gt=0"`
}

// SubmitResponse reports whether a submission started a request.
type SubmitResponse struct {
	Accepted bool `json:"accepted"`
	session.State
}

// Register mounts the session routes on r.
func (h *SessionHandler) Register(r fiber.Router) {
	r.Get("/health", h.Health)
	r.Post("/sessions", h.CreateSession)
	r.Get("/sessions/:id", h.GetSession)
	r.Delete("/sessions/:id", h.DeleteSession)
	r.Get("/sessions/:id/movies", h.ListMovies)
	r.Put("/sessions/:id/selection", h.Select)
	r.Post("/sessions/:id/submit", h.Submit)
	r.Post("/sessions/:id/dislike", h.Dislike)
	r.Get("/movies/:id", h.GetMovieDetail)
}

// Health returns service health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *SessionHandler) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"service":  "session-service",
		"sessions": h.sessions.Len(),
	})
}

// CreateSession mounts a new session and loads its movie list.
// @Summary Create session
// @Tags sessions
// @Produce json
// @Success 201 {object} session.State
// @Router /sessions [post]
func (h *SessionHandler) CreateSession(c fiber.Ctx) error {
	s := h.sessions.Create(c.Context())
	return c.Status(fiber.StatusCreated).JSON(s.State())
}

// GetSession returns the current session state.
// @Summary Get session state
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} session.State
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c fiber.Ctx) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(s.State())
}

// DeleteSession unmounts a session and cancels its pending work.
// @Summary Delete session
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [delete]
func (h *SessionHandler) DeleteSession(c fiber.Ctx) error {
	if err := h.sessions.Delete(c.Params("id")); err != nil {
		return errorJSON(c, fiber.StatusNotFound, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListMovies returns the movie list loaded when the session was created.
// @Summary List selectable movies
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {array} models.MovieSummary
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/movies [get]
func (h *SessionHandler) ListMovies(c fiber.Ctx) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(s.Movies())
}

// Select sets or clears the selected movie.
// @Summary Select movie
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body SelectionRequest true "Selection"
// @Success 200 {object} session.State
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/selection [put]
func (h *SessionHandler) Select(c fiber.Ctx) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}

	var req SelectionRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	if req.MovieID == nil {
		s.ClearSelection()
	} else {
		s.Select(*req.MovieID)
	}
	return c.JSON(s.State())
}

// Submit starts a recommendation request when the session allows it.
// @Summary Request recommendations
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 202 {object} SubmitResponse
// @Success 200 {object} SubmitResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/submit [post]
func (h *SessionHandler) Submit(c fiber.Ctx) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}

	err = s.Submit()
	switch {
	case err == nil:
		return c.Status(fiber.StatusAccepted).JSON(SubmitResponse{Accepted: true, State: s.State()})
	case errors.Is(err, session.ErrClosed):
		return errorJSON(c, fiber.StatusNotFound, session.ErrNotFound.Error())
	default:
		slog.Debug("submit ignored", "session_id", s.ID(), "reason", err)
		return c.JSON(SubmitResponse{Accepted: false, State: s.State()})
	}
}

// Dislike demotes a recommended movie to the back of its bucket.
// @Summary Dislike recommendation
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body DislikeRequest true "Disliked movie"
// @Success 200 {object} session.State
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/dislike [post]
func (h *SessionHandler) Dislike(c fiber.Ctx) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}

	var req DislikeRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	s.Dislike(req.MovieID)
	return c.JSON(s.State())
}

// GetMovieDetail returns the catalog detail of one movie.
// @Summary Get movie detail
// @Tags movies
// @Produce json
// @Param id path int true "Movie ID"
// @Success 200 {object} models.MovieDetail
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /movies/{id} [get]
func (h *SessionHandler) GetMovieDetail(c fiber.Ctx) error {
	id, ok := movieIDParam(c)
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid movie ID")
	}

	detail, err := h.movies.GetMovie(c.Context(), id)
	if err != nil {
		if client.IsNotFound(err) {
			return errorJSON(c, fiber.StatusNotFound, client.Message(err))
		}
		slog.Error("failed to get movie detail", "id", id, "error", err)
		return errorJSON(c, fiber.StatusBadGateway, client.Message(err))
	}
	return c.JSON(detail)
}

// lookup resolves the ":id" session. The returned error is a *fiber.Error
// answered by ErrorHandler.
func (h *SessionHandler) lookup(c fiber.Ctx) (*session.Session, error) {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return s, nil
}

func (h *SessionHandler) bind(c fiber.Ctx, req interface{}) error {
	if err := c.Bind().JSON(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}
