package server

import (
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/srgulbay/mikrocoach/internal/session"
	"github.com/srgulbay/mikrocoach/pkg/models"
)

// StartSessionRequest opens a review session for a user
type StartSessionRequest struct {
	UserID int64           `json:"user_id" validate:"required"`
	Type   models.ItemType `json:"type"`
	Limit  int             `json:"limit"`
}

// SessionUserRequest identifies the session owner for reveal/abandon
type SessionUserRequest struct {
	UserID int64 `json:"user_id" validate:"required"`
}

// SessionVerdictRequest grades the current entry of a session
type SessionVerdictRequest struct {
	UserID     int64 `json:"user_id" validate:"required"`
	WasCorrect *bool `json:"was_correct" validate:"required"`
}

// StartSession opens a session, replacing any previous one
// POST /api/v1/coach/session
func (s *APIV1Service) StartSession(c echo.Context) error {
	var req StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Type != "" && !req.Type.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown item type")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.Coach.BatchSize(c.Request().Context(), req.UserID)
	}

	snap, err := s.Sessions.Start(c.Request().Context(), req.UserID, req.Type, limit)
	if err != nil {
		log.Printf("Failed to start session for user %d: %v", req.UserID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to start session"})
	}
	return c.JSON(http.StatusOK, snap)
}

// GetSession returns the current session snapshot
// GET /api/v1/coach/session?user_id=
func (s *APIV1Service) GetSession(c echo.Context) error {
	userID, err := queryUserID(c)
	if err != nil {
		return err
	}

	snap, err := s.Sessions.Get(userID)
	if errors.Is(err, session.ErrNoSession) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no active session"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load session"})
	}
	return c.JSON(http.StatusOK, snap)
}

// RevealCard shows the back of the current flashcard
// POST /api/v1/coach/session/reveal
func (s *APIV1Service) RevealCard(c echo.Context) error {
	var req SessionUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	snap, err := s.Sessions.Reveal(req.UserID)
	if errors.Is(err, session.ErrNoSession) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no active session"})
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, snap)
}

// SubmitSessionVerdict grades the current entry and advances
// POST /api/v1/coach/session/verdict
func (s *APIV1Service) SubmitSessionVerdict(c echo.Context) error {
	var req SessionVerdictRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	snap, err := s.Sessions.SubmitVerdict(c.Request().Context(), req.UserID, *req.WasCorrect)
	if errors.Is(err, session.ErrNoSession) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no active session"})
	}
	if err != nil {
		log.Printf("Failed to apply verdict for user %d: %v", req.UserID, err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, snap)
}

// ResumeSession consumes a detour return. The response carries the
// cleaned session address so the UI can replace the visible location
// without reloading, making a replayed return a no-op.
// GET /api/v1/coach/session/resume?user_id=&entry=&correct=&type=
func (s *APIV1Service) ResumeSession(c echo.Context) error {
	userID, err := queryUserID(c)
	if err != nil {
		return err
	}

	token, ok, err := session.DecodeReturn(c.QueryParams())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "no handoff verdict present")
	}

	snap, err := s.Sessions.Resume(c.Request().Context(), userID, *token)
	if err != nil {
		log.Printf("Failed to resume session for user %d: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to resume session"})
	}

	// Rebuild the UI's session address from the incoming query, minus
	// the API-only user_id, and strip the consumed verdict from it
	uiQuery := url.Values{}
	for key, values := range c.QueryParams() {
		if key == "user_id" {
			continue
		}
		uiQuery[key] = values
	}
	resume, err := session.StripReturn("/coach/session?" + uiQuery.Encode())
	if err != nil {
		resume = session.ReturnLocation(snap.Filter)
	}
	snap.ResumeLocation = resume
	return c.JSON(http.StatusOK, snap)
}

// AbandonSession drops the user's session
// DELETE /api/v1/coach/session?user_id=
func (s *APIV1Service) AbandonSession(c echo.Context) error {
	userID, err := queryUserID(c)
	if err != nil {
		return err
	}
	s.Sessions.Abandon(userID)
	return c.NoContent(http.StatusNoContent)
}
