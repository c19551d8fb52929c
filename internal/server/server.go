// Package server exposes the coach over HTTP to the study-platform UI.
package server

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/srgulbay/mikrocoach/internal/coach"
	"github.com/srgulbay/mikrocoach/internal/session"
)

// APIV1Service holds the dependencies for the v1 HTTP API
type APIV1Service struct {
	Coach    *coach.Service
	Sessions *session.Manager
}

// NewAPIV1Service creates the API service
func NewAPIV1Service(coachService *coach.Service, sessions *session.Manager) *APIV1Service {
	return &APIV1Service{
		Coach:    coachService,
		Sessions: sessions,
	}
}

type customValidator struct {
	validator *validator.Validate
}

func (cv *customValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// NewEcho creates and configures the HTTP server
func NewEcho(s *APIV1Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Validator = &customValidator{validator: validator.New()}

	s.RegisterRoutes(e)
	return e
}

// RegisterRoutes sets up the routing for the coach API
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/coach")

	g.GET("/summary", s.GetSummary)
	g.POST("/items", s.AddItem)
	g.GET("/review", s.GetReviewItems)
	g.POST("/review/:entryID", s.SubmitReview)

	g.POST("/session", s.StartSession)
	g.GET("/session", s.GetSession)
	g.POST("/session/reveal", s.RevealCard)
	g.POST("/session/verdict", s.SubmitSessionVerdict)
	g.GET("/session/resume", s.ResumeSession)
	g.DELETE("/session", s.AbandonSession)
}
