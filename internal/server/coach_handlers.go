package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/srgulbay/mikrocoach/internal/coach"
	"github.com/srgulbay/mikrocoach/pkg/models"
)

// AddItemRequest registers one learning item with the coach
type AddItemRequest struct {
	UserID   int64           `json:"user_id" validate:"required"`
	ItemType models.ItemType `json:"item_type" validate:"required"`
	ItemID   int64           `json:"item_id" validate:"required"`
	Context  string          `json:"context"`
}

// SubmitReviewRequest carries a correctness verdict for one entry.
// WasCorrect is a pointer so an omitted field fails validation instead
// of silently reading as false.
type SubmitReviewRequest struct {
	WasCorrect *bool `json:"was_correct" validate:"required"`
}

// GetSummary returns the coach dashboard aggregate
// GET /api/v1/coach/summary?user_id=
func (s *APIV1Service) GetSummary(c echo.Context) error {
	userID, err := queryUserID(c)
	if err != nil {
		return err
	}

	summary, err := s.Coach.Summary(c.Request().Context(), userID)
	if err != nil {
		log.Printf("Failed to build summary for user %d: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load summary"})
	}
	return c.JSON(http.StatusOK, summary)
}

// AddItem puts an item under coach tracking
// POST /api/v1/coach/items
func (s *APIV1Service) AddItem(c echo.Context) error {
	var req AddItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if !req.ItemType.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown item type")
	}

	entry, err := s.Coach.AddItem(c.Request().Context(), req.UserID, req.ItemType, req.ItemID, req.Context)
	if err != nil {
		log.Printf("Failed to add item %s/%d for user %d: %v", req.ItemType, req.ItemID, req.UserID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to add item"})
	}
	return c.JSON(http.StatusOK, entry)
}

// GetReviewItems returns the resolved due batch for a user
// GET /api/v1/coach/review?user_id=&type=&limit=
func (s *APIV1Service) GetReviewItems(c echo.Context) error {
	userID, err := queryUserID(c)
	if err != nil {
		return err
	}

	filter := models.ItemType(c.QueryParam("type"))
	if filter != "" && !filter.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown item type")
	}

	limit := 0
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
	}
	if limit == 0 {
		limit = s.Coach.BatchSize(c.Request().Context(), userID)
	}

	batch, err := s.Coach.ReviewItems(c.Request().Context(), userID, filter, limit)
	if err != nil {
		log.Printf("Failed to select review items for user %d: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load review items"})
	}
	return c.JSON(http.StatusOK, batch)
}

// SubmitReview applies a verdict directly to one ledger entry
// POST /api/v1/coach/review/:entryID
func (s *APIV1Service) SubmitReview(c echo.Context) error {
	entryID, err := strconv.ParseInt(c.Param("entryID"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid entry id")
	}

	var req SubmitReviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	entry, err := s.Coach.SubmitReview(c.Request().Context(), entryID, *req.WasCorrect)
	if errors.Is(err, coach.ErrEntryNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "entry not found"})
	}
	if err != nil {
		log.Printf("Failed to submit review for entry %d: %v", entryID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to record review"})
	}
	return c.JSON(http.StatusOK, entry)
}

// queryUserID parses the required user_id query parameter
func queryUserID(c echo.Context) (int64, error) {
	userIDStr := c.QueryParam("user_id")
	if userIDStr == "" {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid user_id")
	}
	return userID, nil
}
