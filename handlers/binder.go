package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/klbrun/klbapi/engine"
)

type bindRaceResponse struct {
	Bound      int                 `json:"bound"`
	Unresolved []engine.Unresolved `json:"unresolved"`
}

// BindRace runs the result binder over one race and returns the
// unresolved queue for manual review.
func (h *Handler) BindRace(c echo.Context) error {
	raceID, err := strconv.Atoi(c.QueryParam("raceID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing or invalid raceID param")
	}

	bound, unresolved, err := h.engine.BindRaceResults(c.Request().Context(), raceID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if unresolved == nil {
		unresolved = []engine.Unresolved{}
	}
	return c.JSON(http.StatusOK, bindRaceResponse{Bound: bound, Unresolved: unresolved})
}

type bindResultRequest struct {
	ResultID      int `json:"resultID"`
	ParticipantID int `json:"participantID"`
}

// BindResult creates a scored result from a timing result by explicit
// admin action.
func (h *Handler) BindResult(c echo.Context) error {
	var req bindResultRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ResultID == 0 || req.ParticipantID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "resultID and participantID are required")
	}

	actor, _ := c.Get("username").(string)
	sr, err := h.engine.BindResultToParticipant(c.Request().Context(), req.ResultID, req.ParticipantID, actor)
	switch {
	case errors.Is(err, engine.ErrDuplicateScoredResult):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrInactiveYear):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	case sr == nil:
		// Outside the eligibility window: excluded, not an error.
		return c.JSON(http.StatusOK, map[string]string{"status": "not eligible"})
	}
	return c.JSON(http.StatusCreated, sr)
}

// UnbindResult deletes a scored result and recomputes its participant.
func (h *Handler) UnbindResult(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid scored result id")
	}

	actor, _ := c.Get("username").(string)
	if err := h.engine.DeleteScoredResult(c.Request().Context(), id, actor); err != nil {
		if errors.Is(err, engine.ErrInactiveYear) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusOK)
}
