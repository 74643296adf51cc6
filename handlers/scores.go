package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/klbrun/klbapi/engine"
	"github.com/klbrun/klbapi/models"
)

// RecomputeYear triggers a full-year recomputation. Long-running for
// large years; the request blocks until done.
func (h *Handler) RecomputeYear(c echo.Context) error {
	year, err := yearParam(c)
	if err != nil {
		return err
	}
	if err := h.engine.RecomputeYear(c.Request().Context(), year); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusAccepted)
}

type recomputePersonsRequest struct {
	Year      int   `json:"year"`
	PersonIDs []int `json:"personIDs"`
}

// RecomputePersons triggers the targeted recomputation path for a set of
// touched persons.
func (h *Handler) RecomputePersons(c echo.Context) error {
	var req recomputePersonsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Year == 0 || len(req.PersonIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "year and personIDs are required")
	}
	if err := h.engine.RecomputeForPersons(c.Request().Context(), req.Year, req.PersonIDs); err != nil {
		if errors.Is(err, engine.ErrInactiveYear) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusAccepted)
}

// RecomputeParticipant recomputes a single participant through the
// guarded active-year path.
func (h *Handler) RecomputeParticipant(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid participant id")
	}
	if err := h.engine.RecomputeParticipant(c.Request().Context(), id); err != nil {
		if errors.Is(err, engine.ErrInactiveYear) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusAccepted)
}

// RankTeams reruns the team ranking passes for a year without touching
// totals.
func (h *Handler) RankTeams(c echo.Context) error {
	year, err := yearParam(c)
	if err != nil {
		return err
	}
	if err := h.engine.RankTeams(c.Request().Context(), year); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusAccepted)
}

// RankParticipants reruns the individual ranking passes for a year.
func (h *Handler) RankParticipants(c echo.Context) error {
	year, err := yearParam(c)
	if err != nil {
		return err
	}
	if err := h.engine.RankParticipants(c.Request().Context(), year); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusAccepted)
}

// ScoreChanges returns the audit trail for a year, newest first.
func (h *Handler) ScoreChanges(c echo.Context) error {
	year, err := yearParam(c)
	if err != nil {
		return err
	}

	var changes []models.ScoreChange
	q := h.db.NewSelect().Model(&changes).
		Where("sc.year = ?", year).
		OrderExpr("sc.created_at DESC").
		Limit(500)
	if teamID := c.QueryParam("teamID"); teamID != "" {
		q = q.Where("sc.team_id = ?", teamID)
	}
	if err := q.Scan(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, changes)
}

func yearParam(c echo.Context) (int, error) {
	raw := c.QueryParam("year")
	if raw == "" {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "missing year param")
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid year param")
	}
	return year, nil
}
