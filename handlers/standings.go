package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/klbrun/klbapi/models"
)

// Teams returns the year's team standings ordered by overall place.
func (h *Handler) Teams(c echo.Context) error {
	year, err := yearParam(c)
	if err != nil {
		return err
	}

	var teams []models.Team
	if err := h.db.NewSelect().Model(&teams).
		Where("t.year = ?", year).
		OrderExpr("t.place_overall ASC NULLS LAST, t.name ASC").
		Scan(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, teams)
}

// participantRow is a flat scan target for the standings join query.
type participantRow struct {
	ParticipantID int     `bun:"participant_id" json:"participantID"`
	LastName      string  `bun:"last_name" json:"lastName"`
	FirstName     string  `bun:"first_name" json:"firstName"`
	BirthYear     int     `bun:"birth_year" json:"birthYear"`
	Gender        string  `bun:"gender" json:"gender"`
	TeamName      *string `bun:"team_name" json:"teamName,omitempty"`
	ScoreSum      string  `bun:"score_sum" json:"scoreSum"`
	BonusSum      string  `bun:"bonus_sum" json:"bonusSum"`
	NStarts       int     `bun:"n_starts" json:"nStarts"`
	PlaceOverall  *int    `bun:"place_overall" json:"placeOverall,omitempty"`
	PlaceGender   *int    `bun:"place_gender" json:"placeGender,omitempty"`
	PlaceGroup    *int    `bun:"place_group" json:"placeGroup,omitempty"`
	GroupName     *string `bun:"group_name" json:"groupName,omitempty"`
}

const participantsJoinSQL = `
SELECT
	pt.participant_id, p.last_name, p.first_name, p.birth_year, p.gender,
	t.name AS team_name,
	pt.score_sum::text AS score_sum, pt.bonus_sum::text AS bonus_sum, pt.n_starts,
	pt.place_overall, pt.place_gender, pt.place_group,
	ag.name AS group_name
FROM participants pt
INNER JOIN persons p ON pt.person_id = p.person_id
LEFT JOIN teams t ON pt.team_id = t.team_id
LEFT JOIN age_groups ag ON pt.age_group_id = ag.age_group_id
`

// Participants returns the year's individual standings.
func (h *Handler) Participants(c echo.Context) error {
	year, err := yearParam(c)
	if err != nil {
		return err
	}

	q := participantsJoinSQL + `WHERE pt.year = ?`
	args := []interface{}{year}
	if g := c.QueryParam("gender"); g != "" {
		q += ` AND p.gender = ?`
		args = append(args, g)
	}
	q += ` ORDER BY pt.place_overall ASC NULLS LAST, p.last_name, p.first_name`

	var rows []participantRow
	if err := h.db.NewRaw(q, args...).Scan(c.Request().Context(), &rows); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rows)
}

// ParticipantResults returns one participant's scored-result pool.
func (h *Handler) ParticipantResults(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid participant id")
	}

	var srs []models.ScoredResult
	if err := h.db.NewSelect().Model(&srs).
		Where("sr.participant_id = ?", id).
		OrderExpr("sr.start_time ASC, sr.scored_result_id ASC").
		Scan(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, srs)
}
