package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) listTeams(c echo.Context) error {
	return c.JSON(http.StatusOK, s.teams.List())
}

func (s *Server) getTeam(c echo.Context) error {
	team, err := s.teams.Get(c.Param("key"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Team not found")
	}
	return c.JSON(http.StatusOK, team)
}
