package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mailcouncil/internal/debate"
	"github.com/mailcouncil/internal/tasks"
	"github.com/mailcouncil/internal/teams"
	"github.com/mailcouncil/pkg/models"
)

// createDebateRequest is the submission payload. At most one of email and
// query may be set; an empty work item is accepted and debated as-is.
type createDebateRequest struct {
	Team     string        `json:"team"`
	SourceID string        `json:"source_id"`
	Email    *models.Email `json:"email"`
	Query    string        `json:"query"`
}

func (s *Server) createDebate(c echo.Context) error {
	var req createDebateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Team == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "team is required")
	}
	if req.Email != nil && req.Query != "" {
		return echo.NewHTTPError(http.StatusBadRequest, "provide either email or query, not both")
	}

	item := models.WorkItem{SourceID: req.SourceID}
	if req.Email != nil {
		item.Kind = models.WorkItemEmail
		email := *req.Email
		item.Email = &email
	} else {
		item.Kind = models.WorkItemQuery
		item.Query = req.Query
	}

	taskID, err := s.engine.StartDebate(req.Team, item)
	if err != nil {
		if errors.Is(err, teams.ErrTeamNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to start debate")
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"task_id": taskID,
	})
}

func (s *Server) listDebates(c echo.Context) error {
	return c.JSON(http.StatusOK, s.tracker.List())
}

func (s *Server) getDebate(c echo.Context) error {
	task, err := s.tracker.Get(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Task not found")
	}
	return c.JSON(http.StatusOK, task)
}

// cancelDebate requests cooperative cancellation. The task keeps running
// until its current turn finishes, so success is 202, not 200.
func (s *Server) cancelDebate(c echo.Context) error {
	err := s.engine.Cancel(c.Param("id"))
	switch {
	case err == nil:
		return c.JSON(http.StatusAccepted, map[string]string{
			"status": "cancelling",
		})
	case errors.Is(err, tasks.ErrTaskNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Task not found")
	case errors.Is(err, debate.ErrTaskNotRunning):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to cancel debate")
	}
}
