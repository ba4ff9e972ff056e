package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/tempo/plugin/ai/session"
)

type createSessionRequest struct {
	Title string `json:"title"`
}

func (s *APIV1Service) createSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sess := s.store.CreateSession(userID(c), req.Title)
	return c.JSON(http.StatusCreated, sess)
}

func (s *APIV1Service) listSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.ListSessions(userID(c)))
}

func (s *APIV1Service) getSession(c echo.Context) error {
	sess := s.store.GetSession(c.Param("id"))
	if sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, sess)
}

func (s *APIV1Service) deleteSession(c echo.Context) error {
	if !s.store.DeleteSession(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *APIV1Service) exportSession(c echo.Context) error {
	export := s.store.ExportSession(c.Param("id"))
	if export == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, export)
}

func (s *APIV1Service) importSession(c echo.Context) error {
	var export session.SessionExport
	if err := c.Bind(&export); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid export body")
	}
	if err := s.store.ImportSession(&export); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, export.Session)
}

type createThreadRequest struct {
	ParentID string                 `json:"parentId"`
	Metadata session.ThreadMetadata `json:"metadata"`
}

func (s *APIV1Service) createThread(c echo.Context) error {
	var req createThreadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	thread, err := s.store.CreateThread(c.Param("id"), req.ParentID, req.Metadata)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, thread)
}

func (s *APIV1Service) listMessages(c echo.Context) error {
	messages := s.store.ListMessages(c.Param("id"))
	if messages == nil {
		messages = []*session.Message{}
	}
	return c.JSON(http.StatusOK, messages)
}

func (s *APIV1Service) searchMessages(c echo.Context) error {
	sessionID := c.Param("id")
	query := c.QueryParam("q")

	if fromStr, toStr := c.QueryParam("from"), c.QueryParam("to"); fromStr != "" && toStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from timestamp")
		}
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to timestamp")
		}
		return c.JSON(http.StatusOK, s.store.MessagesInRange(sessionID, from, to))
	}

	return c.JSON(http.StatusOK, s.store.SearchMessages(sessionID, query))
}
