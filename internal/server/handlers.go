package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	tcerrors "github.com/mrz1836/taskclock/internal/errors"
)

// errBadRequest marks malformed ids and bodies.
var errBadRequest = errors.New("bad request")

type addTaskRequest struct {
	Title    string `json:"title"`
	Duration *int   `json:"duration"`
}

type renameRequest struct {
	Title string `json:"title"`
}

type durationRequest struct {
	Duration *int `json:"duration"`
}

type timingRequest struct {
	IsTiming      *bool `json:"is_timing"`
	TimeRemaining *int  `json:"time_remaining"`
}

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Index(c.Request.Context()))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"timers": s.svc.Running(),
	})
}

func (s *Server) handleToggle(c *gin.Context) {
	id, ok := s.taskID(c)
	if !ok {
		return
	}

	stats, err := s.svc.Toggle(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleAdd(c *gin.Context) {
	var req addTaskRequest
	if !s.bind(c, &req) {
		return
	}

	task, err := s.svc.Add(c.Request.Context(), req.Title, req.Duration)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleDelete(c *gin.Context) {
	id, ok := s.taskID(c)
	if !ok {
		return
	}

	stats, err := s.svc.Delete(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleRename(c *gin.Context) {
	id, ok := s.taskID(c)
	if !ok {
		return
	}
	var req renameRequest
	if !s.bind(c, &req) {
		return
	}

	if err := s.svc.Rename(c.Request.Context(), id, req.Title); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleUpdateDuration(c *gin.Context) {
	id, ok := s.taskID(c)
	if !ok {
		return
	}
	var req durationRequest
	if !s.bind(c, &req) {
		return
	}
	if req.Duration == nil {
		s.fail(c, fmt.Errorf("duration is required: %w", errBadRequest))
		return
	}

	if err := s.svc.UpdateDuration(c.Request.Context(), id, *req.Duration); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleUpdateTiming(c *gin.Context) {
	id, ok := s.taskID(c)
	if !ok {
		return
	}
	var req timingRequest
	if !s.bind(c, &req) {
		return
	}
	if req.IsTiming == nil {
		s.fail(c, fmt.Errorf("is_timing is required: %w", errBadRequest))
		return
	}

	started, err := s.svc.UpdateTiming(c.Request.Context(), id, *req.IsTiming, req.TimeRemaining)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "started": started})
}

// taskID parses the :id path parameter, answering 400 when it is not a
// positive integer.
func (s *Server) taskID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		s.fail(c, fmt.Errorf("invalid task id %q: %w", c.Param("id"), errBadRequest))
		return 0, false
	}
	return id, true
}

func (s *Server) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.fail(c, fmt.Errorf("invalid request body: %w: %w", errBadRequest, err))
		return false
	}
	return true
}

// fail writes {"error": msg} with the status matching err.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tcerrors.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, tcerrors.ErrCapacityExceeded),
		errors.Is(err, tcerrors.ErrEmptyValue),
		errors.Is(err, tcerrors.ErrValueOutOfRange),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
