package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/examcore/internal/apperr"
	"github.com/abhisek/examcore/internal/grading"
	"github.com/abhisek/examcore/internal/session"
)

const defaultHistoryLimit = 20

func (s *Server) health(c *gin.Context) {
	if err := s.svc.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "store": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": "up"})
}

// GET /v1/users/:user/queue?size=N&weak_ratio=R&domain=a&domain=b
func (s *Server) getQueue(c *gin.Context) {
	req := session.QueueRequest{
		UserID:     c.Param("user"),
		TargetSize: s.svc.Config().DefaultTargetSize,
		Domains:    c.QueryArray("domain"),
	}
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(c, apperr.Validation("size", "not an integer: %q", raw))
			return
		}
		req.TargetSize = n
	}
	if raw := c.Query("weak_ratio"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeError(c, apperr.Validation("weak_ratio", "not a number: %q", raw))
			return
		}
		req.WeakRatio = &r
	}

	q, err := s.svc.GetSessionQueue(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

type attemptRequest struct {
	ItemID      string          `json:"item_id" binding:"required"`
	Answer      json.RawMessage `json:"answer" binding:"required"`
	SubmittedAt *time.Time      `json:"submitted_at"`
}

// POST /v1/users/:user/attempts
func (s *Server) submitAttempt(c *gin.Context) {
	var req attemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.Validation("body", "%v", err))
		return
	}
	answer, err := grading.ParseAnswer(req.Answer)
	if err != nil {
		s.writeError(c, err)
		return
	}

	a := session.Attempt{
		UserID: c.Param("user"),
		ItemID: req.ItemID,
		Answer: answer,
	}
	if req.SubmittedAt != nil {
		a.SubmittedAt = *req.SubmittedAt
	}

	res, err := s.svc.SubmitAttempt(c.Request.Context(), a)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /v1/users/:user/attempts?limit=N
func (s *Server) listAttempts(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(c, apperr.Validation("limit", "must be a positive integer, got %q", raw))
			return
		}
		limit = n
	}

	recent, err := s.svc.RecentAttempts(c.Request.Context(), c.Param("user"), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": recent})
}

// GET /v1/users/:user/mastery
func (s *Server) getMastery(c *gin.Context) {
	report, err := s.svc.GetMasteryReport(c.Request.Context(), c.Param("user"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GET /v1/users/:user/items/:item/status
func (s *Server) itemStatus(c *gin.Context) {
	st, err := s.svc.ItemStatus(c.Request.Context(), c.Param("user"), c.Param("item"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
