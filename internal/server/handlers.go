package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/abhisek/skillpath/internal/catalog"
	"github.com/abhisek/skillpath/internal/mastery"
	"github.com/abhisek/skillpath/internal/question"
	"github.com/abhisek/skillpath/internal/session"
)

// questionPayload is a question as shown to the learner, without its answer.
type questionPayload struct {
	ID      int      `json:"id"`
	Skill   string   `json:"skill"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options,omitempty"`
}

func toPayload(q question.Question) *questionPayload {
	return &questionPayload{ID: q.ID, Skill: q.Skill, Prompt: q.Prompt, Options: q.Options}
}

type nextResponse struct {
	SessionID string           `json:"session_id"`
	Question  *questionPayload `json:"question,omitempty"`
	Complete  bool             `json:"complete,omitempty"`
	Standings []mastery.Entry  `json:"standings"`
}

type submitRequest struct {
	QuestionID *int   `json:"question_id" binding:"required"`
	Answer     string `json:"answer"`
	Learner    string `json:"learner"`
}

type submitResponse struct {
	SessionID     string          `json:"session_id"`
	Verdict       string          `json:"verdict"`
	CorrectAnswer string          `json:"correct_answer"`
	Skill         string          `json:"skill"`
	MasteryBefore *float64        `json:"mastery_before,omitempty"`
	MasteryAfter  *float64        `json:"mastery_after,omitempty"`
	Standings     []mastery.Entry `json:"standings"`
}

type learnerRequest struct {
	Learner string `json:"learner"`
}

type resetResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type standingsResponse struct {
	SessionID string          `json:"session_id"`
	Learner   string          `json:"learner"`
	Standings []mastery.Entry `json:"standings"`
}

// bindError describes why a request body could not be bound.
func bindError(err error) string {
	var (
		syntax *json.SyntaxError
		typ    *json.UnmarshalTypeError
		fields validator.ValidationErrors
	)
	switch {
	case errors.Is(err, io.EOF):
		return "request body is empty"
	case errors.As(err, &syntax), errors.Is(err, io.ErrUnexpectedEOF):
		return "request body is not valid JSON"
	case errors.As(err, &typ):
		return fmt.Sprintf("%s must be of type %s", typ.Field, typ.Type)
	case errors.As(err, &fields) && len(fields) > 0:
		return fmt.Sprintf("%s is %s", fields[0].Field(), fields[0].Tag())
	default:
		return "invalid request body"
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version, "sessions": s.mgr.Active()})
}

func (s *Server) nextQuestion(c *gin.Context) {
	learner := s.learner(c, "")
	ctx := c.Request.Context()

	if _, err := s.mgr.Ensure(ctx, learner); err != nil {
		s.fail(c, err)
		return
	}
	next, err := s.mgr.NextQuestion(ctx, learner)
	if err != nil {
		s.fail(c, err)
		return
	}

	resp := nextResponse{SessionID: next.SessionID, Complete: next.Complete, Standings: next.Standings}
	if !next.Complete {
		resp.Question = toPayload(next.Question)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) submitAnswer(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindError(err)})
		return
	}
	learner := s.learner(c, req.Learner)
	ctx := c.Request.Context()

	if _, err := s.mgr.Ensure(ctx, learner); err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.mgr.SubmitAnswer(ctx, learner, *req.QuestionID, req.Answer)
	if err != nil {
		s.fail(c, err)
		return
	}

	resp := submitResponse{
		SessionID:     res.SessionID,
		Verdict:       res.Verdict(),
		CorrectAnswer: res.CorrectAnswer,
		Skill:         res.Skill,
		Standings:     res.Standings,
	}
	if res.Adjustment.Tracked {
		resp.MasteryBefore = &res.Adjustment.Before
		resp.MasteryAfter = &res.Adjustment.After
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) resetSession(c *gin.Context) {
	var req learnerRequest
	// The body is optional.
	_ = c.ShouldBindJSON(&req)
	learner := s.learner(c, req.Learner)

	sess, err := s.mgr.Reset(c.Request.Context(), learner)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resetResponse{Message: "session reset", SessionID: sess.ID()})
}

func (s *Server) standings(c *gin.Context) {
	learner := s.learner(c, "")
	ctx := c.Request.Context()

	if _, err := s.mgr.Ensure(ctx, learner); err != nil {
		s.fail(c, err)
		return
	}
	id, entries, err := s.mgr.Standings(learner)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, standingsResponse{SessionID: id, Learner: learner, Standings: entries})
}

func (s *Server) endSession(c *gin.Context) {
	learner := s.learner(c, "")
	if err := s.mgr.End(c.Request.Context(), learner); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// learner resolves who the request is for: header, then query, then body,
// then the configured default.
func (s *Server) learner(c *gin.Context, fromBody string) string {
	if v := c.GetHeader(LearnerHeader); v != "" {
		return v
	}
	if v := c.Query("learner"); v != "" {
		return v
	}
	if fromBody != "" {
		return fromBody
	}
	return s.defaultLearner
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrQuestionNotFound):
		return http.StatusNotFound, "question not found"
	case errors.Is(err, catalog.ErrUnknownLearner):
		return http.StatusNotFound, "unknown learner"
	case errors.Is(err, session.ErrPredictorUnavailable):
		return http.StatusServiceUnavailable, "predictor unavailable"
	case errors.Is(err, session.ErrNoSession):
		return http.StatusConflict, "no active session"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "request failed",
			"path", c.Request.URL.Path, "status", status, "error", err)
	}
	c.JSON(status, gin.H{"error": msg})
}
