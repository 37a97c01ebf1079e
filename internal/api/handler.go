package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/advisory"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/catalog"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/intake"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/models"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/observability"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/prompt"
)

type Handler struct {
	sessions *advisory.Manager
}

func NewHandler(sessions *advisory.Manager) *Handler {
	return &Handler{sessions: sessions}
}

type guessRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type guessResponse struct {
	Hints   intake.Hints        `json:"hints"`
	Profile models.StoreProfile `json:"profile"`
	Missing []string            `json:"missing"`
}

type sessionResponse struct {
	SessionID string              `json:"session_id"`
	Persona   models.Persona      `json:"persona"`
	Exact     bool                `json:"exact"`
	Agreed    []catalog.Attribute `json:"agreed,omitempty"`
}

type sessionDetail struct {
	sessionResponse
	Profile    models.StoreProfile `json:"profile"`
	History    []advisory.Exchange `json:"history"`
	CreatedAt  time.Time           `json:"created_at"`
	LastActive time.Time           `json:"last_active"`
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer    string            `json:"answer"`
	Suggested string            `json:"suggested,omitempty"`
	Exchange  advisory.Exchange `json:"exchange"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"personas": h.sessions.Advisor().Catalog().Len(),
		"sessions": h.sessions.Len(),
	})
}

// Schema returns the profile form: every field with its allowed values.
func (h *Handler) Schema(c *gin.Context) {
	schema := h.sessions.Advisor().Catalog().Schema()
	c.JSON(http.StatusOK, gin.H{
		"fields":       schema.Fields(),
		"combinations": schema.Size(),
	})
}

// GuessProfile prefills a profile from a store name and free text.
func (h *Handler) GuessProfile(c *gin.Context) {
	var req guessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	hints := intake.Guess(req.Name, req.Text)
	var p models.StoreProfile
	hints.Apply(&p)
	c.JSON(http.StatusOK, guessResponse{Hints: hints, Profile: p, Missing: hints.Missing()})
}

// CreateSession starts a session and submits its profile in one call.
func (h *Handler) CreateSession(c *gin.Context) {
	var profile models.StoreProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		if errors.Is(err, models.ErrInvalidProfile) {
			h.fail(c, err)
			return
		}
		writeError(c, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s := h.sessions.Create()
	persona, err := s.SubmitProfile(c.Request.Context(), profile)
	if err != nil {
		_ = h.sessions.Delete(s.ID())
		h.fail(c, err)
		return
	}
	res, _ := s.Match()
	c.JSON(http.StatusCreated, sessionResponse{
		SessionID: s.ID(),
		Persona:   persona,
		Exact:     res.Exact,
		Agreed:    res.Agreed,
	})
}

func (h *Handler) GetSession(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	res, _ := s.Match()
	profile, _ := s.Profile()
	c.JSON(http.StatusOK, sessionDetail{
		sessionResponse: sessionResponse{
			SessionID: s.ID(),
			Persona:   res.Persona,
			Exact:     res.Exact,
			Agreed:    res.Agreed,
		},
		Profile:    profile,
		History:    s.History(),
		CreatedAt:  s.CreatedAt(),
		LastActive: s.LastActive(),
	})
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Ask sends one question; an empty question asks for the opening strategy.
func (h *Handler) Ask(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	var req askRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}
	ex, err := s.AskExchange(c.Request.Context(), req.Question)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, askResponse{Answer: ex.Response, Suggested: ex.Suggested, Exchange: ex})
}

// AskStream is Ask over server-sent events: "chunk" events carry partial
// text, then one "done" event carries the exchange or one "error" event
// carries the failure.
func (h *Handler) AskStream(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if _, ok := s.Persona(); !ok {
		h.fail(c, advisory.ErrNoProfile)
		return
	}
	var req askRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	ex, err := s.AskStream(c.Request.Context(), req.Question, func(chunk string) error {
		c.SSEvent("chunk", chunk)
		c.Writer.Flush()
		return c.Request.Context().Err()
	})
	if err != nil {
		status, code := statusFor(err)
		observability.LoggerFromContext(c.Request.Context()).
			Warn("stream ended with error", "session_id", s.ID(), "status", status, "error", err)
		c.SSEvent("error", errorResponse{Error: err.Error(), Code: code})
		c.Writer.Flush()
		return
	}
	c.SSEvent("done", askResponse{Answer: ex.Response, Suggested: ex.Suggested, Exchange: ex})
	c.Writer.Flush()
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, code := statusFor(err)
	_ = c.Error(err)
	writeError(c, status, code, err.Error())
}

func writeError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg, Code: code})
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidProfile):
		return http.StatusBadRequest, "invalid_profile"
	case errors.Is(err, advisory.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, advisory.ErrProfileAlreadySet):
		return http.StatusConflict, "profile_already_set"
	case errors.Is(err, advisory.ErrNoProfile):
		return http.StatusConflict, "no_profile"
	case errors.Is(err, prompt.ErrPromptTooLong):
		return http.StatusRequestEntityTooLarge, "prompt_too_long"
	case errors.Is(err, catalog.ErrNoMatchFound):
		return http.StatusInternalServerError, "no_match_found"
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable, "catalog_unavailable"
	case errors.Is(err, advisory.ErrServiceRejected):
		return http.StatusBadGateway, "service_rejected"
	case errors.Is(err, advisory.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "service_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
