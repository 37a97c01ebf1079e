package a2a

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/advisory"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/intake"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/models"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/observability"
)

type A2AHandler struct {
	sessions *advisory.Manager
	card     AgentCard
}

func NewA2AHandler(sessions *advisory.Manager, card AgentCard) *A2AHandler {
	return &A2AHandler{
		sessions: sessions,
		card:     card,
	}
}

// RequestLoggingMiddleware logs raw A2A request bodies at debug level.
func RequestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		bodyBytes, _ := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		observability.LoggerFromContext(c.Request.Context()).Debug("incoming A2A request",
			"path", c.Request.URL.Path, "body", string(bodyBytes))
		c.Next()
	}
}

// Register mounts the agent card and the JSON-RPC endpoint.
func (h *A2AHandler) Register(router gin.IRouter) {
	router.GET("/.well-known/agent.json", h.ServeAgentCard)
	router.POST("/a2a/advisor", RequestLoggingMiddleware(), h.HandleAdvisor)
}

// HandleAdvisor processes A2A messages
func (h *A2AHandler) HandleAdvisor(c *gin.Context) {
	log := observability.LoggerFromContext(c.Request.Context())

	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Error("failed to read request body", "error", err)
		h.sendErrorResponse(c, nil, "Failed to read request body", CodeParseError)
		return
	}

	var rpcReq JSONRPCRequest
	if err := json.Unmarshal(bodyBytes, &rpcReq); err != nil || rpcReq.Method == "" {
		log.Warn("request is not JSON-RPC, trying direct message parsing")
		h.handleDirectMessage(c, bodyBytes)
		return
	}

	if rpcReq.JSONRPC != "2.0" {
		log.Warn("invalid JSON-RPC version", "version", rpcReq.JSONRPC)
		h.sendErrorResponse(c, rpcReq.ID, "Invalid JSON-RPC version", CodeInvalidRequest)
		return
	}

	switch rpcReq.Method {
	case "message/send", "agent/task":
		h.handleTask(c, rpcReq)
	default:
		log.Warn("unknown method", "method", rpcReq.Method)
		h.sendErrorResponse(c, rpcReq.ID, fmt.Sprintf("Method not found: %s", rpcReq.Method), CodeMethodNotFound)
	}
}

// handleDirectMessage handles a bare MessageParams body without the JSON-RPC
// wrapper.
func (h *A2AHandler) handleDirectMessage(c *gin.Context, bodyBytes []byte) {
	var msgParams MessageParams
	if err := json.Unmarshal(bodyBytes, &msgParams); err != nil || len(msgParams.Message.Parts) == 0 {
		h.sendErrorResponse(c, nil, "Invalid request format", CodeParseError)
		return
	}
	h.sendSuccessResponse(c, "direct-message", h.advise(c, msgParams.Message))
}

func (h *A2AHandler) handleTask(c *gin.Context, rpcReq JSONRPCRequest) {
	var msgParams MessageParams
	if err := json.Unmarshal(rpcReq.Params, &msgParams); err != nil {
		observability.LoggerFromContext(c.Request.Context()).Warn("invalid params", "error", err)
		h.sendErrorResponse(c, rpcReq.ID, "Invalid parameters", CodeInvalidParams)
		return
	}
	h.sendSuccessResponse(c, rpcReq.ID, h.advise(c, msgParams.Message))
}

// advise runs one turn. A message on an unknown contextId with a store
// profile starts a session and returns the opening strategy; text on a known
// contextId is a follow-up question.
func (h *A2AHandler) advise(c *gin.Context, msg A2AMessage) TaskResult {
	ctx := c.Request.Context()
	taskID := msg.TaskID
	if taskID == "" {
		taskID = uuid.New().String()
	}
	profile, hasProfile, err := extractProfile(msg)
	if err != nil {
		return h.createErrorTaskResult(taskID, msg.ContextID, err.Error())
	}
	question := extractText(msg)
	log := observability.LoggerFromContext(ctx).With("task_id", taskID, "context_id", msg.ContextID)

	s, err := h.sessions.Get(msg.ContextID)
	if err != nil {
		if !hasProfile {
			hints := intake.Extract(question)
			if missing := hints.Missing(); len(missing) > 0 {
				return h.createInputRequiredResult(taskID, msg.ContextID, missing)
			}
			hints.Apply(&profile)
			question = hints.Question
		}
		s = h.sessions.Create()
		if _, err := s.SubmitProfile(ctx, profile); err != nil {
			_ = h.sessions.Delete(s.ID())
			log.Warn("profile rejected", "error", err)
			return h.createErrorTaskResult(taskID, "", err.Error())
		}
		log.Info("started advisory session", "session_id", s.ID())
	} else if hasProfile {
		return h.createErrorTaskResult(taskID, s.ID(), advisory.ErrProfileAlreadySet.Error())
	}

	ex, err := s.AskExchange(ctx, question)
	if err != nil {
		log.Error("advice failed", "session_id", s.ID(), "error", err)
		return h.createErrorTaskResult(taskID, s.ID(), failureText(err))
	}
	persona, _ := s.Persona()
	return h.createSuccessTaskResult(taskID, s.ID(), msg, persona, ex)
}

// extractProfile reads the first data part that decodes as a store profile.
func extractProfile(msg A2AMessage) (models.StoreProfile, bool, error) {
	for _, part := range msg.Parts {
		if part.Kind != "data" || len(part.Data) == 0 {
			continue
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(part.Data, &fields); err != nil {
			continue
		}
		if _, ok := fields["category"]; !ok {
			continue
		}
		var p models.StoreProfile
		if err := json.Unmarshal(part.Data, &p); err != nil {
			if !errors.Is(err, models.ErrInvalidProfile) {
				err = fmt.Errorf("%w: %v", models.ErrInvalidProfile, err)
			}
			return models.StoreProfile{}, false, err
		}
		return p, true, nil
	}
	return models.StoreProfile{}, false, nil
}

func extractText(msg A2AMessage) string {
	var texts []string
	for _, part := range msg.Parts {
		if part.Kind != "text" {
			continue
		}
		text := strings.TrimSpace(part.Text)
		text = strings.ReplaceAll(text, "<p>", "")
		text = strings.ReplaceAll(text, "</p>", "")
		if text = strings.TrimSpace(text); text != "" {
			texts = append(texts, text)
		}
	}
	return strings.Join(texts, " ")
}

func failureText(err error) string {
	switch {
	case errors.Is(err, advisory.ErrServiceUnavailable):
		return "The advisory service did not answer in time. Please try again."
	case errors.Is(err, advisory.ErrServiceRejected):
		return "The advisory service rejected the request."
	default:
		return err.Error()
	}
}

// ServeAgentCard serves the agent card using Gin
func (h *A2AHandler) ServeAgentCard(c *gin.Context) {
	c.JSON(http.StatusOK, h.card)
}

func (h *A2AHandler) createSuccessTaskResult(taskID, contextID string, req A2AMessage, persona models.Persona, ex advisory.Exchange) TaskResult {
	reply := A2AMessage{
		Kind:      "message",
		Role:      RoleAgent,
		MessageID: ex.ID,
		TaskID:    taskID,
		ContextID: contextID,
		Parts:     []MessagePart{TextPart(ex.Response)},
	}
	req.ContextID = contextID
	req.TaskID = taskID

	result := TaskResult{
		ID:        taskID,
		ContextID: contextID,
		Kind:      "task",
		Status: TaskStatus{
			State:     StateCompleted,
			Timestamp: Timestamp(),
			Message:   &reply,
		},
		Artifacts: []Artifact{
			{
				ArtifactID: uuid.New().String(),
				Name:       "Marketing Strategy",
				Parts:      []MessagePart{TextPart(ex.Response)},
			},
			{
				ArtifactID: uuid.New().String(),
				Name:       "Persona",
				Parts:      []MessagePart{DataPart(persona)},
			},
		},
		History: []A2AMessage{req, reply},
	}
	if ex.Suggested != "" {
		result.Artifacts = append(result.Artifacts, Artifact{
			ArtifactID: uuid.New().String(),
			Name:       "Suggested Follow-up",
			Parts:      []MessagePart{TextPart(ex.Suggested)},
		})
	}
	return result
}

func (h *A2AHandler) createInputRequiredResult(taskID, contextID string, missing []string) TaskResult {
	return TaskResult{
		ID:        taskID,
		ContextID: contextID,
		Kind:      "task",
		Status: TaskStatus{
			State:     StateInputRequired,
			Timestamp: Timestamp(),
			Message: &A2AMessage{
				Kind:      "message",
				Role:      RoleAgent,
				MessageID: uuid.New().String(),
				Parts: []MessagePart{
					TextPart("Please send your store profile as a data part. Missing: " + strings.Join(missing, ", ")),
					DataPart(models.DefaultSchema().Fields()),
				},
			},
		},
	}
}

func (h *A2AHandler) createErrorTaskResult(taskID, contextID, errorMsg string) TaskResult {
	return TaskResult{
		ID:        taskID,
		ContextID: contextID,
		Kind:      "task",
		Status: TaskStatus{
			State:     StateFailed,
			Timestamp: Timestamp(),
			Message: &A2AMessage{
				Kind:      "message",
				Role:      RoleAgent,
				MessageID: uuid.New().String(),
				Parts: []MessagePart{
					TextPart(errorMsg),
				},
			},
		},
	}
}

func (h *A2AHandler) sendSuccessResponse(c *gin.Context, id any, result TaskResult) {
	c.JSON(http.StatusOK, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func (h *A2AHandler) sendErrorResponse(c *gin.Context, id any, message string, code int) {
	c.JSON(http.StatusOK, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &RPCError{
			Code:    code,
			Message: message,
		},
	})
}
