package controller

import (
	"context"
	"strconv"

	commonmw "codejudge/internal/common/http/middleware"
	"codejudge/internal/judge/harness"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/repository"
	"codejudge/internal/judge/service"
	"codejudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// Executor is the service surface served over HTTP.
type Executor interface {
	Execute(ctx context.Context, input service.ExecuteInput) (*service.ExecuteResult, error)
	GetReport(ctx context.Context, executionID string) (*service.ExecuteResult, error)
	GetSource(ctx context.Context, executionID string) (string, error)
	Leaderboard(ctx context.Context, limit int) ([]repository.LeaderboardEntry, error)
	Inspect(input service.InspectInput) (*service.InspectResult, error)
}

// ExecuteController handles execution HTTP endpoints.
type ExecuteController struct {
	executor Executor
}

// NewExecuteController creates a new ExecuteController.
func NewExecuteController(executor Executor) *ExecuteController {
	return &ExecuteController{executor: executor}
}

// RegisterRoutes mounts the judge API under /api/v1.
func RegisterRoutes(router gin.IRouter, h *ExecuteController) {
	api := router.Group("/api/v1")
	api.POST("/executions", h.Execute)
	api.GET("/executions/:id", h.GetReport)
	api.GET("/executions/:id/source", h.GetSource)
	api.POST("/harness/inspect", h.Inspect)
	api.GET("/languages", h.Languages)
	api.GET("/leaderboard", h.Leaderboard)
}

// Execute judges code synchronously. A compile failure is a successful
// response whose data carries error and details. The caller's identity comes
// only from the gateway header.
func (h *ExecuteController) Execute(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	report, err := h.executor.Execute(c.Request.Context(), service.ExecuteInput{
		UserID:    commonmw.UserID(c),
		ClientIP:  c.ClientIP(),
		ProblemID: req.ProblemID,
		Language:  req.Language,
		Mode:      req.Mode,
		Code:      req.Code,
		Inputs:    req.Inputs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}

// GetReport returns a stored execution report.
func (h *ExecuteController) GetReport(c *gin.Context) {
	executionID := c.Param("id")
	if executionID == "" {
		response.BadRequest(c, "Invalid execution id")
		return
	}
	report, err := h.executor.GetReport(c.Request.Context(), executionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}

// GetSource returns the archived source of a SUBMIT execution.
func (h *ExecuteController) GetSource(c *gin.Context) {
	executionID := c.Param("id")
	if executionID == "" {
		response.BadRequest(c, "Invalid execution id")
		return
	}
	source, err := h.executor.GetSource(c.Request.Context(), executionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, SourceResponse{ExecutionID: executionID, SourceCode: source})
}

// Inspect shows what the harness makes of a piece of code and a stdin.
func (h *ExecuteController) Inspect(c *gin.Context) {
	var req InspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	result, err := h.executor.Inspect(service.InspectInput{
		Language: req.Language,
		Code:     req.Code,
		Stdin:    req.Stdin,
		Snippet:  req.Snippet,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Languages lists supported language tags with their engine ids.
func (h *ExecuteController) Languages(c *gin.Context) {
	langs := harness.Languages()
	out := make([]LanguageResponse, 0, len(langs))
	for _, l := range langs {
		out = append(out, LanguageResponse{Language: string(l), EngineID: l.EngineID()})
	}
	response.Success(c, out)
}

// Leaderboard returns users ranked by solved count.
func (h *ExecuteController) Leaderboard(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.BadRequest(c, "Invalid limit")
			return
		}
		limit = n
	}
	entries, err := h.executor.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, entries)
}

// ExecuteRequest defines the execute payload.
type ExecuteRequest struct {
	ProblemID string           `json:"problemId" binding:"required"`
	Language  string           `json:"language" binding:"required"`
	Code      string           `json:"code" binding:"required"`
	Mode      string           `json:"mode"`
	Inputs    []model.TestCase `json:"inputs"`
}

// InspectRequest defines the harness inspect payload.
type InspectRequest struct {
	Language string `json:"language" binding:"required"`
	Code     string `json:"code" binding:"required"`
	Stdin    string `json:"stdin"`
	Snippet  string `json:"snippet"`
}

// SourceResponse defines the source query response payload.
type SourceResponse struct {
	ExecutionID string `json:"executionId"`
	SourceCode  string `json:"sourceCode"`
}

// LanguageResponse is one supported language.
type LanguageResponse struct {
	Language string `json:"language"`
	EngineID int    `json:"engineId"`
}
