// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"

	"github.com/stroomalert/stroomalert/app/dto"
	businessflow "github.com/stroomalert/stroomalert/business_flow"
	"github.com/stroomalert/stroomalert/config"
	"github.com/stroomalert/stroomalert/utils"
)

// PollTrigger is the minimal scheduler surface the handler needs. It keeps
// the handler independent of the scheduler package and easy to test.
type PollTrigger interface {
	TriggerNow(ctx context.Context, reason string) bool
}

// EngineHandlerInterface defines the contract for engine handlers
type EngineHandlerInterface interface {
	Health(c fiber.Ctx) error
	GetStatus(c fiber.Ctx) error
	ListIncidents(c fiber.Ctx) error
	ListCampaigns(c fiber.Ctx) error
	ListEvents(c fiber.Ctx) error
	TriggerPoll(c fiber.Ctx) error
	ExportReport(c fiber.Ctx) error
}

// EngineHandler handles engine observability and control HTTP requests
type EngineHandler struct {
	campaignFlow businessflow.CampaignFlow
	poll         PollTrigger
	redis        *redis.Client
	cacheCfg     config.CacheConfig
	validator    *validator.Validate
}

// NewEngineHandler creates a new engine handler. The redis client may be nil
// when caching is disabled.
func NewEngineHandler(campaignFlow businessflow.CampaignFlow, poll PollTrigger, redisClient *redis.Client, cacheCfg config.CacheConfig) *EngineHandler {
	return &EngineHandler{
		campaignFlow: campaignFlow,
		poll:         poll,
		redis:        redisClient,
		cacheCfg:     cacheCfg,
		validator:    validator.New(),
	}
}

func (h *EngineHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *EngineHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Health handles the liveness probe
// @Summary Health check
// @Description Report service liveness
// @Tags Engine
// @Produce json
// @Success 200 {object} dto.APIResponse "Service is healthy"
// @Router /api/v1/health [get]
func (h *EngineHandler) Health(c fiber.Ctx) error {
	return h.SuccessResponse(c, fiber.StatusOK, "Service is healthy", fiber.Map{
		"time": utils.UTCNow(),
	})
}

// GetStatus handles the engine status aggregate
// @Summary Engine status
// @Description Report tracked outage counts, campaign counts and rolling budget windows
// @Tags Engine
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.EngineStatusResponse} "Status retrieved successfully"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/status [get]
func (h *EngineHandler) GetStatus(c fiber.Ctx) error {
	ctx := h.createRequestContext(c, "/api/v1/status")

	if cached := h.cachedStatus(ctx); cached != nil {
		return h.SuccessResponse(c, fiber.StatusOK, "Status retrieved successfully", cached)
	}

	status, err := h.campaignFlow.GetStatus(ctx)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve status", "STATUS_FAILED", err.Error())
	}
	h.cacheStatus(ctx, status)

	return h.SuccessResponse(c, fiber.StatusOK, "Status retrieved successfully", status)
}

// ListIncidents handles listing tracked outages
// @Summary List outages
// @Description List active and recently resolved outages, most recent first
// @Tags Engine
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ListIncidentsResponse} "Outages retrieved successfully"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/incidents [get]
func (h *EngineHandler) ListIncidents(c fiber.Ctx) error {
	result, err := h.campaignFlow.ListIncidents(h.createRequestContext(c, "/api/v1/incidents"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve outages", "LIST_INCIDENTS_FAILED", err.Error())
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Outages retrieved successfully", result)
}

// ListCampaigns handles listing ledger campaigns
// @Summary List campaigns
// @Description List every campaign in the ledger, most recent first
// @Tags Engine
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignsResponse} "Campaigns retrieved successfully"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns [get]
func (h *EngineHandler) ListCampaigns(c fiber.Ctx) error {
	result, err := h.campaignFlow.ListCampaigns(h.createRequestContext(c, "/api/v1/campaigns"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve campaigns", "LIST_CAMPAIGNS_FAILED", err.Error())
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved successfully", result)
}

// ListEvents handles listing the engine event log
// @Summary List events
// @Description Return the rolling engine event log, most recent first
// @Tags Engine
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ListEventsResponse} "Events retrieved successfully"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/events [get]
func (h *EngineHandler) ListEvents(c fiber.Ctx) error {
	result, err := h.campaignFlow.ListEvents(h.createRequestContext(c, "/api/v1/events"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve events", "LIST_EVENTS_FAILED", err.Error())
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Events retrieved successfully", result)
}

// TriggerPoll handles the manual reconciliation trigger
// @Summary Trigger poll
// @Description Run one reconciliation cycle immediately; skipped when a cycle is already in flight
// @Tags Engine
// @Accept json
// @Produce json
// @Param request body dto.TriggerPollRequest false "Optional trigger reason"
// @Success 200 {object} dto.APIResponse{data=dto.TriggerPollResponse} "Cycle triggered or skipped"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Router /api/v1/poll [post]
func (h *EngineHandler) TriggerPoll(c fiber.Ctx) error {
	var req dto.TriggerPollRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, err.Error())
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	reason := req.Reason
	if reason == "" {
		reason = "manual"
	}

	triggered := h.poll.TriggerNow(h.createRequestContextWithTimeout(c, "/api/v1/poll", 2*time.Minute), reason)
	result := &dto.TriggerPollResponse{
		Triggered: triggered,
		Skipped:   !triggered,
	}
	if triggered {
		result.Message = "Reconciliation cycle completed"
	} else {
		result.Message = "A reconciliation cycle is already running"
	}
	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ExportReport handles the xlsx report download
// @Summary Export report
// @Description Download an xlsx report of tracked outages and campaigns
// @Tags Engine
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary "Report file"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/report.xlsx [get]
func (h *EngineHandler) ExportReport(c fiber.Ctx) error {
	data, err := h.campaignFlow.ExportReport(h.createRequestContext(c, "/api/v1/report.xlsx"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export report", "EXPORT_FAILED", err.Error())
	}
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="stroomalert-report.xlsx"`)
	return c.Status(fiber.StatusOK).Send(data)
}

// cachedStatus returns the cached status aggregate if redis holds a fresh
// copy, nil otherwise.
func (h *EngineHandler) cachedStatus(ctx context.Context) *dto.EngineStatusResponse {
	if h.redis == nil {
		return nil
	}
	raw, err := h.redis.Get(ctx, config.RedisKey(h.cacheCfg, utils.StatusCacheKey)).Bytes()
	if err != nil {
		return nil
	}
	var status dto.EngineStatusResponse
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil
	}
	return &status
}

func (h *EngineHandler) cacheStatus(ctx context.Context, status *dto.EngineStatusResponse) {
	if h.redis == nil || status == nil {
		return
	}
	raw, err := json.Marshal(status)
	if err != nil {
		return
	}
	ttl := h.cacheCfg.DefaultTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	h.redis.Set(ctx, config.RedisKey(h.cacheCfg, utils.StatusCacheKey), raw, ttl)
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *EngineHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *EngineHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)

	return ctx
}
