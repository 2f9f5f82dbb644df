package ingest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hookrelay/internal/config"
	"hookrelay/internal/constants"
	"hookrelay/internal/logger"
	pkgerrors "hookrelay/pkg/errors"
	"hookrelay/pkg/logging"
)

const maxBodyBytes = 1 << 20

// Handler is the HTTP boundary: webhook intake, the subscription handshake
// and the admin page API.
type Handler struct {
	service  *Service
	repo     Repository
	upstream config.UpstreamConfig
	mode     string

	// baseCtx parents every background processing goroutine so shutdown can
	// cancel in-flight work.
	baseCtx context.Context
	log     logger.Logger
}

func NewHandler(baseCtx context.Context, service *Service, repo Repository, upstream config.UpstreamConfig, mode string, log logger.Logger) *Handler {
	if mode == "" {
		mode = constants.ForwardModeStructured
	}
	return &Handler{
		service:  service,
		repo:     repo,
		upstream: upstream,
		mode:     mode,
		baseCtx:  baseCtx,
		log:      log,
	}
}

// RegisterRoutes wires the webhook endpoints and the admin group. Extra
// middleware (rate limiting) applies to the admin group only; the webhook
// intake must never throttle the upstream platform.
func (h *Handler) RegisterRoutes(router *gin.Engine, adminMiddleware ...gin.HandlerFunc) {
	router.GET("/webhook", h.VerifyWebhook)
	router.POST("/webhook", h.ReceiveWebhook)

	v1 := router.Group("/api/v1", adminMiddleware...)
	{
		pages := v1.Group("/pages")
		{
			pages.GET("/:id", h.GetPage)
			pages.PUT("/:id", h.UpdatePage)
		}
	}
}

// VerifyWebhook answers the platform's subscription handshake by echoing
// hub.challenge when the verify token matches.
func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing hub.mode or hub.verify_token"})
		return
	}
	if mode != "subscribe" || token != h.upstream.VerifyToken {
		h.log.WarnwCtx(c.Request.Context(), "webhook verification rejected", "mode", mode)
		c.JSON(http.StatusForbidden, gin.H{"error": "verification failed"})
		return
	}
	c.String(http.StatusOK, challenge)
}

// ReceiveWebhook accepts a webhook delivery and answers immediately; the
// actual processing happens on a background goroutine. Anything past the
// signature check answers 200 so the platform never builds a redelivery
// backlog against us.
func (h *Handler) ReceiveWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		h.log.WarnwCtx(c.Request.Context(), "failed to read webhook body", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "unreadable_body"})
		return
	}

	if h.upstream.AppSecret != "" {
		signature := c.GetHeader("X-Hub-Signature-256")
		if !VerifySignature(body, signature, h.upstream.AppSecret) {
			h.log.WarnwCtx(c.Request.Context(), "webhook signature verification failed")
			c.JSON(http.StatusForbidden, pkgerrors.ToErrorResponse(
				pkgerrors.ErrForbidden.WithMessage("invalid signature")))
			return
		}
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		h.log.WarnwCtx(c.Request.Context(), "webhook body is not valid JSON", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "invalid_json"})
		return
	}

	if object, _ := raw["object"].(string); object != "page" {
		c.JSON(http.StatusOK, gin.H{"status": "not_a_page_event"})
		return
	}

	timeID := float64(time.Now().UnixNano()) / 1e9
	traceID := logging.GetTraceID(c.Request.Context())

	go h.processInBackground(raw, timeID, traceID)

	c.JSON(http.StatusOK, gin.H{"status": "received", "time_id": timeID})
}

func (h *Handler) processInBackground(raw map[string]interface{}, timeID float64, traceID string) {
	ctx, cancel := context.WithTimeout(h.baseCtx, constants.ProcessingTimeout)
	defer cancel()

	ctx = logging.WithTimeID(ctx, timeID)
	if traceID != "" {
		ctx = logging.WithTraceID(ctx, traceID)
	}

	defer func() {
		if r := recover(); r != nil {
			h.log.ErrorwCtx(ctx, "panic during webhook processing", "panic", r)
		}
	}()

	var status string
	if h.mode == constants.ForwardModeRaw {
		status = h.service.ProcessRaw(ctx, raw, timeID)
	} else {
		status = h.service.Process(ctx, raw, timeID)
	}
	h.log.DebugwCtx(ctx, "webhook processing finished", "status", status)
}

// GetPage returns the page configuration record, falling back to the default
// off record for unknown pages.
func (h *Handler) GetPage(c *gin.Context) {
	page := h.repo.GetPage(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, page)
}

type updatePageRequest struct {
	Status          string `json:"status" binding:"required,oneof=on off"`
	PageAccessToken string `json:"page_access_token"`
	StoreID         string `json:"store_id"`
}

func (h *Handler) UpdatePage(c *gin.Context) {
	var req updatePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pkgerrors.ToErrorResponse(pkgerrors.ErrValidation.WithCause(err)))
		return
	}

	page := PageRecord{
		PageID:          c.Param("id"),
		Status:          req.Status,
		PageAccessToken: req.PageAccessToken,
		StoreID:         req.StoreID,
	}
	if err := h.repo.UpsertPage(c.Request.Context(), page); err != nil {
		h.log.ErrorwCtx(c.Request.Context(), "page upsert failed", "page_id", page.PageID, "error", err)
		c.JSON(pkgerrors.ToHTTPStatus(err), pkgerrors.ToErrorResponse(err))
		return
	}
	c.JSON(http.StatusOK, page)
}
