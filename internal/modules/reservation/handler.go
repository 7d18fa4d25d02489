package reservation

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cabinbook/internal/domain"
	"cabinbook/internal/middleware"
	"cabinbook/internal/pkg/response"
	"cabinbook/internal/pkg/validator"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type Handler struct {
	service *Service
	loc     *time.Location
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, loc: service.cfg.Location}
}

// RegisterRoutes mounts the customer routes. rg must be behind JWTAuth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/quotes", h.Quote)

	reservations := rg.Group("/reservations")
	{
		reservations.POST("", h.Create)
		reservations.GET("/me", h.ListMine)
		reservations.GET("/:id", h.Get)
		reservations.POST("/:id/cancel", h.Cancel)
		reservations.POST("/:id/renew", h.Renew)
		reservations.POST("/:id/transfer", h.Transfer)
	}
}

// RegisterAdminRoutes mounts the payment callback and the manual sweep.
// rg must be behind JWTAuth and AdminOnly.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/confirm", h.ConfirmPayment)
	rg.POST("/admin/sweep", h.Sweep)
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return false
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", errs)
		return false
	}
	return true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid reservation id")
		return 0, false
	}
	return id, true
}

func (h *Handler) createInput(c *gin.Context) (CreateInput, bool) {
	var req createRequest
	if !bindJSON(c, &req) {
		return CreateInput{}, false
	}
	start, err := domain.ParseDate(req.StartDate, h.loc)
	if err != nil {
		response.FromError(c, err)
		return CreateInput{}, false
	}
	return CreateInput{
		UserID:         middleware.UserID(c),
		ResourceID:     req.ResourceID,
		SlotID:         req.SlotID,
		StartDate:      start,
		DurationType:   domain.DurationType(req.DurationType),
		DurationCount:  req.DurationCount,
		CouponCode:     req.CouponCode,
		UseAdvance:     req.UseAdvance,
		WithLocker:     req.WithLocker,
		IdempotencyKey: strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey)),
	}, true
}

func (h *Handler) Quote(c *gin.Context) {
	in, ok := h.createInput(c)
	if !ok {
		return
	}
	q, err := h.service.Quote(c.Request.Context(), in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, q)
}

func (h *Handler) Create(c *gin.Context) {
	in, ok := h.createInput(c)
	if !ok {
		return
	}
	receipt, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		response.FromError(c, err)
		return
	}

	status := http.StatusCreated
	if receipt.Replayed {
		status = http.StatusOK
	}
	response.Success(c, status, gin.H{"reservation": receipt})
}

func (h *Handler) ListMine(c *gin.Context) {
	list, err := h.service.ListMine(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservations": list})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	r, err := h.service.Get(c.Request.Context(), id, middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservation": r})
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req cancelRequest
	// empty body means default reason
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	r, err := h.service.Cancel(c.Request.Context(), CancelInput{
		ReservationID: id,
		ActorID:       middleware.UserID(c),
		Admin:         middleware.IsAdmin(c),
		Reason:        req.Reason,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservation": r})
}

func (h *Handler) Renew(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req renewRequest
	if !bindJSON(c, &req) {
		return
	}

	in := RenewInput{
		ReservationID:  id,
		ActorID:        middleware.UserID(c),
		Admin:          middleware.IsAdmin(c),
		DurationType:   domain.DurationType(req.DurationType),
		DurationCount:  req.DurationCount,
		CouponCode:     req.CouponCode,
		UseAdvance:     req.UseAdvance,
		WithLocker:     req.WithLocker,
		IdempotencyKey: strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey)),
	}
	if req.RequestedStart != "" {
		start, err := domain.ParseDate(req.RequestedStart, h.loc)
		if err != nil {
			response.FromError(c, err)
			return
		}
		in.RequestedStart = &start
	}

	receipt, err := h.service.Renew(c.Request.Context(), in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	status := http.StatusCreated
	if receipt.Replayed {
		status = http.StatusOK
	}
	response.Success(c, status, gin.H{"reservation": receipt})
}

func (h *Handler) Transfer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transferRequest
	if !bindJSON(c, &req) {
		return
	}

	r, err := h.service.Transfer(c.Request.Context(), TransferInput{
		ReservationID:    id,
		ActorID:          middleware.UserID(c),
		Admin:            middleware.IsAdmin(c),
		TargetResourceID: req.TargetResourceID,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservation": r})
}

func (h *Handler) ConfirmPayment(c *gin.Context) {
	var req confirmPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	r, err := h.service.ConfirmPayment(c.Request.Context(), req.OrderRef, req.Amount)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservation": r})
}

func (h *Handler) Sweep(c *gin.Context) {
	result, err := h.service.SweepOnce(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}
