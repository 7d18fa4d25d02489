package availability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cabinbook/internal/domain"
	"cabinbook/internal/pkg/response"
)

type Handler struct {
	service *Service
	loc     *time.Location
}

func NewHandler(service *Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{service: service, loc: loc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/availability", h.GetAvailability)
	rg.GET("/resources/:id/state", h.GetResourceState)
}

// GetAvailability answers ?container_id= or ?resource_ids=1,2 over [from, to).
func (h *Handler) GetAvailability(c *gin.Context) {
	rng, err := domain.ParseDateRange(c.Query("from"), c.Query("to"), h.loc)
	if err != nil {
		response.FromError(c, err)
		return
	}

	q := Query{Range: rng}
	if v := c.Query("container_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid container_id")
			return
		}
		q.ContainerID = id
	}
	if v := c.Query("resource_ids"); v != "" {
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || id <= 0 {
				response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid resource_ids")
				return
			}
			q.ResourceIDs = append(q.ResourceIDs, id)
		}
	}

	report, err := h.service.Check(c.Request.Context(), q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, report)
}

// GetResourceState reports the derived state on ?date=, today by default.
func (h *Handler) GetResourceState(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid resource id")
		return
	}

	asOf := h.service.now().In(h.loc)
	if v := c.Query("date"); v != "" {
		if asOf, err = domain.ParseDate(v, h.loc); err != nil {
			response.FromError(c, err)
			return
		}
	}

	state, err := h.service.ResourceState(c.Request.Context(), id, asOf)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}
