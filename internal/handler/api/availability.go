package api

import (
	"net/http"

	reqdto "lounge-booking/internal/handler/dto/request"
	resdto "lounge-booking/internal/handler/dto/response"
	"lounge-booking/internal/handler/httperr"
	"lounge-booking/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type AvailabilityHandler struct {
	availability queries.AvailabilityQueries
	catalog      queries.CatalogQueries
}

func NewAvailabilityHandler(availability queries.AvailabilityQueries, catalog queries.CatalogQueries) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability, catalog: catalog}
}

// @Summary Resource availability
// @Description Resolve each resource's status at an instant, with the current and next reservation
// @Tags availability
// @Produce json
// @Param resourceId query []string false "Resource IDs, all resources when omitted" collectionFormat(csv)
// @Param at query string false "RFC3339 instant, defaults to now"
// @Param from query string false "RFC3339 start of the read range"
// @Param to query string false "RFC3339 end of the read range"
// @Success 200 {array} resdto.AvailabilityResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /api/availability [get]
func (h *AvailabilityHandler) Availability(c *gin.Context) {
	var query reqdto.AvailabilityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid query", nil)
		return
	}
	req, err := query.ToRequest()
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid resource id", nil)
		return
	}
	views, err := h.availability.ForResources(c.Request.Context(), req)
	if err != nil {
		abortWithUseCaseError(c, err)
		return
	}
	body, err := resdto.FromAvailabilityViews(views)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, body)
}

// @Summary List resources
// @Tags resources
// @Produce json
// @Success 200 {array} resdto.ResourceResponse
// @Failure 503 {object} httperr.Response
// @Router /api/resources [get]
func (h *AvailabilityHandler) Resources(c *gin.Context) {
	views, err := h.catalog.List(c.Request.Context())
	if err != nil {
		abortWithUseCaseError(c, err)
		return
	}
	body, err := resdto.FromResourceViews(views)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, body)
}
