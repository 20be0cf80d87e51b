package api

import (
	"io"
	"net/http"

	reqdto "lounge-booking/internal/handler/dto/request"
	resdto "lounge-booking/internal/handler/dto/response"
	"lounge-booking/internal/handler/httperr"
	"lounge-booking/internal/usecase/commands"
	"lounge-booking/internal/usecase/queries"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const idempotencyKeyHeader = "Idempotency-Key"

var errInvalidIdempotencyKey = errors.New("invalid idempotency key format")

type ReservationHandler struct {
	cmds commands.BookingCommands
	q    queries.ReservationQueries
}

func NewReservationHandler(cmds commands.BookingCommands, q queries.ReservationQueries) *ReservationHandler {
	return &ReservationHandler{cmds: cmds, q: q}
}

// @Summary Create reservation
// @Description Book one or more resources for a window. Replays with the same Idempotency-Key return the original reservation.
// @Tags reservations
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "UUID identifying the booking attempt"
// @Param request body reqdto.CreateReservationRequest true "Reservation request"
// @Success 201 {object} resdto.ReservationResponse
// @Success 200 {object} resdto.ReservationResponse "Replayed request"
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /api/reservations [post]
func (h *ReservationHandler) Create(c *gin.Context) {
	key, err := idempotencyKey(c)
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid Idempotency-Key header", nil)
		return
	}
	var req reqdto.CreateReservationRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, bindErr, "Invalid request", nil)
		return
	}
	result, err := h.cmds.Create(c.Request.Context(), req.ToInput(key))
	if err != nil {
		abortWithUseCaseError(c, err)
		return
	}
	body, err := resdto.FromReservationView(result.Reservation)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	status := http.StatusCreated
	if result.IsReplayed {
		status = http.StatusOK
	}
	c.Header("Location", "/api/reservations/"+body.ID.String())
	c.JSON(status, body)
}

// @Summary Get reservation
// @Tags reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} resdto.ReservationResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /api/reservations/{id} [get]
func (h *ReservationHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id", "Invalid reservation id")
	if !ok {
		return
	}
	view, err := h.q.GetByID(c.Request.Context(), id)
	if err != nil {
		abortWithUseCaseError(c, err)
		return
	}
	h.respond(c, view)
}

// @Summary List resource reservations
// @Description Reservations holding a resource ordered by start, optionally filtered by status
// @Tags reservations
// @Produce json
// @Param id path string true "Resource ID"
// @Param status query []string false "booked, in_use, completed or cancelled" collectionFormat(csv)
// @Success 200 {array} resdto.ReservationResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /api/resources/{id}/reservations [get]
func (h *ReservationHandler) ListForResource(c *gin.Context) {
	resourceID, ok := parseID(c, "id", "Invalid resource id")
	if !ok {
		return
	}
	var query reqdto.ReservationListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid query", nil)
		return
	}
	statuses, err := query.Statuses()
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid status filter", nil)
		return
	}
	views, err := h.q.ListForResource(c.Request.Context(), resourceID, statuses)
	if err != nil {
		abortWithUseCaseError(c, err)
		return
	}
	body, err := resdto.FromReservationViews(views)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, body)
}

// @Summary Start session
// @Description Check the customer in; only booked reservations can start
// @Tags reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} resdto.ReservationResponse
// @Failure 404 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /api/reservations/{id}/start [post]
func (h *ReservationHandler) Start(c *gin.Context) {
	id, ok := parseID(c, "id", "Invalid reservation id")
	if !ok {
		return
	}
	view, err := h.cmds.Start(c.Request.Context(), id)
	if err != nil {
		abortWithUseCaseError(c, err)
		return
	}
	h.respond(c, view)
}

// @Summary End session
// @Description Complete an in-use reservation; actualEnd defaults to now
// @Tags reservations
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body reqdto.EndRequest false "Actual end"
// @Success 200 {object} resdto.ReservationResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /api/reservations/{id}/end [post]
func (h *ReservationHandler) End(c *gin.Context) {
	id, ok := parseID(c, "id", "Invalid reservation id")
	if !ok {
		return
	}
	var req reqdto.EndRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}
	view, err := h.cmds.End(c.Request.Context(), id, req.ActualEnd)
	if err != nil {
		abortWithUseCaseError(c, err)
		return
	}
	h.respond(c, view)
}

// @Summary Cancel reservation
// @Tags reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} resdto.ReservationResponse
// @Failure 404 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /api/reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c *gin.Context) {
	id, ok := parseID(c, "id", "Invalid reservation id")
	if !ok {
		return
	}
	view, err := h.cmds.Cancel(c.Request.Context(), id)
	if err != nil {
		abortWithUseCaseError(c, err)
		return
	}
	h.respond(c, view)
}

// @Summary Extend reservation
// @Description Push the scheduled end later if every held resource is still free
// @Tags reservations
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body reqdto.ExtendRequest true "Minutes to add"
// @Success 200 {object} resdto.ReservationResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /api/reservations/{id}/extend [post]
func (h *ReservationHandler) Extend(c *gin.Context) {
	id, ok := parseID(c, "id", "Invalid reservation id")
	if !ok {
		return
	}
	var req reqdto.ExtendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}
	view, err := h.cmds.Extend(c.Request.Context(), id, req.AdditionalMinutes)
	if err != nil {
		abortWithUseCaseError(c, err)
		return
	}
	h.respond(c, view)
}

// @Summary Reservation usage
// @Description Billable window and player minutes for the pricing collaborator
// @Tags reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} resdto.UsageResponse
// @Failure 404 {object} httperr.Response
// @Router /api/reservations/{id}/usage [get]
func (h *ReservationHandler) Usage(c *gin.Context) {
	id, ok := parseID(c, "id", "Invalid reservation id")
	if !ok {
		return
	}
	usage, err := h.q.Usage(c.Request.Context(), id)
	if err != nil {
		abortWithUseCaseError(c, err)
		return
	}
	body, err := resdto.FromUsageView(usage)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *ReservationHandler) respond(c *gin.Context, view *queries.ReservationView) {
	body, err := resdto.FromReservationView(view)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, body)
}

// idempotencyKey returns nil when the header is absent.
func idempotencyKey(c *gin.Context) (*uuid.UUID, error) {
	raw := c.GetHeader(idempotencyKeyHeader)
	if raw == "" {
		return nil, nil
	}
	key, err := uuid.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(errInvalidIdempotencyKey, err.Error())
	}
	return &key, nil
}
