//go:build unit

package api_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	domreservation "lounge-booking/internal/domain/reservation"
	"lounge-booking/internal/domain/timeslot"
	"lounge-booking/internal/handler/api"
	resdto "lounge-booking/internal/handler/dto/response"
	"lounge-booking/internal/handler/middleware"
	"lounge-booking/internal/pkg/errs"
	"lounge-booking/internal/usecase/commands"
	"lounge-booking/internal/usecase/queries"
	"lounge-booking/tests/common/builder"
	"lounge-booking/tests/common/httptest"
	"lounge-booking/tests/common/testutil"
	commandsmock "lounge-booking/tests/mock/commands"
	queriesmock "lounge-booking/tests/mock/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type ReservationHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCtrl     *gomock.Controller
	mockCommands *commandsmock.MockBookingCommands
	mockQueries  *queriesmock.MockReservationQueries
	handler      *api.ReservationHandler
}

func (s *ReservationHandlerTestSuite) SetupTest() {
	s.router = httptest.NewTestEngine()
	s.router.Use(middleware.ErrorHandler())

	s.mockCtrl = gomock.NewController(s.T())
	s.mockCommands = commandsmock.NewMockBookingCommands(s.mockCtrl)
	s.mockQueries = queriesmock.NewMockReservationQueries(s.mockCtrl)
	s.handler = api.NewReservationHandler(s.mockCommands, s.mockQueries)

	s.router.POST("/reservations", s.handler.Create)
	s.router.GET("/reservations/:id", s.handler.Get)
	s.router.GET("/reservations/:id/usage", s.handler.Usage)
	s.router.POST("/reservations/:id/start", s.handler.Start)
	s.router.POST("/reservations/:id/end", s.handler.End)
	s.router.POST("/reservations/:id/cancel", s.handler.Cancel)
	s.router.POST("/reservations/:id/extend", s.handler.Extend)
	s.router.GET("/resources/:id/reservations", s.handler.ListForResource)
}

func (s *ReservationHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestReservationHandlerSuite(t *testing.T) {
	suite.Run(t, new(ReservationHandlerTestSuite))
}

type testCaseReservation struct {
	name         string
	mutate       func(m map[string]any)
	expectCode   int
	expectInBody string
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Detail map[string]any `json:"detail"`
}

func (s *ReservationHandlerTestSuite) decodeError(body []byte) errorBody {
	var out errorBody
	s.Require().NoError(json.Unmarshal(body, &out), string(body))
	return out
}

// ================================================================================
// TestCreate
// ================================================================================

func (s *ReservationHandlerTestSuite) TestCreate() {
	url := "/reservations"

	b := builder.NewReservationBuilder()
	reqBody := b.BuildCreateRequestDTO()
	view := b.BuildView()

	validation := []testCaseReservation{
		{name: "missing field: startTime (required)", mutate: testutil.Field("startTime", nil), expectCode: http.StatusBadRequest},
		{name: "missing field: customer (required)", mutate: testutil.Field("customer", nil), expectCode: http.StatusBadRequest},
		{name: "missing field: resources (required)", mutate: testutil.Field("resources", nil), expectCode: http.StatusBadRequest},
		{name: "empty resources", mutate: testutil.Field("resources", []any{}), expectCode: http.StatusBadRequest},
		{name: "occupancy below 1", mutate: testutil.Field("resources", []any{map[string]any{"resourceId": uuid.NewString(), "occupancy": 0}}), expectCode: http.StatusBadRequest},
		{name: "malformed startTime", mutate: testutil.Field("startTime", "tomorrow at ten"), expectCode: http.StatusBadRequest},
		{name: "empty customer name", mutate: testutil.Field("customer", map[string]any{"name": "", "contact": "a@b.c"}), expectCode: http.StatusBadRequest},
	}

	s.Run("success: returns 201 Created with the reservation", func() {
		s.mockCommands.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, in commands.CreateBookingInput) (*commands.CreateBookingResult, error) {
				s.Nil(in.IdempotencyKey)
				s.Equal(reqBody.DurationMinutes, in.DurationMinutes)
				s.Equal(reqBody.Customer.Name, in.Customer.Name)
				s.Len(in.Assignments, len(reqBody.Resources))
				return &commands.CreateBookingResult{Reservation: view}, nil
			}).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody)

		var body resdto.ReservationResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &body)
		s.Equal(view.ID, body.ID)
		s.Equal("booked", body.Status)
		s.Equal(view.Slot, body.Slot)
		s.Len(body.Assignments, 1)
		httptest.AssertHeaders(s.T(), rec, map[string]string{"Location": "/api/reservations/" + view.ID.String()})
	})

	s.Run("success: replay returns 200 and forwards the Idempotency-Key", func() {
		key := uuid.New()
		s.mockCommands.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, in commands.CreateBookingInput) (*commands.CreateBookingResult, error) {
				s.Require().NotNil(in.IdempotencyKey)
				s.Equal(key, *in.IdempotencyKey)
				return &commands.CreateBookingResult{Reservation: view, IsReplayed: true}, nil
			}).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, httptest.IdempotencyKey(key))

		var body resdto.ReservationResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(view.ID, body.ID)
	})

	s.Run("error: 400 Bad Request on validation errors", func() {
		for _, tc := range validation {
			s.Run(tc.name, func() {
				requestMap := testutil.DtoMap(s.T(), reqBody, tc.mutate)
				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, requestMap)
				s.Equal(tc.expectCode, rec.Code, rec.Body.String())
			})
		}
	})

	s.Run("error: 400 Bad Request on malformed Idempotency-Key", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody,
			map[string]string{"Idempotency-Key": "not-a-uuid"})
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Idempotency-Key")
	})

	cases := []struct {
		name       string
		err        error
		expectCode int
		expectMsg  string
	}{
		{name: "invalid duration", err: timeslot.ErrInvalidDuration, expectCode: http.StatusBadRequest, expectMsg: "duration"},
		{name: "unknown resource", err: errs.Wrapf(errs.ErrResourceNotFound, "resource %s", uuid.New()), expectCode: http.StatusNotFound, expectMsg: "Resource not found"},
		{name: "key reused", err: errs.ErrIdempotencyKeyReused, expectCode: http.StatusConflict, expectMsg: "Idempotency key"},
		{name: "key in progress", err: errs.Mark(errs.New("duplicate key"), errs.ErrIdempotencyInProgress), expectCode: http.StatusConflict, expectMsg: "being processed"},
		{name: "rejected by a store check", err: errs.Mark(errs.New("violates check constraint"), errs.ErrRejectedByStore), expectCode: http.StatusBadRequest, expectMsg: "rejected as invalid"},
		{name: "unexpected", err: errs.New("boom"), expectCode: http.StatusInternalServerError, expectMsg: "Internal server error"},
	}
	for _, tc := range cases {
		s.Run("error: "+tc.name, func() {
			s.mockCommands.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, tc.err).Times(1)
			rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody)
			httptest.AssertErrorResponse(s.T(), rec, tc.expectCode, tc.expectMsg)
		})
	}

	s.Run("error: 409 Conflict names the resource and the holder", func() {
		resourceID, holder := uuid.New(), uuid.New()
		s.mockCommands.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(nil, &domreservation.ResourceUnavailableError{ResourceID: resourceID, ConflictingReservationID: holder}).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody)

		s.Equal(http.StatusConflict, rec.Code)
		body := s.decodeError(rec.Body.Bytes())
		s.Equal(resourceID.String(), body.Detail["resourceId"])
		s.Equal(holder.String(), body.Detail["conflictingReservationId"])
	})

	s.Run("error: 409 Conflict from the store alone has a null holder", func() {
		resourceID := uuid.New()
		s.mockCommands.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(nil, &domreservation.ResourceUnavailableError{ResourceID: resourceID}).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody)

		s.Equal(http.StatusConflict, rec.Code)
		body := s.decodeError(rec.Body.Bytes())
		s.Contains(body.Detail, "conflictingReservationId")
		s.Nil(body.Detail["conflictingReservationId"])
	})

	s.Run("error: 503 with Retry-After when the store is unavailable", func() {
		s.mockCommands.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(nil, errs.Mark(errs.New("deadline exceeded"), errs.ErrStoreUnavailable)).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody)

		httptest.AssertErrorResponse(s.T(), rec, http.StatusServiceUnavailable, "retry")
		s.NotEmpty(rec.Header().Get("Retry-After"))
	})
}

// ================================================================================
// TestGet / TestListForResource / TestUsage
// ================================================================================

func (s *ReservationHandlerTestSuite) TestGet() {
	view := builder.NewReservationBuilder().BuildView()

	s.Run("success: returns the reservation", func() {
		s.mockQueries.EXPECT().GetByID(gomock.Any(), view.ID).Return(view, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/reservations/"+view.ID.String(), nil)

		var body resdto.ReservationResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(view.ID, body.ID)
		s.Equal(view.CustomerName, body.CustomerName)
		s.True(view.Start.Equal(body.Start))
	})

	s.Run("error: 400 on a malformed id", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/reservations/abc", nil)
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid reservation id")
	})

	s.Run("error: 404 when the reservation does not exist", func() {
		id := uuid.New()
		s.mockQueries.EXPECT().GetByID(gomock.Any(), id).
			Return(nil, errs.Mark(errs.New("no rows"), errs.ErrReservationNotFound)).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/reservations/"+id.String(), nil)
		httptest.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "Reservation not found")
	})
}

func (s *ReservationHandlerTestSuite) TestListForResource() {
	resourceID := uuid.New()
	views := []*builder.ReservationBuilder{
		builder.NewReservationBuilder().WithResources(resourceID),
		builder.NewReservationBuilder().WithResources(resourceID).WithWindow(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC), 30),
	}

	s.Run("success: parses a comma separated status filter", func() {
		s.mockQueries.EXPECT().
			ListForResource(gomock.Any(), resourceID, []domreservation.Status{domreservation.StatusBooked, domreservation.StatusInUse}).
			Return([]*queries.ReservationView{views[0].BuildView(), views[1].BuildView()}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/resources/"+resourceID.String()+"/reservations?status=booked,in_use", nil)

		var body []resdto.ReservationResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Len(body, 2)
	})

	s.Run("success: no filter passes nil statuses", func() {
		s.mockQueries.EXPECT().ListForResource(gomock.Any(), resourceID, gomock.Nil()).Return(nil, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/resources/"+resourceID.String()+"/reservations", nil)

		var body []resdto.ReservationResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Empty(body)
	})

	s.Run("error: 400 on an unknown status", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/resources/"+resourceID.String()+"/reservations?status=paused", nil)
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid status filter")
	})

	s.Run("error: 404 on an unknown resource", func() {
		other := uuid.New()
		s.mockQueries.EXPECT().ListForResource(gomock.Any(), other, gomock.Any()).
			Return(nil, errs.Wrapf(errs.ErrResourceNotFound, "resource %s", other)).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/resources/"+other.String()+"/reservations", nil)
		httptest.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "Resource not found")
	})
}

func (s *ReservationHandlerTestSuite) TestUsage() {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	res := builder.NewReservationBuilder().AsCompleted(start.Add(5*time.Minute), start.Add(65*time.Minute)).MustBuild()
	usage := res.Usage()

	s.mockQueries.EXPECT().Usage(gomock.Any(), res.ID()).Return(&queries.UsageView{
		ReservationID:   usage.ReservationID,
		Status:          usage.Status.String(),
		ScheduledStart:  usage.ScheduledStart,
		ScheduledEnd:    usage.ScheduledEnd,
		BillableStart:   usage.BillableStart,
		BillableEnd:     usage.BillableEnd,
		BillableMinutes: usage.BillableMinutes,
		PlayerMinutes:   usage.PlayerMinutes(),
		Final:           usage.Final,
	}, nil).Times(1)

	rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/reservations/"+res.ID().String()+"/usage", nil)

	var body resdto.UsageResponse
	httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
	s.Equal(res.ID(), body.ReservationID)
	s.Equal(usage.BillableMinutes, body.BillableMinutes)
	s.Equal(usage.PlayerMinutes(), body.PlayerMinutes)
	s.Equal(usage.Final, body.Final)
	s.True(body.Final)
}

// ================================================================================
// Lifecycle transitions
// ================================================================================

func (s *ReservationHandlerTestSuite) TestStart() {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	b := builder.NewReservationBuilder().AsInUse(start)
	view := b.BuildView()

	s.Run("success: returns the in-use reservation", func() {
		s.mockCommands.EXPECT().Start(gomock.Any(), view.ID).Return(view, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/reservations/"+view.ID.String()+"/start", nil)

		var body resdto.ReservationResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal("in_use", body.Status)
		s.Require().NotNil(body.ActualStart)
	})

	s.Run("error: 422 reports the current status and requested transition", func() {
		s.mockCommands.EXPECT().Start(gomock.Any(), view.ID).
			Return(nil, &domreservation.IllegalTransitionError{Current: domreservation.StatusCancelled, Requested: domreservation.TransitionStart}).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/reservations/"+view.ID.String()+"/start", nil)

		s.Equal(http.StatusUnprocessableEntity, rec.Code)
		body := s.decodeError(rec.Body.Bytes())
		s.Equal("cancelled", body.Detail["currentStatus"])
		s.Equal("start", body.Detail["requestedTransition"])
	})
}

func (s *ReservationHandlerTestSuite) TestEnd() {
	id := uuid.New()
	view := builder.NewReservationBuilder().WithID(id).WithStatus(domreservation.StatusCompleted).BuildView()

	s.Run("success: empty body ends now", func() {
		s.mockCommands.EXPECT().End(gomock.Any(), id, gomock.Nil()).Return(view, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/reservations/"+id.String()+"/end", nil)
		s.Equal(http.StatusOK, rec.Code, rec.Body.String())
	})

	s.Run("success: forwards actualEnd", func() {
		actualEnd := time.Date(2026, 3, 14, 10, 50, 0, 0, time.UTC)
		s.mockCommands.EXPECT().End(gomock.Any(), id, gomock.Any()).
			DoAndReturn(func(_ any, _ uuid.UUID, got *time.Time) (*queries.ReservationView, error) {
				s.Require().NotNil(got)
				s.True(actualEnd.Equal(*got))
				return view, nil
			}).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/reservations/"+id.String()+"/end",
			map[string]any{"actualEnd": actualEnd.Format(time.RFC3339)})
		s.Equal(http.StatusOK, rec.Code, rec.Body.String())
	})

	s.Run("error: 400 when ending before the actual start", func() {
		s.mockCommands.EXPECT().End(gomock.Any(), id, gomock.Any()).
			Return(nil, domreservation.ErrActualEndBeforeStart).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/reservations/"+id.String()+"/end",
			map[string]any{"actualEnd": "2026-03-14T09:00:00Z"})
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "actual end")
	})

	s.Run("error: 400 on malformed body", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/reservations/"+id.String()+"/end",
			map[string]any{"actualEnd": "later"})
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid request")
	})
}

func (s *ReservationHandlerTestSuite) TestCancel() {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	view := builder.NewReservationBuilder().AsCancelled(now).BuildView()

	s.mockCommands.EXPECT().Cancel(gomock.Any(), view.ID).Return(view, nil).Times(1)

	rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/reservations/"+view.ID.String()+"/cancel", nil)

	var body resdto.ReservationResponse
	httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
	s.Equal("cancelled", body.Status)
	s.Require().NotNil(body.CancelledAt)
}

func (s *ReservationHandlerTestSuite) TestExtend() {
	id := uuid.New()
	view := builder.NewReservationBuilder().WithID(id).WithWindow(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), 90).BuildView()

	s.Run("success: returns the widened window", func() {
		s.mockCommands.EXPECT().Extend(gomock.Any(), id, 30).Return(view, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/reservations/"+id.String()+"/extend",
			map[string]any{"additionalMinutes": 30})

		var body resdto.ReservationResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(90, body.DurationMinutes)
	})

	s.Run("error: 409 names the blocking reservation", func() {
		resourceID, holder := uuid.New(), uuid.New()
		s.mockCommands.EXPECT().Extend(gomock.Any(), id, 30).
			Return(nil, &domreservation.ExtensionConflictError{ReservationID: id, ResourceID: resourceID, ConflictingReservationID: holder}).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/reservations/"+id.String()+"/extend",
			map[string]any{"additionalMinutes": 30})

		s.Equal(http.StatusConflict, rec.Code)
		body := s.decodeError(rec.Body.Bytes())
		s.Equal(id.String(), body.Detail["reservationId"])
		s.Equal(resourceID.String(), body.Detail["resourceId"])
		s.Equal(holder.String(), body.Detail["conflictingReservationId"])
	})

	s.Run("error: 400 on non-positive minutes", func() {
		s.mockCommands.EXPECT().Extend(gomock.Any(), id, 0).Return(nil, timeslot.ErrInvalidDuration).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/reservations/"+id.String()+"/extend",
			map[string]any{"additionalMinutes": 0})
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "duration")
	})
}
