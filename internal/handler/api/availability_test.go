//go:build unit

package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lounge-booking/internal/handler/api"
	resdto "lounge-booking/internal/handler/dto/response"
	"lounge-booking/internal/handler/middleware"
	"lounge-booking/internal/pkg/errs"
	"lounge-booking/internal/usecase/queries"
	"lounge-booking/tests/common/builder"
	testhttp "lounge-booking/tests/common/httptest"
	queriesmock "lounge-booking/tests/mock/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type AvailabilityHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCtrl     *gomock.Controller
	availability *queriesmock.MockAvailabilityQueries
	catalog      *queriesmock.MockCatalogQueries
}

func (s *AvailabilityHandlerTestSuite) SetupTest() {
	s.router = testhttp.NewTestEngine()
	s.router.Use(middleware.ErrorHandler())

	s.mockCtrl = gomock.NewController(s.T())
	s.availability = queriesmock.NewMockAvailabilityQueries(s.mockCtrl)
	s.catalog = queriesmock.NewMockCatalogQueries(s.mockCtrl)
	h := api.NewAvailabilityHandler(s.availability, s.catalog)

	s.router.GET("/availability", h.Availability)
	s.router.GET("/resources", h.Resources)
}

func (s *AvailabilityHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestAvailabilityHandlerSuite(t *testing.T) {
	suite.Run(t, new(AvailabilityHandlerTestSuite))
}

func (s *AvailabilityHandlerTestSuite) TestAvailability() {
	ps01, ps02 := uuid.New(), uuid.New()
	at := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	current := builder.NewReservationBuilder().WithResources(ps01).AsInUse(at.Add(-30 * time.Minute)).BuildView()

	s.Run("success: forwards ids and instants and maps nested reservations", func() {
		s.availability.EXPECT().ForResources(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, req queries.AvailabilityRequest) ([]*queries.AvailabilityView, error) {
				s.Equal([]uuid.UUID{ps01, ps02}, req.ResourceIDs)
				s.True(at.Equal(req.At), "at=%s", req.At)
				s.True(req.From.IsZero())
				return []*queries.AvailabilityView{
					{ResourceID: ps01, Category: "console_station", Serial: "PS-01", Status: "in_use", At: at, Current: current, NextPhase: "ends"},
					{ResourceID: ps02, Category: "console_station", Serial: "PS-02", Status: "available", At: at},
				}, nil
			}).Times(1)

		rec := testhttp.PerformRequest(s.T(), s.router, http.MethodGet,
			"/availability?resourceId="+ps01.String()+","+ps02.String()+"&at=2026-03-14T19:30:00%2B09:00", nil)

		var body []resdto.AvailabilityResponse
		testhttp.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Require().Len(body, 2)
		s.Equal("in_use", body[0].Status)
		s.Require().NotNil(body[0].Current)
		s.Equal(current.ID, body[0].Current.ID)
		s.Nil(body[0].Next)
		s.Equal("available", body[1].Status)
		s.Nil(body[1].Current)
	})

	s.Run("success: repeated resourceId params", func() {
		s.availability.EXPECT().ForResources(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, req queries.AvailabilityRequest) ([]*queries.AvailabilityView, error) {
				s.Equal([]uuid.UUID{ps01, ps02}, req.ResourceIDs)
				return []*queries.AvailabilityView{}, nil
			}).Times(1)

		rec := testhttp.PerformRequest(s.T(), s.router, http.MethodGet,
			"/availability?resourceId="+ps01.String()+"&resourceId="+ps02.String(), nil)
		s.Equal(http.StatusOK, rec.Code, rec.Body.String())
	})

	s.Run("error: 400 on a malformed resource id", func() {
		rec := testhttp.PerformRequest(s.T(), s.router, http.MethodGet, "/availability?resourceId=ps-01", nil)
		testhttp.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid resource id")
	})

	s.Run("error: 400 on a malformed instant", func() {
		rec := testhttp.PerformRequest(s.T(), s.router, http.MethodGet, "/availability?at=noon", nil)
		testhttp.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid query")
	})

	s.Run("error: 404 on an unknown resource", func() {
		s.availability.EXPECT().ForResources(gomock.Any(), gomock.Any()).
			Return(nil, errs.Wrapf(errs.ErrResourceNotFound, "resource %s", ps01)).Times(1)

		rec := testhttp.PerformRequest(s.T(), s.router, http.MethodGet, "/availability?resourceId="+ps01.String(), nil)
		testhttp.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "Resource not found")
	})

	s.Run("error: 503 when the store is unavailable", func() {
		s.availability.EXPECT().ForResources(gomock.Any(), gomock.Any()).
			Return(nil, errs.Mark(errs.New("timeout"), errs.ErrStoreUnavailable)).Times(1)

		rec := testhttp.PerformRequest(s.T(), s.router, http.MethodGet, "/availability", nil)
		testhttp.AssertErrorResponse(s.T(), rec, http.StatusServiceUnavailable, "")
		s.Equal("1", rec.Header().Get("Retry-After"))
	})
}

func (s *AvailabilityHandlerTestSuite) TestResources() {
	views := []*queries.ResourceView{
		queries.NewResourceView(builder.NewResourceBuilder().MustBuild()),
		queries.NewResourceView(builder.NewResourceBuilder().With(func(b *builder.ResourceBuilder) { b.Maintenance = true }).MustBuild()),
	}
	s.catalog.EXPECT().List(gomock.Any()).Return(views, nil).Times(1)

	rec := testhttp.PerformRequest(s.T(), s.router, http.MethodGet, "/resources", nil)

	var body []resdto.ResourceResponse
	testhttp.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
	s.Require().Len(body, 2)
	s.Equal(views[0].ID, body[0].ID)
	s.Equal(views[0].Serial, body[0].Serial)
	s.False(body[0].Maintenance)
	s.True(body[1].Maintenance)
}

type stubFeed struct {
	called bool
}

func (f *stubFeed) ServeWS(w http.ResponseWriter, _ *http.Request) error {
	f.called = true
	w.WriteHeader(http.StatusForbidden)
	return errs.New("origin not allowed")
}

func TestFeedHandler_Subscribe(t *testing.T) {
	feed := &stubFeed{}
	router := testhttp.NewTestEngine()
	router.GET("/ws/reservations", api.NewFeedHandler(feed).Subscribe)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/reservations", nil))

	assert.True(t, feed.called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
