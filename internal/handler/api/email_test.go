//go:build unit

package api_test

import (
	"errors"
	"net/http"
	"testing"

	"scheduled-mailer/internal/domain/email"
	"scheduled-mailer/internal/handler/api"
	resdto "scheduled-mailer/internal/handler/dto/response"
	"scheduled-mailer/internal/jobqueue"
	"scheduled-mailer/internal/pkg/errs"
	"scheduled-mailer/internal/usecase/commands"
	"scheduled-mailer/internal/usecase/readmodel"
	"scheduled-mailer/tests/common/builder"
	"scheduled-mailer/tests/common/httptest"
	"scheduled-mailer/tests/common/testutil"
	commandsmock "scheduled-mailer/tests/mock/commands"
	queriesmock "scheduled-mailer/tests/mock/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type EmailHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCtrl     *gomock.Controller
	mockCommands *commandsmock.MockEmailCommands
	mockQueries  *queriesmock.MockEmailQueries
	handler      *api.EmailHandler
	ownerID      uuid.UUID
}

func (s *EmailHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockCommands = commandsmock.NewMockEmailCommands(s.mockCtrl)
	s.mockQueries = queriesmock.NewMockEmailQueries(s.mockCtrl)
	s.handler = api.NewEmailHandler(s.mockCommands, s.mockQueries)
	s.ownerID = uuid.New()

	emails := s.router.Group("/emails", func(c *gin.Context) {
		// stands in for RequireAuth
		if c.GetHeader("Authorization") != "" {
			c.Set("user_id", s.ownerID)
		}
		c.Next()
	})
	emails.GET("", s.handler.List)
	emails.POST("/schedule", s.handler.Schedule)
	emails.GET("/stats", s.handler.Stats)
	emails.DELETE("/:id", s.handler.Cancel)
	emails.POST("/:id/send", s.handler.SendNow)
}

func (s *EmailHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestEmailHandlerSuite(t *testing.T) {
	suite.Run(t, new(EmailHandlerTestSuite))
}

const token = "test-token"

func (s *EmailHandlerTestSuite) TestList() {
	s.Run("success: returns the caller's emails", func() {
		rows := []*readmodel.EmailRM{
			builder.NewEmailBuilder().WithOwner(s.ownerID).WithSubject("second").BuildReadModel(),
			builder.NewEmailBuilder().WithOwner(s.ownerID).WithSubject("first").BuildReadModel(),
		}
		s.mockQueries.EXPECT().List(gomock.Any(), s.ownerID).Return(rows, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/emails", nil, token)

		var response []resdto.EmailResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.Require().Len(response, 2)
		s.Equal("second", response[0].Subject)
		s.Equal(rows[0].ID.String(), response[0].ID)
		s.Equal("SCHEDULED", response[0].Status)
	})

	s.Run("success: empty list is an empty array", func() {
		s.mockQueries.EXPECT().List(gomock.Any(), s.ownerID).Return([]*readmodel.EmailRM{}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/emails", nil, token)
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`[]`, rec.Body.String())
	})

	s.Run("error: 401 without identity", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/emails", nil, "")
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("error: 500 when the store fails", func() {
		s.mockQueries.EXPECT().List(gomock.Any(), s.ownerID).Return(nil, errors.New("db down")).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/emails", nil, token)
		httptest.AssertErrorResponse(s.T(), rec, http.StatusInternalServerError, "Failed to list emails")
	})
}

func (s *EmailHandlerTestSuite) TestSchedule() {
	url := "/emails/schedule"
	b := builder.NewEmailBuilder().WithOwner(s.ownerID)
	reqBody := b.BuildDTO()
	created := b.MustBuildDomain()

	s.Run("success: returns 201 with the scheduled email", func() {
		s.mockCommands.EXPECT().Schedule(gomock.Any(), s.ownerID, reqBody.ToInput()).
			Return(&commands.ScheduleResult{Email: created, Durable: true}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, token)

		var response resdto.ScheduleEmailResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &response)
		s.Equal(created.ID().String(), response.ID)
		s.Equal("SCHEDULED", response.Status)
		s.Equal(b.ScheduledAt, response.ScheduledAt.UTC())
		s.Empty(response.Warnings)
	})

	s.Run("success: non-durable admission surfaces a warning", func() {
		s.mockCommands.EXPECT().Schedule(gomock.Any(), s.ownerID, reqBody.ToInput()).
			Return(&commands.ScheduleResult{
				Email:    created,
				Durable:  false,
				Warnings: []string{commands.WarningQueueNotDurable},
			}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, token)

		var response resdto.ScheduleEmailResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &response)
		s.Equal([]string{commands.WarningQueueNotDurable}, response.Warnings)
	})

	s.Run("error: 400 Bad Request on binding errors", func() {
		cases := []struct {
			name   string
			mutate func(m map[string]any)
		}{
			{name: "missing recipient", mutate: testutil.Field("recipient", nil)},
			{name: "missing subject", mutate: testutil.Field("subject", nil)},
			{name: "empty subject", mutate: testutil.Field("subject", "")},
		}
		for _, tc := range cases {
			s.Run(tc.name, func() {
				requestMap := testutil.DtoMap(s.T(), reqBody, tc.mutate)
				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, requestMap, token)
				httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid request")
			})
		}
	})

	s.Run("error: maps scheduler errors to proper statuses", func() {
		testCases := []struct {
			name           string
			err            error
			expectedStatus int
			expectedMsg    string
		}{
			{
				name:           "malformed scheduledAt",
				err:            errs.Wrap(email.ErrInvalidSchedule, "parse"),
				expectedStatus: http.StatusBadRequest,
				expectedMsg:    "Invalid scheduledAt",
			},
			{
				name:           "scheduledAt in the past",
				err:            email.ErrPastSchedule,
				expectedStatus: http.StatusBadRequest,
				expectedMsg:    "scheduledAt must be in the future",
			},
			{
				name:           "invalid recipient",
				err:            errs.Mark(email.ErrInvalidRecipient, errs.ErrDomainValidation),
				expectedStatus: http.StatusBadRequest,
				expectedMsg:    "Invalid email",
			},
			{
				name:           "no queue at all",
				err:            errs.Mark(errors.New("redis: connection refused"), jobqueue.ErrQueueUnavailable),
				expectedStatus: http.StatusServiceUnavailable,
				expectedMsg:    "Delivery queue unavailable",
			},
			{
				name:           "unexpected failure",
				err:            errors.New("boom"),
				expectedStatus: http.StatusInternalServerError,
				expectedMsg:    "Failed to schedule email",
			},
		}

		for _, tc := range testCases {
			s.Run(tc.name, func() {
				s.mockCommands.EXPECT().Schedule(gomock.Any(), s.ownerID, reqBody.ToInput()).
					Return(nil, tc.err).Times(1)

				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, token)
				httptest.AssertErrorResponse(s.T(), rec, tc.expectedStatus, tc.expectedMsg)
			})
		}
	})
}

func (s *EmailHandlerTestSuite) TestStats() {
	s.Run("success: returns counts per status", func() {
		s.mockQueries.EXPECT().Stats(gomock.Any(), s.ownerID).
			Return(&readmodel.EmailStatsRM{Total: 3, Sent: 1, Scheduled: 1, Failed: 1}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/emails/stats", nil, token)

		var response resdto.StatsResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.Equal(resdto.StatsResponse{Total: 3, Sent: 1, Scheduled: 1, Failed: 1}, response)
	})
}

func (s *EmailHandlerTestSuite) TestCancel() {
	id := uuid.New()
	url := "/emails/" + id.String()

	s.Run("success: 200 when removed", func() {
		s.mockCommands.EXPECT().Cancel(gomock.Any(), s.ownerID, id).Return(nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, url, nil, token)

		var response resdto.MessageResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.Equal("Email cancelled and removed", response.Message)
	})

	s.Run("success: 200 even when the email does not exist", func() {
		s.mockCommands.EXPECT().Cancel(gomock.Any(), s.ownerID, id).Return(commands.ErrEmailNotFound).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, url, nil, token)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("error: 400 on malformed id", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, "/emails/not-a-uuid", nil, token)
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid id")
	})

	s.Run("error: 500 on store failure", func() {
		s.mockCommands.EXPECT().Cancel(gomock.Any(), s.ownerID, id).Return(errors.New("db down")).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, url, nil, token)
		httptest.AssertErrorResponse(s.T(), rec, http.StatusInternalServerError, "Failed to cancel email")
	})
}

func (s *EmailHandlerTestSuite) TestSendNow() {
	record := builder.NewEmailBuilder().WithOwner(s.ownerID).MustBuildDomain()
	url := "/emails/" + record.ID().String() + "/send"

	s.Run("success: triggers processing", func() {
		s.mockCommands.EXPECT().SendNow(gomock.Any(), s.ownerID, record.ID()).Return(record, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, token)

		var response resdto.SendNowResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.Equal("Email processing triggered", response.Message)
		s.Require().NotNil(response.Email)
		s.Equal(record.ID().String(), response.Email.ID)
	})

	s.Run("error: 404 when not found", func() {
		s.mockCommands.EXPECT().SendNow(gomock.Any(), s.ownerID, record.ID()).
			Return(nil, commands.ErrEmailNotFound).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, token)
		httptest.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "Email not found")
	})

	s.Run("error: 503 when no queue accepts the job", func() {
		s.mockCommands.EXPECT().SendNow(gomock.Any(), s.ownerID, record.ID()).
			Return(nil, errs.Mark(errors.New("down"), jobqueue.ErrQueueUnavailable)).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, token)
		httptest.AssertErrorResponse(s.T(), rec, http.StatusServiceUnavailable, "Delivery queue unavailable")
	})
}
