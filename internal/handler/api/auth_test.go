//go:build unit

package api_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"scheduled-mailer/internal/handler/api"
	resdto "scheduled-mailer/internal/handler/dto/response"
	"scheduled-mailer/internal/pkg/config"
	"scheduled-mailer/internal/pkg/cookie"
	"scheduled-mailer/internal/usecase"
	"scheduled-mailer/tests/common/builder"
	"scheduled-mailer/tests/common/httptest"
	"scheduled-mailer/tests/common/testutil"
	usecasemock "scheduled-mailer/tests/mock/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type AuthHandlerTestSuite struct {
	suite.Suite
	router   *gin.Engine
	mockCtrl *gomock.Controller
	mockAuth *usecasemock.MockAuthUseCase
	handler  *api.AuthHandler
}

func (s *AuthHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockAuth = usecasemock.NewMockAuthUseCase(s.mockCtrl)
	s.handler = api.NewAuthHandler(s.mockAuth, config.NewTestConfig())

	s.router.POST("/auth/demo", s.handler.DemoLogin)
	s.router.POST("/auth/logout", s.handler.Logout)
	s.router.GET("/auth/me", func(c *gin.Context) {
		// stands in for RequireAuth
		if c.GetHeader("Authorization") != "" {
			identity := builder.NewAuthBuilder().BuildIdentity()
			c.Set("user_id", identity.UserID)
			c.Set("identity", identity)
		}
		s.handler.Me(c)
	})
}

func (s *AuthHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerTestSuite))
}

type testCaseAuth struct {
	name       string
	mutate     func(m map[string]any)
	expectCode int
}

func (s *AuthHandlerTestSuite) issued(email, name string) *usecase.IssuedToken {
	b := &builder.AuthBuilder{Email: email, Name: name}
	return &usecase.IssuedToken{
		AccessToken: "test-jwt-token",
		ExpiresIn:   time.Hour,
		Identity:    b.BuildIdentity(),
	}
}

func (s *AuthHandlerTestSuite) TestDemoLogin() {
	url := "/auth/demo"
	reqBody := builder.NewAuthBuilder().BuildDTO()

	s.Run("success: returns token and sets cookie", func() {
		s.mockAuth.EXPECT().IssueDemoToken(gomock.Any(), reqBody.Email, reqBody.Name).
			Return(s.issued(reqBody.Email, reqBody.Name), nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "")

		var response resdto.LoginResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.Equal("test-jwt-token", response.AccessToken)
		s.Equal("Bearer", response.TokenType)
		s.EqualValues(3600, response.ExpiresIn)
		s.Equal(reqBody.Email, response.User.Email)
		s.Equal(usecase.OwnerIDFor(reqBody.Email).String(), response.User.ID)

		c := httptest.ExtractCookie(rec, cookie.AccessTokenCookieName)
		s.Require().NotNil(c)
		s.Equal("test-jwt-token", c.Value)
		s.True(c.HttpOnly)
	})

	s.Run("error: 400 Bad Request on validation errors", func() {
		cases := []testCaseAuth{
			{name: "valid email", mutate: testutil.Field("email", "valid@example.com"), expectCode: http.StatusOK},
			{name: "invalid email", mutate: testutil.Field("email", "not-an-address"), expectCode: http.StatusBadRequest},
			{name: "missing email", mutate: testutil.Field("email", nil), expectCode: http.StatusBadRequest},
			{name: "empty email", mutate: testutil.Field("email", ""), expectCode: http.StatusBadRequest},
			{name: "name boundary OK (100 chars)", mutate: testutil.Field("name", strings.Repeat("a", 100)), expectCode: http.StatusOK},
			{name: "name boundary invalid (101 chars)", mutate: testutil.Field("name", strings.Repeat("a", 101)), expectCode: http.StatusBadRequest},
		}

		for _, tc := range cases {
			s.Run(tc.name, func() {
				requestMap := testutil.DtoMap(s.T(), reqBody, tc.mutate)
				if tc.expectCode == http.StatusOK {
					email, _ := requestMap["email"].(string)
					name, _ := requestMap["name"].(string)
					s.mockAuth.EXPECT().IssueDemoToken(gomock.Any(), email, name).
						Return(s.issued(email, name), nil)
				}

				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, requestMap, "")
				if tc.expectCode == http.StatusOK {
					httptest.AssertSuccessResponse(s.T(), rec, tc.expectCode, nil)
				} else {
					httptest.AssertErrorResponse(s.T(), rec, tc.expectCode, "")
				}
			})
		}
	})

	s.Run("error: maps usecase errors to proper statuses", func() {
		testCases := []struct {
			name           string
			err            error
			expectedStatus int
			expectedMsg    string
		}{
			{
				name:           "identity rejected",
				err:            usecase.ErrInvalidIdentity,
				expectedStatus: http.StatusBadRequest,
				expectedMsg:    "Invalid email address",
			},
			{
				name:           "signing failure",
				err:            errors.New("signing failed"),
				expectedStatus: http.StatusInternalServerError,
				expectedMsg:    "Internal server error",
			},
		}

		for _, tc := range testCases {
			s.Run(tc.name, func() {
				s.mockAuth.EXPECT().IssueDemoToken(gomock.Any(), reqBody.Email, reqBody.Name).
					Return(nil, tc.err).Times(1)

				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "")
				httptest.AssertErrorResponse(s.T(), rec, tc.expectedStatus, tc.expectedMsg)
			})
		}
	})
}

func (s *AuthHandlerTestSuite) TestLogout() {
	s.Run("success: returns 204 and expires the cookie", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/auth/logout", nil, "")
		s.Equal(http.StatusNoContent, rec.Code)

		c := httptest.ExtractCookie(rec, cookie.AccessTokenCookieName)
		s.Require().NotNil(c)
		s.Empty(c.Value)
		s.Less(c.MaxAge, 0)
	})
}

func (s *AuthHandlerTestSuite) TestMe() {
	url := "/auth/me"

	s.Run("success: returns the authenticated identity", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "any-token")

		var response resdto.UserResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.Equal("sender@example.com", response.Email)
		s.Equal("Sender", response.Name)
	})

	s.Run("error: 401 without identity", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "")
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}
