package accountdelivery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-arno/peerbank/internal/domain"
	"github.com/go-arno/peerbank/internal/middleware"
	"github.com/go-arno/peerbank/pkg/errorspkg"
	"github.com/go-arno/peerbank/pkg/randompkg"
	"github.com/go-arno/peerbank/pkg/tokenpkg"
)

func randomAccount(owner string) domain.Account {
	return domain.Account{
		ID:      int32(randompkg.Intn(1000) + 1),
		Owner:   owner,
		Balance: randompkg.MoneyAmountBetween(100, 10000),
		Version: 1,
	}
}

func newTestServer(t *testing.T, h *Handler) (*gin.Engine, tokenpkg.Maker) {
	tokenMaker, err := tokenpkg.NewPasetoMaker(randompkg.String(32))
	require.NoError(t, err)

	gin.SetMode(gin.ReleaseMode)
	server := gin.New()

	authRoutes := server.Group("/").Use(middleware.AuthMiddleware(tokenMaker))
	authRoutes.POST("/accounts", h.Create)
	authRoutes.GET("/accounts/:id", h.Get)
	authRoutes.GET("/accounts", h.List)

	return server, tokenMaker
}

func TestCreateAPI(t *testing.T) {
	owner := randompkg.Owner()
	account := randomAccount(owner)

	testCases := []struct {
		name          string
		requestBody   gin.H
		buildStubs    func(service *MockService)
		checkResponse func(t *testing.T, recorder *httptest.ResponseRecorder)
	}{
		{
			name:        "OK",
			requestBody: gin.H{"balance": "1000"},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Create(gomock.Any(), gomock.Eq(owner), gomock.Eq("1000")).
					Times(1).
					Return(account, nil)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)

				var got response
				require.NoError(t, json.NewDecoder(recorder.Body).Decode(&got))
				require.Equal(t, account.ID, got.Data.Account.ID)
				require.Equal(t, account.Owner, got.Data.Account.Owner)
			},
		},
		{
			name:        "MissingBalance",
			requestBody: gin.H{},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Create(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(0)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name:        "InvalidBalance",
			requestBody: gin.H{"balance": "one hundred"},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Create(gomock.Any(), gomock.Eq(owner), gomock.Eq("one hundred")).
					Times(1).
					Return(domain.Account{}, domain.ErrInvalidAmount)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name:        "AccountAlreadyExists",
			requestBody: gin.H{"balance": "1000"},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Create(gomock.Any(), gomock.Eq(owner), gomock.Eq("1000")).
					Times(1).
					Return(domain.Account{}, domain.ErrAccountAlreadyExists)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusConflict, recorder.Code)
			},
		},
		{
			name:        "InternalError",
			requestBody: gin.H{"balance": "1000"},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Create(gomock.Any(), gomock.Eq(owner), gomock.Eq("1000")).
					Times(1).
					Return(domain.Account{}, errorspkg.ErrInternal)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusInternalServerError, recorder.Code)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			serviceMock := NewMockService(ctrl)
			tc.buildStubs(serviceMock)

			server, tokenMaker := newTestServer(t, NewHandler(serviceMock))

			body, err := json.Marshal(tc.requestBody)
			require.NoError(t, err)

			recorder := httptest.NewRecorder()
			request, err := http.NewRequest(http.MethodPost, "/accounts", bytes.NewReader(body))
			require.NoError(t, err)

			middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthTypeBearer, owner, time.Minute)

			server.ServeHTTP(recorder, request)
			tc.checkResponse(t, recorder)
		})
	}
}

func TestGetAPI(t *testing.T) {
	owner := randompkg.Owner()
	account := randomAccount(owner)

	testCases := []struct {
		name          string
		accountID     int32
		buildStubs    func(service *MockService)
		checkResponse func(t *testing.T, recorder *httptest.ResponseRecorder)
	}{
		{
			name:      "OK",
			accountID: account.ID,
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Get(gomock.Any(), gomock.Eq(account.ID)).
					Times(1).
					Return(account, nil)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)

				var got response
				require.NoError(t, json.NewDecoder(recorder.Body).Decode(&got))
				require.Equal(t, account.ID, got.Data.Account.ID)
				require.True(t, account.Balance.Equal(got.Data.Account.Balance))
			},
		},
		{
			name:      "NotFound",
			accountID: account.ID,
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Get(gomock.Any(), gomock.Eq(account.ID)).
					Times(1).
					Return(domain.Account{}, domain.ErrAccountNotFound)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusNotFound, recorder.Code)
			},
		},
		{
			name:      "OwnerMismatch",
			accountID: account.ID,
			buildStubs: func(service *MockService) {
				other := account
				other.Owner = randompkg.Owner()

				service.EXPECT().
					Get(gomock.Any(), gomock.Eq(account.ID)).
					Times(1).
					Return(other, nil)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusUnauthorized, recorder.Code)
			},
		},
		{
			name:      "InvalidID",
			accountID: 0,
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Times(0)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			serviceMock := NewMockService(ctrl)
			tc.buildStubs(serviceMock)

			server, tokenMaker := newTestServer(t, NewHandler(serviceMock))

			recorder := httptest.NewRecorder()
			url := fmt.Sprintf("/accounts/%d", tc.accountID)
			request, err := http.NewRequest(http.MethodGet, url, nil)
			require.NoError(t, err)

			middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthTypeBearer, owner, time.Minute)

			server.ServeHTTP(recorder, request)
			tc.checkResponse(t, recorder)
		})
	}
}

func TestListAPI(t *testing.T) {
	owner := randompkg.Owner()

	accounts := []domain.Account{
		{ID: 1, Owner: owner, Balance: decimal.NewFromInt(100), Version: 1},
		{ID: 2, Owner: owner, Balance: decimal.NewFromInt(200), Version: 1},
	}

	testCases := []struct {
		name          string
		query         string
		buildStubs    func(service *MockService)
		checkResponse func(t *testing.T, recorder *httptest.ResponseRecorder)
	}{
		{
			name:  "OK",
			query: "?page_id=1&page_size=10",
			buildStubs: func(service *MockService) {
				service.EXPECT().
					List(gomock.Any(), gomock.Eq(owner), gomock.Eq(int32(10)), gomock.Eq(int32(1))).
					Times(1).
					Return(accounts, nil)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)

				var got responseAccounts
				require.NoError(t, json.NewDecoder(recorder.Body).Decode(&got))
				require.Len(t, got.Data.Accounts, 2)
			},
		},
		{
			name:  "MissingPageID",
			query: "?page_size=10",
			buildStubs: func(service *MockService) {
				service.EXPECT().
					List(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Times(0)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name:  "InternalError",
			query: "?page_id=1&page_size=10",
			buildStubs: func(service *MockService) {
				service.EXPECT().
					List(gomock.Any(), gomock.Eq(owner), gomock.Eq(int32(10)), gomock.Eq(int32(1))).
					Times(1).
					Return(nil, errorspkg.ErrInternal)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusInternalServerError, recorder.Code)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			serviceMock := NewMockService(ctrl)
			tc.buildStubs(serviceMock)

			server, tokenMaker := newTestServer(t, NewHandler(serviceMock))

			recorder := httptest.NewRecorder()
			request, err := http.NewRequest(http.MethodGet, "/accounts"+tc.query, nil)
			require.NoError(t, err)

			middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthTypeBearer, owner, time.Minute)

			server.ServeHTTP(recorder, request)
			tc.checkResponse(t, recorder)
		})
	}
}
