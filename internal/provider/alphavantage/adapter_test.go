package alphavantage_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"stockreport/internal/provider"
	alphavantage "stockreport/internal/provider/alphavantage"
)

func TestAdapter_MissingKey_NoNetworkCall(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: no request may be made without a key
	httpClient.EXPECT().Do(gomock.Any()).Times(0)

	client, err := alphavantage.NewAPIClient("", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)
	a := alphavantage.New(alphavantage.Config{RequireKey: true}, client)

	q, err := a.Fetch(testContext(t), provider.NewSymbol("IBM", "IBM"))
	require.Nil(t, q)
	require.True(t, errors.Is(err, provider.ErrMissingCredential))

	points, err := a.History(testContext(t), provider.NewSymbol("IBM", "IBM"), 30)
	require.Nil(t, points)
	require.True(t, errors.Is(err, provider.ErrMissingCredential))
}

func TestAdapter_KeyOptional_CallsWithoutKey(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.False(t, req.URL.Query().Has("apikey"))
			return fixtureResponse(t, "fixtures/overview.json"), nil
		}).
		Times(1)

	client, err := alphavantage.NewAPIClient("", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)
	a := alphavantage.New(alphavantage.Config{RequireKey: false}, client)

	q, err := a.Fetch(testContext(t), provider.NewSymbol("IBM", "IBM"))
	require.NoError(t, err)
	require.NotNil(t, q)
}

func TestAdapter_Primary_UsesOverview(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "OVERVIEW", req.URL.Query().Get("function"))
			return fixtureResponse(t, "fixtures/overview.json"), nil
		}).
		Times(1)

	client, err := alphavantage.NewAPIClient("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)
	a := alphavantage.New(alphavantage.Config{}, client)
	require.Equal(t, alphavantage.Name, a.Name())

	// Act
	q, err := a.Fetch(testContext(t), provider.NewSymbol("IBM", "IBM"))
	require.NoError(t, err)
	require.NotNil(t, q)

	// Assert: ratios are normalized, fields the overview lacks stay absent
	require.Equal(t, "av", q.Source)
	require.True(t, q.PERatio.Equal(decimal.RequireFromString("21.76")))
	require.True(t, q.PEGRatio.Equal(decimal.RequireFromString("4.395")))
	require.True(t, q.PriceToSales.Equal(decimal.RequireFromString("2.913")))
	require.True(t, q.DividendYield.Equal(decimal.RequireFromString("0.0385")))
	require.True(t, q.OperatingMargin.Equal(decimal.RequireFromString("0.158")))
	require.Nil(t, q.DebtToEquity)
	require.Nil(t, q.Volume)
	require.Empty(t, q.LatestTradingDay)
}

func TestAdapter_Secondary_UsesLatestDailyBar(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "TIME_SERIES_DAILY", req.URL.Query().Get("function"))
			return fixtureResponse(t, "fixtures/daily.json"), nil
		}).
		Times(1)

	client, err := alphavantage.NewAPIClient("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)
	a := alphavantage.New(alphavantage.Config{}, client)

	sym := provider.NewSymbol("RY.TRT", "Royal Bank of Canada")
	require.Equal(t, provider.Secondary, sym.Market)

	q, err := a.Fetch(testContext(t), sym)
	require.NoError(t, err)

	require.Equal(t, "RY.TRT", q.Symbol)
	require.Equal(t, "Royal Bank of Canada", q.Name)
	require.Equal(t, "2024-07-19", q.LatestTradingDay)
	require.True(t, q.Price.Equal(decimal.RequireFromString("154.62")))
	require.NotNil(t, q.Volume)
	require.Equal(t, int64(4081733), *q.Volume)
	require.Nil(t, q.PEGRatio)
}

func TestAdapter_History_TrailingOldestFirst(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(fixtureResponse(t, "fixtures/daily.json"), nil).
		Times(1)

	client, err := alphavantage.NewAPIClient("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)
	a := alphavantage.New(alphavantage.Config{}, client)

	points, err := a.History(testContext(t), provider.NewSymbol("RY.TRT", "Royal Bank of Canada"), 3)
	require.NoError(t, err)
	require.Len(t, points, 3)
	require.Equal(t, "2024-07-17", points[0].Date)
	require.Equal(t, "2024-07-19", points[2].Date)
	require.True(t, points[2].Close.Equal(decimal.RequireFromString("154.62")))
}
