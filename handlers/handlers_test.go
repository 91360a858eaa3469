package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fenilmodi00/country-currency-api/database"
	"github.com/fenilmodi00/country-currency-api/models"
	"github.com/fenilmodi00/country-currency-api/services"
	"github.com/fenilmodi00/country-currency-api/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testlandCountries = `[{"name":"Testland","capital":"Test City","region":"Nowhere","population":1000000,"currencies":[{"code":"TST"}]}]`

const testlandRates = `{"result":"success","base_code":"USD","rates":{"USD":1,"TST":2.0}}`

type testEnv struct {
	app           *fiber.App
	store         *database.MemoryStore
	countriesBody string
	countriesCode int
}

// newTestEnv wires the full stack on a memory store with httptest providers
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:         database.NewMemoryStore(),
		countriesBody: testlandCountries,
		countriesCode: http.StatusOK,
	}

	countriesSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(env.countriesCode)
		io.WriteString(w, env.countriesBody)
	}))
	t.Cleanup(countriesSrv.Close)
	ratesSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, testlandRates)
	}))
	t.Cleanup(ratesSrv.Close)

	unified := shared.NewDefaultUnifiedConfiguration()
	unified.Artifact.Directory = filepath.Join(t.TempDir(), "cache")

	registry := prometheus.NewRegistry()
	metrics := shared.NewAppMetrics(registry)

	artifact, err := services.NewSummaryArtifact(unified.Artifact)
	require.NoError(t, err)

	countryService := services.NewCountryService(env.store)
	cached := services.NewCachedCountryService(countryService, services.NewCacheService(unified.Cache, metrics))
	refresh := services.NewRefreshService(
		services.NewRestCountriesClient(countriesSrv.URL, countriesSrv.Client(), metrics),
		services.NewExchangeRateClient(ratesSrv.URL, ratesSrv.Client(), metrics),
		env.store, artifact, services.NewLocalRefreshLocker(time.Second), metrics,
	)
	refresh.AddListener(cached)

	env.app = NewApp(Router{
		Country:  NewCountryHandler(cached, refresh, artifact),
		Status:   NewStatusHandler(cached, env.store),
		Admin:    NewAdminHandler(cached),
		Metrics:  metrics,
		Gatherer: registry,
		CacheDir: unified.Artifact.Directory,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, target string) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.app.Test(httptest.NewRequest(method, target, nil), -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestRefreshAndQueryFlow(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/countries/refresh")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	refreshed := decode[map[string]interface{}](t, body)
	assert.Equal(t, "Countries data refreshed successfully", refreshed["message"])
	assert.Equal(t, 1.0, refreshed["total_countries"])
	assert.NotEmpty(t, refreshed["timestamp"])

	resp, body = env.do(t, http.MethodGet, "/countries/Testland")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	country := decode[models.Country](t, body)
	require.NotNil(t, country.CurrencyCode)
	assert.Equal(t, "TST", *country.CurrencyCode)
	require.NotNil(t, country.ExchangeRate)
	assert.Equal(t, 2.0, *country.ExchangeRate)
	require.NotNil(t, country.EstimatedGDP)
	assert.GreaterOrEqual(t, *country.EstimatedGDP, 500000000.0)
	assert.Less(t, *country.EstimatedGDP, 1000000000.0)

	resp, body = env.do(t, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[map[string]interface{}](t, body)
	assert.Equal(t, 1.0, status["total_countries"])
	assert.NotNil(t, status["last_refreshed_at"])

	resp, body = env.do(t, http.MethodGet, "/countries/image")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(string(body), "\x89PNG"))

	resp, _ = env.do(t, http.MethodGet, "/cache/summary.png")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusBeforeRefresh(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/status")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[map[string]interface{}](t, body)
	assert.Equal(t, 0.0, status["total_countries"])
	assert.Nil(t, status["last_refreshed_at"])
}

func TestImageBeforeRefresh(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/countries/image")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Summary image not found", decode[map[string]string](t, body)["error"])
}

func TestGetCountries_FiltersAndSort(t *testing.T) {
	env := newTestEnv(t)
	env.countriesBody = `[
		{"name":"Nigeria","region":"Africa","population":206139589,"currencies":[{"code":"NGN"}]},
		{"name":"Ghana","region":"Africa","population":31072940,"currencies":[{"code":"GHS"}]},
		{"name":"Testland","region":"Nowhere","population":1000000,"currencies":[{"code":"TST"}]}
	]`
	resp, _ := env.do(t, http.MethodPost, "/countries/refresh")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/countries?region=africa&sort=population_asc")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	countries := decode[[]models.Country](t, body)
	require.Len(t, countries, 2)
	assert.Equal(t, "Ghana", countries[0].Name)
	assert.Equal(t, "Nigeria", countries[1].Name)

	resp, body = env.do(t, http.MethodGet, "/countries?currency=tst")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	countries = decode[[]models.Country](t, body)
	require.Len(t, countries, 1)
	assert.Equal(t, "Testland", countries[0].Name)

	// NGN and GHS have no rate, so their GDP is zero and Testland leads
	resp, body = env.do(t, http.MethodGet, "/countries?sort=gdp_desc")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	countries = decode[[]models.Country](t, body)
	require.Len(t, countries, 3)
	assert.Equal(t, "Testland", countries[0].Name)

	resp, body = env.do(t, http.MethodGet, "/countries?region=Atlantis")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestGetCountry_CaseInsensitiveAndEncoded(t *testing.T) {
	env := newTestEnv(t)
	env.countriesBody = `[{"name":"United Kingdom","population":67000000,"currencies":[{"code":"GBP"}]}]`
	resp, _ := env.do(t, http.MethodPost, "/countries/refresh")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/countries/united%20KINGDOM")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "United Kingdom", decode[models.Country](t, body).Name)
}

func TestGetCountry_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/countries/Atlantis")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Country not found"}`, string(body))
}

func TestDeleteCountry(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, http.MethodPost, "/countries/refresh")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/countries/Testland")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = env.do(t, http.MethodDelete, "/countries/testland")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Country 'testland' deleted successfully", decode[map[string]string](t, body)["message"])

	resp, _ = env.do(t, http.MethodGet, "/countries/Testland")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = env.do(t, http.MethodDelete, "/countries/testland")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Country not found"}`, string(body))

	resp, body = env.do(t, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0.0, decode[map[string]interface{}](t, body)["total_countries"])
}

func TestRefresh_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	env.countriesCode = http.StatusInternalServerError
	env.countriesBody = `{"message":"boom"}`

	resp, body := env.do(t, http.MethodPost, "/countries/refresh")

	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	payload := decode[map[string]string](t, body)
	assert.Equal(t, "External data source unavailable", payload["error"])
	assert.Contains(t, payload["details"], "Could not fetch data from 127.0.0.1")

	count, err := env.store.CountCountries(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRefresh_MalformedPayload(t *testing.T) {
	env := newTestEnv(t)
	env.countriesBody = `{"not":"a list"}`

	resp, _ := env.do(t, http.MethodPost, "/countries/refresh")

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRootHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	root := decode[map[string]interface{}](t, body)
	assert.Equal(t, "Country Currency & Exchange API", root["message"])
	assert.Contains(t, root["endpoints"], "POST /countries/refresh")

	resp, body = env.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]interface{}](t, body)["status"])

	resp, body = env.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "http_requests_total")
}

func TestAdminCache(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/status")

	resp, body := env.do(t, http.MethodGet, "/admin/cache")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[map[string]interface{}](t, body)
	assert.Equal(t, true, stats["success"])

	resp, _ = env.do(t, http.MethodDelete, "/admin/cache")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type failingQuerier struct{}

func (failingQuerier) ListCountries(ctx context.Context, filter models.CountryFilter) ([]models.Country, error) {
	return nil, errors.New("pq: connection refused")
}

func (failingQuerier) GetCountry(ctx context.Context, name string) (*models.Country, error) {
	return nil, errors.New("pq: connection refused")
}

func (failingQuerier) DeleteCountry(ctx context.Context, name string) error {
	return errors.New("pq: connection refused")
}

func (failingQuerier) GetStatus(ctx context.Context) (*models.RefreshStatus, error) {
	return nil, errors.New("pq: connection refused")
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

type failingRefresher struct{ err error }

func (f failingRefresher) Refresh(ctx context.Context) (*models.RefreshResult, error) {
	return nil, f.err
}

func newFailingApp(refreshErr error) *fiber.App {
	return NewApp(Router{
		Country: NewCountryHandler(failingQuerier{}, failingRefresher{err: refreshErr}, nil),
		Status:  NewStatusHandler(failingQuerier{}, failingPinger{}),
		Admin:   NewAdminHandler(services.NewCachedCountryService(failingQuerier{}, services.NewCacheService(shared.CacheConfig{DefaultTTL: time.Minute, MaxSize: 10}, nil))),
	})
}

func TestQueryErrorsHideDetails(t *testing.T) {
	app := newFailingApp(errors.New("unused"))

	for _, target := range []string{"/countries", "/countries/Testland", "/status"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, target)
		assert.JSONEq(t, `{"error":"Internal server error"}`, string(body), target)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRefreshInternalErrorIncludesDetails(t *testing.T) {
	storeErr := shared.NewServiceError(shared.ErrorCategoryDatabase, shared.CodeStoreFailure,
		"upsert country \"Testland\": connection reset", "PostgresStore", "UpsertCountry", nil)
	app := newFailingApp(storeErr)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/countries/refresh", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	payload := map[string]string{}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "Internal server error", payload["error"])
	assert.Contains(t, payload["details"], "connection reset")
}
