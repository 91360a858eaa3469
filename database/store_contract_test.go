package database

import (
	"context"
	"testing"
	"time"

	"github.com/fenilmodi00/country-currency-api/models"
	"github.com/fenilmodi00/country-currency-api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func floatPtr(v float64) *float64 { return &v }

func fixtureCountries(ts time.Time) []models.Country {
	return []models.Country{
		{Name: "Nigeria", Capital: strPtr("Abuja"), Region: strPtr("Africa"), Population: 206139589,
			CurrencyCode: strPtr("NGN"), ExchangeRate: floatPtr(1600), EstimatedGDP: floatPtr(193000000), LastRefreshedAt: ts},
		{Name: "Ghana", Capital: strPtr("Accra"), Region: strPtr("Africa"), Population: 31072940,
			CurrencyCode: strPtr("GHS"), ExchangeRate: floatPtr(15), EstimatedGDP: floatPtr(3100000000), LastRefreshedAt: ts},
		{Name: "France", Capital: strPtr("Paris"), Region: strPtr("Europe"), Population: 67391582,
			CurrencyCode: strPtr("EUR"), ExchangeRate: floatPtr(0.92), EstimatedGDP: floatPtr(110000000000), LastRefreshedAt: ts},
		{Name: "Bouvet Island", Region: strPtr("Antarctic"), Population: 0, EstimatedGDP: nil, LastRefreshedAt: ts},
	}
}

func names(countries []models.Country) []string {
	out := make([]string, len(countries))
	for i, c := range countries {
		out[i] = c.Name
	}
	return out
}

// runStoreContract exercises the behavior every CountryStore must share.
// The store must be empty on entry.
func runStoreContract(t *testing.T, store CountryStore) {
	ctx := context.Background()
	ts := time.Date(2025, 10, 22, 18, 0, 0, 0, time.UTC)

	marker, err := store.GetLastRefreshedAt(ctx)
	require.NoError(t, err)
	assert.Nil(t, marker)

	for _, c := range fixtureCountries(ts) {
		country := c
		require.NoError(t, store.UpsertCountry(ctx, &country))
		assert.NotEmpty(t, country.ID)
	}

	t.Run("count", func(t *testing.T) {
		count, err := store.CountCountries(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
	})

	t.Run("get is case-insensitive", func(t *testing.T) {
		country, err := store.GetCountry(ctx, "nIgErIa")
		require.NoError(t, err)
		assert.Equal(t, "Nigeria", country.Name)
		assert.Equal(t, "Abuja", *country.Capital)
		assert.Equal(t, 1600.0, *country.ExchangeRate)
		assert.True(t, ts.Equal(country.LastRefreshedAt))

		bouvet, err := store.GetCountry(ctx, "bouvet island")
		require.NoError(t, err)
		assert.Nil(t, bouvet.Capital)
		assert.Nil(t, bouvet.CurrencyCode)
		assert.Nil(t, bouvet.EstimatedGDP)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := store.GetCountry(ctx, "Atlantis")
		require.Error(t, err)
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("names with pattern metacharacters match literally", func(t *testing.T) {
		for _, name := range []string{"A.B", "Saint_Martin (50%)"} {
			country := models.Country{Name: name, Region: strPtr("Test.Region"), LastRefreshedAt: ts}
			require.NoError(t, store.UpsertCountry(ctx, &country))
		}

		for _, pattern := range []string{"AxB", "A%", "a_b", "Saint Martin (50%)", "SaintXMartin (50%)", ".*"} {
			_, err := store.GetCountry(ctx, pattern)
			assert.True(t, shared.IsNotFound(err), "%q must not match", pattern)
			assert.True(t, shared.IsNotFound(store.DeleteCountry(ctx, pattern)), "%q must not delete", pattern)
		}

		got, err := store.GetCountry(ctx, "a.b")
		require.NoError(t, err)
		assert.Equal(t, "A.B", got.Name)

		countries, err := store.ListCountries(ctx, models.CountryFilter{Region: "TestXRegion"})
		require.NoError(t, err)
		assert.Empty(t, countries)

		require.NoError(t, store.DeleteCountry(ctx, "A.B"))
		require.NoError(t, store.DeleteCountry(ctx, "saint_martin (50%)"))
		count, err := store.CountCountries(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
	})

	t.Run("filters", func(t *testing.T) {
		africa, err := store.ListCountries(ctx, models.CountryFilter{Region: "AFRICA"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Nigeria", "Ghana"}, names(africa))

		euro, err := store.ListCountries(ctx, models.CountryFilter{Currency: "eur"})
		require.NoError(t, err)
		assert.Equal(t, []string{"France"}, names(euro))

		none, err := store.ListCountries(ctx, models.CountryFilter{Region: "Africa", Currency: "EUR"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("sorts", func(t *testing.T) {
		byGDP, err := store.ListCountries(ctx, models.CountryFilter{Sort: models.SortGDPDesc})
		require.NoError(t, err)
		assert.Equal(t, []string{"France", "Ghana", "Nigeria", "Bouvet Island"}, names(byGDP))

		byGDPAsc, err := store.ListCountries(ctx, models.CountryFilter{Sort: models.SortGDPAsc})
		require.NoError(t, err)
		assert.Equal(t, []string{"Bouvet Island", "Nigeria", "Ghana", "France"}, names(byGDPAsc))

		byPopulation, err := store.ListCountries(ctx, models.CountryFilter{Sort: models.SortPopulationDesc})
		require.NoError(t, err)
		assert.Equal(t, []string{"Nigeria", "France", "Ghana", "Bouvet Island"}, names(byPopulation))

		byPopulationAsc, err := store.ListCountries(ctx, models.CountryFilter{Region: "africa", Sort: models.SortPopulationAsc})
		require.NoError(t, err)
		assert.Equal(t, []string{"Ghana", "Nigeria"}, names(byPopulationAsc))
	})

	t.Run("upsert keeps identity", func(t *testing.T) {
		before, err := store.GetCountry(ctx, "Ghana")
		require.NoError(t, err)

		later := ts.Add(time.Hour)
		updated := models.Country{Name: "GHANA", Region: strPtr("Africa"), Population: 32000000,
			CurrencyCode: strPtr("GHS"), ExchangeRate: floatPtr(14), EstimatedGDP: floatPtr(3400000000), LastRefreshedAt: later}
		require.NoError(t, store.UpsertCountry(ctx, &updated))
		assert.Equal(t, before.ID, updated.ID)

		after, err := store.GetCountry(ctx, "ghana")
		require.NoError(t, err)
		assert.Equal(t, before.ID, after.ID)
		assert.Equal(t, "GHANA", after.Name)
		assert.Equal(t, int64(32000000), after.Population)
		assert.Nil(t, after.Capital)
		assert.True(t, later.Equal(after.LastRefreshedAt))

		count, err := store.CountCountries(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
	})

	t.Run("marker", func(t *testing.T) {
		first := time.Date(2025, 10, 22, 18, 0, 0, 0, time.UTC)
		require.NoError(t, store.SetLastRefreshedAt(ctx, first))
		second := first.Add(2 * time.Hour)
		require.NoError(t, store.SetLastRefreshedAt(ctx, second))

		marker, err := store.GetLastRefreshedAt(ctx)
		require.NoError(t, err)
		require.NotNil(t, marker)
		assert.True(t, second.Equal(*marker))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.DeleteCountry(ctx, "FRANCE"))

		_, err := store.GetCountry(ctx, "France")
		assert.True(t, shared.IsNotFound(err))

		err = store.DeleteCountry(ctx, "France")
		require.Error(t, err)
		assert.True(t, shared.IsNotFound(err))

		count, err := store.CountCountries(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}
