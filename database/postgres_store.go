package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fenilmodi00/country-currency-api/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const postgresStoreName = "PostgresStore"

const countryColumns = `id, name, capital, region, population, currency_code,
	exchange_rate, estimated_gdp, flag_url, last_refreshed_at`

// PostgresStore implements CountryStore on a database/sql pool
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (s *PostgresStore) UpsertCountry(ctx context.Context, country *models.Country) error {
	query := `
		INSERT INTO countries (
			id, name, name_key, capital, region, population, currency_code,
			exchange_rate, estimated_gdp, flag_url, last_refreshed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (name_key) DO UPDATE SET
			name = EXCLUDED.name,
			capital = EXCLUDED.capital,
			region = EXCLUDED.region,
			population = EXCLUDED.population,
			currency_code = EXCLUDED.currency_code,
			exchange_rate = EXCLUDED.exchange_rate,
			estimated_gdp = EXCLUDED.estimated_gdp,
			flag_url = EXCLUDED.flag_url,
			last_refreshed_at = EXCLUDED.last_refreshed_at
		RETURNING id
	`

	var id string
	err := s.DB.QueryRowContext(ctx, query,
		uuid.New().String(),
		country.Name,
		models.NameKey(country.Name),
		country.Capital,
		country.Region,
		country.Population,
		country.CurrencyCode,
		country.ExchangeRate,
		country.EstimatedGDP,
		country.FlagURL,
		country.LastRefreshedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return storeError(fmt.Errorf("upsert country %q: %w", country.Name, err), postgresStoreName, "UpsertCountry")
	}

	country.ID = id
	return nil
}

func (s *PostgresStore) ListCountries(ctx context.Context, filter models.CountryFilter) ([]models.Country, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if filter.Region != "" {
		args = append(args, filter.Region)
		conditions = append(conditions, fmt.Sprintf("LOWER(region) = LOWER($%d)", len(args)))
	}
	if filter.Currency != "" {
		args = append(args, filter.Currency)
		conditions = append(conditions, fmt.Sprintf("LOWER(currency_code) = LOWER($%d)", len(args)))
	}

	query := "SELECT " + countryColumns + " FROM countries"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += postgresOrderBy(filter.Sort)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError(fmt.Errorf("list countries: %w", err), postgresStoreName, "ListCountries")
	}
	defer rows.Close()

	countries := make([]models.Country, 0)
	for rows.Next() {
		country, err := scanCountry(rows)
		if err != nil {
			return nil, storeError(fmt.Errorf("scan country: %w", err), postgresStoreName, "ListCountries")
		}
		countries = append(countries, *country)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, postgresStoreName, "ListCountries")
	}

	return countries, nil
}

func postgresOrderBy(sort string) string {
	switch sort {
	case models.SortGDPDesc:
		return " ORDER BY estimated_gdp DESC NULLS LAST"
	case models.SortGDPAsc:
		return " ORDER BY estimated_gdp ASC NULLS FIRST"
	case models.SortPopulationDesc:
		return " ORDER BY population DESC"
	case models.SortPopulationAsc:
		return " ORDER BY population ASC"
	}
	return ""
}

func (s *PostgresStore) GetCountry(ctx context.Context, name string) (*models.Country, error) {
	query := "SELECT " + countryColumns + " FROM countries WHERE name_key = $1"

	country, err := scanCountry(s.DB.QueryRowContext(ctx, query, models.NameKey(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, countryNotFound(postgresStoreName, "GetCountry")
	}
	if err != nil {
		return nil, storeError(fmt.Errorf("get country %q: %w", name, err), postgresStoreName, "GetCountry")
	}

	return country, nil
}

func (s *PostgresStore) DeleteCountry(ctx context.Context, name string) error {
	result, err := s.DB.ExecContext(ctx, "DELETE FROM countries WHERE name_key = $1", models.NameKey(name))
	if err != nil {
		return storeError(fmt.Errorf("delete country %q: %w", name, err), postgresStoreName, "DeleteCountry")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return storeError(err, postgresStoreName, "DeleteCountry")
	}
	if affected == 0 {
		return countryNotFound(postgresStoreName, "DeleteCountry")
	}

	logrus.WithFields(logrus.Fields{
		"component": postgresStoreName,
		"name":      name,
	}).Info("Deleted country")

	return nil
}

func (s *PostgresStore) CountCountries(ctx context.Context) (int64, error) {
	var count int64
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM countries").Scan(&count); err != nil {
		return 0, storeError(fmt.Errorf("count countries: %w", err), postgresStoreName, "CountCountries")
	}
	return count, nil
}

func (s *PostgresStore) SetLastRefreshedAt(ctx context.Context, ts time.Time) error {
	query := `
		INSERT INTO refresh_metadata (id, last_refreshed_at) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET last_refreshed_at = EXCLUDED.last_refreshed_at
	`
	if _, err := s.DB.ExecContext(ctx, query, globalMarkerID, ts.UTC()); err != nil {
		return storeError(fmt.Errorf("set refresh marker: %w", err), postgresStoreName, "SetLastRefreshedAt")
	}
	return nil
}

func (s *PostgresStore) GetLastRefreshedAt(ctx context.Context) (*time.Time, error) {
	var ts time.Time
	err := s.DB.QueryRowContext(ctx,
		"SELECT last_refreshed_at FROM refresh_metadata WHERE id = $1", globalMarkerID,
	).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(fmt.Errorf("get refresh marker: %w", err), postgresStoreName, "GetLastRefreshedAt")
	}

	ts = ts.UTC()
	return &ts, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return HealthCheck(ctx, s.DB)
}

func (s *PostgresStore) Close(ctx context.Context) error {
	if s.DB == nil {
		return nil
	}
	logrus.WithField("component", postgresStoreName).Info("Database connection closed")
	return s.DB.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCountry(row rowScanner) (*models.Country, error) {
	var (
		country      models.Country
		capital      sql.NullString
		region       sql.NullString
		currencyCode sql.NullString
		exchangeRate sql.NullFloat64
		estimatedGDP sql.NullFloat64
		flagURL      sql.NullString
	)

	err := row.Scan(
		&country.ID,
		&country.Name,
		&capital,
		&region,
		&country.Population,
		&currencyCode,
		&exchangeRate,
		&estimatedGDP,
		&flagURL,
		&country.LastRefreshedAt,
	)
	if err != nil {
		return nil, err
	}

	country.Capital = nullStringPtr(capital)
	country.Region = nullStringPtr(region)
	country.CurrencyCode = nullStringPtr(currencyCode)
	country.ExchangeRate = nullFloatPtr(exchangeRate)
	country.EstimatedGDP = nullFloatPtr(estimatedGDP)
	country.FlagURL = nullStringPtr(flagURL)
	country.LastRefreshedAt = country.LastRefreshedAt.UTC()

	return &country, nil
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func nullFloatPtr(value sql.NullFloat64) *float64 {
	if !value.Valid {
		return nil
	}
	f := value.Float64
	return &f
}
