package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ValidationResult represents the result of validating one table
type ValidationResult struct {
	TableName      string
	IsValid        bool
	MissingTable   bool
	MissingColumns []string
	MissingIndexes []string
}

// SchemaValidator checks that the migrated schema has the columns and
// indexes the stores rely on
type SchemaValidator struct {
	db *sql.DB
}

// NewSchemaValidator creates a new schema validator instance
func NewSchemaValidator(db *sql.DB) *SchemaValidator {
	return &SchemaValidator{db: db}
}

var expectedTables = map[string][]string{
	"countries": {
		"id", "name", "name_key", "capital", "region", "population",
		"currency_code", "exchange_rate", "estimated_gdp", "flag_url", "last_refreshed_at",
	},
	"refresh_metadata": {"id", "last_refreshed_at"},
}

var expectedIndexes = []string{
	"countries_name_key_unique",
	"idx_countries_region_lower",
	"idx_countries_currency_lower",
}

// Validate inspects every expected table and returns one result per table
// plus a synthetic "indexes" result
func (v *SchemaValidator) Validate(ctx context.Context) ([]ValidationResult, error) {
	logger := logrus.WithField("component", "SchemaValidator")
	var results []ValidationResult

	for table, columns := range expectedTables {
		result := ValidationResult{TableName: table, IsValid: true}

		exists, err := v.tableExists(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("checking table %s: %w", table, err)
		}
		if !exists {
			result.IsValid = false
			result.MissingTable = true
			results = append(results, result)
			continue
		}

		actual, err := v.getTableColumns(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("reading columns of %s: %w", table, err)
		}
		for _, column := range columns {
			if _, ok := actual[column]; !ok {
				result.IsValid = false
				result.MissingColumns = append(result.MissingColumns, column)
			}
		}
		results = append(results, result)
	}

	indexes, err := v.getAllIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading indexes: %w", err)
	}
	indexResult := ValidationResult{TableName: "indexes", IsValid: true}
	for _, name := range expectedIndexes {
		if !indexExists(indexes, name) {
			indexResult.IsValid = false
			indexResult.MissingIndexes = append(indexResult.MissingIndexes, name)
		}
	}
	results = append(results, indexResult)

	for _, result := range results {
		if result.IsValid {
			continue
		}
		logger.WithFields(logrus.Fields{
			"table":           result.TableName,
			"missing_table":   result.MissingTable,
			"missing_columns": strings.Join(result.MissingColumns, ","),
			"missing_indexes": strings.Join(result.MissingIndexes, ","),
		}).Warn("Schema validation found issues")
	}

	return results, nil
}

func (v *SchemaValidator) tableExists(ctx context.Context, tableName string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)
	`
	var exists bool
	err := v.db.QueryRowContext(ctx, query, tableName).Scan(&exists)
	return exists, err
}

// getTableColumns returns a map of column names to their data types
func (v *SchemaValidator) getTableColumns(ctx context.Context, tableName string) (map[string]string, error) {
	query := `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
	`
	rows, err := v.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]string)
	for rows.Next() {
		var columnName, dataType string
		if err := rows.Scan(&columnName, &dataType); err != nil {
			return nil, err
		}
		columns[columnName] = dataType
	}

	return columns, rows.Err()
}

func (v *SchemaValidator) getAllIndexes(ctx context.Context) ([]string, error) {
	query := `
		SELECT indexname
		FROM pg_indexes
		WHERE schemaname = current_schema()
	`
	rows, err := v.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var indexName string
		if err := rows.Scan(&indexName); err != nil {
			return nil, err
		}
		indexes = append(indexes, indexName)
	}

	return indexes, rows.Err()
}

func indexExists(indexes []string, indexName string) bool {
	for _, index := range indexes {
		if index == indexName {
			return true
		}
	}
	return false
}
