package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fenilmodi00/country-currency-api/config"
	"github.com/fenilmodi00/country-currency-api/services"
	"github.com/fenilmodi00/country-currency-api/shared"
)

// runHealthCheck probes both providers and the configured store and prints a
// short report. The store is only read; no migrations or indexes are applied.
// It returns the process exit code.
func runHealthCheck(cfg *config.Config, unified *shared.UnifiedConfiguration) int {
	fmt.Printf("Country Currency API Health Check - %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Println(strings.Repeat("=", 50))

	factory := shared.NewHTTPClientFactory(unified.Source.HTTPRequestTimeout)
	defer factory.CleanupAllClients()
	client := factory.CreateOptimizedHTTPClient(unified.Source.HTTPRequestTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), 2*unified.Source.HTTPRequestTimeout)
	defer cancel()

	healthScore := 0
	totalTests := 3

	countries := services.NewRestCountriesClient(unified.Source.CountriesURL, client, nil)
	fmt.Printf("Countries provider (%s): ", countries.Name())
	if items, err := countries.FetchCountries(ctx); err != nil {
		fmt.Printf("FAILED (%v)\n", err)
	} else {
		fmt.Printf("OK (%d countries)\n", len(items))
		healthScore++
	}

	rates := services.NewExchangeRateClient(unified.Source.RatesURL, client, nil)
	fmt.Printf("Rates provider (%s): ", rates.Name())
	if table, err := rates.FetchRates(ctx); err != nil {
		fmt.Printf("FAILED (%v)\n", err)
	} else {
		fmt.Printf("OK (%d rates)\n", len(table))
		healthScore++
	}

	fmt.Printf("Store (%s): ", cfg.StoreDriver)
	if store, err := connectStore(ctx, cfg, false); err != nil {
		fmt.Printf("FAILED (%v)\n", err)
	} else {
		if err := store.Ping(ctx); err != nil {
			fmt.Printf("FAILED (%v)\n", err)
		} else if total, err := store.CountCountries(ctx); err != nil {
			fmt.Printf("FAILED (%v)\n", err)
		} else {
			fmt.Printf("OK (%d countries stored)\n", total)
			healthScore++
		}
		store.Close(ctx)
	}

	fmt.Println(strings.Repeat("-", 50))
	healthPercent := float64(healthScore) / float64(totalTests) * 100

	switch {
	case healthScore == totalTests:
		fmt.Printf("SYSTEM HEALTHY: %d/%d checks passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
		return 0
	case healthScore >= totalTests/2:
		fmt.Printf("SYSTEM DEGRADED: %d/%d checks passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
		return 1
	default:
		fmt.Printf("SYSTEM UNHEALTHY: %d/%d checks passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
		return 2
	}
}
