package models

// RestCountry is one entry of the countries provider payload
// (restcountries v2 "all" endpoint, filtered fields).
type RestCountry struct {
	Name       string         `json:"name"`
	Capital    *string        `json:"capital"`
	Region     *string        `json:"region"`
	Population *int64         `json:"population"`
	Currencies []RestCurrency `json:"currencies"`
	Flag       *string        `json:"flag"`
}

// RestCurrency is a currency descriptor; only Code is used.
type RestCurrency struct {
	Code   string `json:"code"`
	Name   string `json:"name,omitempty"`
	Symbol string `json:"symbol,omitempty"`
}

// RatesResponse is the envelope returned by the exchange rate provider.
// Rates is nil when the provider omits the field.
type RatesResponse struct {
	Result   string             `json:"result"`
	BaseCode string             `json:"base_code"`
	Rates    map[string]float64 `json:"rates"`
}

// ExchangeRateTable maps currency code to units per USD for one refresh.
type ExchangeRateTable map[string]float64
