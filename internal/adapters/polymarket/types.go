package polymarket

import "encoding/json"

// DTOs raw de la API Gamma. Solo se usan dentro de este paquete.
// La conversión a domain.Candle se hace en mapping.go.

// gammaMarketsResponse es la respuesta de GET /markets.
type gammaMarketsResponse []gammaMarket

// gammaMarket es un mercado up/down tal como lo devuelve Gamma.
// outcomes y outcomePrices llegan como arrays JSON serializados dentro de un string,
// ej. "[\"Up\", \"Down\"]" y "[\"1\", \"0\"]".
type gammaMarket struct {
	ID            json.Number `json:"id"`
	ConditionID   string      `json:"conditionId"`
	Slug          string      `json:"slug"`
	Question      string      `json:"question"`
	EndDate       string      `json:"endDate"`
	EndDateISO    string      `json:"endDateIso"`
	Outcomes      string      `json:"outcomes"`
	OutcomePrices string      `json:"outcomePrices"`
	Active        bool        `json:"active"`
	Closed        bool        `json:"closed"`
}
