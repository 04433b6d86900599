package rentcast

// DTOs raw de la API de RentCast. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// rentEstimateResponse es la respuesta de GET /v1/avm/rent/long-term.
// Los comparables vienen en la respuesta pero no se usan.
type rentEstimateResponse struct {
	Rent          *float64 `json:"rent"`
	RentRangeLow  *float64 `json:"rentRangeLow"`
	RentRangeHigh *float64 `json:"rentRangeHigh"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
}
