package rentcast

import (
	"fmt"
	"strings"

	"github.com/alejandrodnm/proprun/internal/domain"
)

// mapRentEstimate convierte la respuesta de RentCast a domain.RentEstimate.
// Una respuesta sin rent o con la banda incoherente es un lookup fallido.
func mapRentEstimate(r rentEstimateResponse) (domain.RentEstimate, error) {
	if r.Rent == nil || r.RentRangeLow == nil || r.RentRangeHigh == nil {
		return domain.RentEstimate{}, fmt.Errorf("%w: incomplete response", domain.ErrRentLookup)
	}
	return domain.NewRentEstimate(*r.Rent, *r.RentRangeLow, *r.RentRangeHigh)
}

// propertyType traduce el "style" de HomeHarvest al enum de RentCast.
// Estilos desconocidos se omiten y RentCast infiere el tipo.
func propertyType(style string) string {
	switch strings.ToUpper(strings.TrimSpace(style)) {
	case "SINGLE_FAMILY":
		return "Single Family"
	case "CONDOS", "CONDO", "CONDO_TOWNHOME", "CONDO_TOWNHOME_ROWHOME_COOP":
		return "Condo"
	case "TOWNHOMES", "TOWNHOUSE":
		return "Townhouse"
	case "MULTI_FAMILY", "DUPLEX_TRIPLEX":
		return "Multi-Family"
	case "MOBILE", "MANUFACTURED":
		return "Manufactured"
	case "APARTMENT":
		return "Apartment"
	default:
		return ""
	}
}
