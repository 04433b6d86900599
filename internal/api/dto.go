package api

import (
	"time"

	"github.com/alejandrodnm/proprun/internal/domain"
	"github.com/alejandrodnm/proprun/internal/ranking"
)

// processRequest es el cuerpo de POST /process_listings. Los campos
// financieros omitidos toman los valores por defecto configurados.
type processRequest struct {
	Location      string         `json:"location" validate:"required,max=200"`
	NumListings   *int           `json:"num_listings" validate:"omitnil,min=1"`
	Profit        *float64       `json:"profit"`
	DownPayment   *float64       `json:"down_payment"`
	InterestRate  *float64       `json:"interest_rate"`
	LoanTermYears *int           `json:"loan_term_years"`
	ZipCode       string         `json:"zip_code" validate:"omitempty,numeric,len=5"`
	SortBy        string         `json:"sort_by" validate:"omitempty,oneof=address list_price total_operating_cost"`
	SortDirection string         `json:"sort_direction" validate:"omitempty,oneof=ascending descending"`
	Filters       *filterRequest `json:"filters"`
}

type filterRequest struct {
	AddressContains string   `json:"address_contains" validate:"max=200"`
	MortgageMin     *float64 `json:"mortgage_min" validate:"omitnil,gte=0"`
	MortgageMax     *float64 `json:"mortgage_max" validate:"omitnil,gte=0"`
	PriceMin        *float64 `json:"price_min" validate:"omitnil,gte=0"`
	PriceMax        *float64 `json:"price_max" validate:"omitnil,gte=0"`
}

// query construye la consulta del dominio. Los rangos financieros los valida
// el dominio para devolver invalid_assumptions con el campo.
func (r processRequest) query(defaults domain.FinancialAssumptions, defaultNum int) domain.ListingQuery {
	a := defaults
	if r.Profit != nil {
		a.TargetProfit = *r.Profit
	}
	if r.DownPayment != nil {
		a.DownPaymentPct = *r.DownPayment
	}
	if r.InterestRate != nil {
		a.AnnualInterestRate = *r.InterestRate
	}
	if r.LoanTermYears != nil {
		a.LoanTermYears = *r.LoanTermYears
	}

	n := defaultNum
	if r.NumListings != nil {
		n = *r.NumListings
	}

	return domain.ListingQuery{
		Location:    r.Location,
		NumListings: n,
		ZipCode:     r.ZipCode,
		Assumptions: a,
	}
}

// view traduce orden y filtros. sort_by y sort_direction ya pasaron el validator.
func (r processRequest) view() ranking.View {
	var v ranking.View
	if r.SortBy != "" {
		v.Sort.Key = ranking.SortKey(r.SortBy)
		v.Sort.Direction = ranking.Ascending
		if r.SortDirection == string(ranking.Descending) {
			v.Sort.Direction = ranking.Descending
		}
	}
	if f := r.Filters; f != nil {
		v.Criteria = ranking.Criteria{
			AddressContains: f.AddressContains,
			MortgageMin:     f.MortgageMin,
			MortgageMax:     f.MortgageMax,
			PriceMin:        f.PriceMin,
			PriceMax:        f.PriceMax,
		}
	}
	return v
}

// requestField traduce el nombre de campo del dominio al del cuerpo JSON.
var requestField = map[string]string{
	"target_profit":        "profit",
	"down_payment_pct":     "down_payment",
	"annual_interest_rate": "interest_rate",
}

type listingResponse struct {
	Address            string   `json:"address"`
	ListPrice          float64  `json:"list_price"`
	Mortgage           float64  `json:"mortgage"`
	TotalOperatingCost float64  `json:"total_operating_cost"`
	RentalValue        float64  `json:"rental_value"`
	RentalPrice        float64  `json:"rental_price"`
	Differential       float64  `json:"differential"`
	IsProfitable       bool     `json:"is_profitable"`
	AdjustedProfit     *float64 `json:"adjusted_profit"`
	RentLow            float64  `json:"rentcast_rent_low"`
	RentHigh           float64  `json:"rentcast_rent_high"`
}

func toListingResponses(listings []domain.EvaluatedListing) []listingResponse {
	out := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, listingResponse{
			Address:            l.Address,
			ListPrice:          l.ListPrice,
			Mortgage:           l.Mortgage,
			TotalOperatingCost: l.TotalOperatingCost,
			RentalValue:        l.RentalValue,
			RentalPrice:        l.RentalPrice,
			Differential:       l.Differential,
			IsProfitable:       l.IsProfitable,
			AdjustedProfit:     l.AdjustedProfit,
			RentLow:            l.RentLow,
			RentHigh:           l.RentHigh,
		})
	}
	return out
}

type processResponse struct {
	RunID   string            `json:"run_id"`
	Results []listingResponse `json:"results"`
}

type runResponse struct {
	ID         string    `json:"id"`
	Location   string    `json:"location"`
	Requested  int       `json:"requested"`
	Fetched    int       `json:"fetched"`
	Evaluated  int       `json:"evaluated"`
	Failed     int       `json:"failed"`
	Profitable int       `json:"profitable"`
	TimedOut   bool      `json:"timed_out"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

func toRunResponses(runs []domain.Run) []runResponse {
	out := make([]runResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, runResponse{
			ID:         r.ID,
			Location:   r.Location,
			Requested:  r.Requested,
			Fetched:    r.Fetched,
			Evaluated:  r.Evaluated,
			Failed:     r.Failed,
			Profitable: r.Profitable,
			TimedOut:   r.TimedOut,
			StartedAt:  r.StartedAt,
			DurationMS: r.Duration.Milliseconds(),
		})
	}
	return out
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
