package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/proprun/internal/adapters/notify"
	"github.com/alejandrodnm/proprun/internal/domain"
	"github.com/alejandrodnm/proprun/internal/ranking"
)

var screenFlags struct {
	location     string
	num          int
	zip          string
	profit       float64
	downPayment  float64
	interestRate float64
	term         int

	sort        string
	desc        bool
	address     string
	mortgageMin float64
	mortgageMax float64
	priceMin    float64
	priceMax    float64

	compact bool
	detail  bool
}

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Evaluate listings for a location and print them",
	Example: `  proprun screen --location "Austin, TX"
  proprun screen --location "Austin, TX" --num 25 --down-payment 25 --sort total_operating_cost --desc
  proprun screen --location "Austin, TX" --price-max 350000 --detail`,
	RunE: runScreen,
}

func init() {
	rootCmd.AddCommand(screenCmd)

	f := screenCmd.Flags()
	f.StringVar(&screenFlags.location, "location", "", "city and state, e.g. \"Austin, TX\"")
	f.IntVar(&screenFlags.num, "num", 0, "number of listings (default from config)")
	f.StringVar(&screenFlags.zip, "zip", "", "only listings in this zip code")
	f.Float64Var(&screenFlags.profit, "profit", 0, "target monthly profit in USD")
	f.Float64Var(&screenFlags.downPayment, "down-payment", 0, "down payment percent, 0-100")
	f.Float64Var(&screenFlags.interestRate, "interest-rate", 0, "annual interest rate percent")
	f.IntVar(&screenFlags.term, "term", 0, "loan term in years")

	f.StringVar(&screenFlags.sort, "sort", "", "sort by: address|list_price|total_operating_cost")
	f.BoolVar(&screenFlags.desc, "desc", false, "sort descending")
	f.StringVar(&screenFlags.address, "address", "", "only addresses containing this text")
	f.Float64Var(&screenFlags.mortgageMin, "mortgage-min", 0, "minimum monthly mortgage")
	f.Float64Var(&screenFlags.mortgageMax, "mortgage-max", 0, "maximum monthly mortgage")
	f.Float64Var(&screenFlags.priceMin, "price-min", 0, "minimum list price")
	f.Float64Var(&screenFlags.priceMax, "price-max", 0, "maximum list price")

	f.BoolVar(&screenFlags.compact, "compact", false, "print a one-line summary instead of the table")
	f.BoolVar(&screenFlags.detail, "detail", false, "print the step-by-step breakdown for the top 3")

	_ = screenCmd.MarkFlagRequired("location")
}

func runScreen(cmd *cobra.Command, _ []string) error {
	q, err := screenQuery(cmd)
	if err != nil {
		return err
	}
	view, err := screenView(cmd)
	if err != nil {
		return err
	}

	notifier := notify.NewConsole(!screenFlags.compact, screenFlags.detail)
	p, store, err := buildPipeline(cfg, notifier)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res, err := p.Run(ctx, q, view)
	if err != nil {
		return err
	}

	if res.Run.Failed > 0 || res.Run.TimedOut {
		slog.Warn("some listings were not evaluated",
			"failed", res.Run.Failed,
			"timed_out", res.Run.TimedOut,
		)
	}
	return nil
}

// screenQuery aplica los flags explícitos sobre los supuestos por defecto.
func screenQuery(cmd *cobra.Command) (domain.ListingQuery, error) {
	flags := cmd.Flags()
	a := cfg.Assumptions()
	if flags.Changed("profit") {
		a.TargetProfit = screenFlags.profit
	}
	if flags.Changed("down-payment") {
		a.DownPaymentPct = screenFlags.downPayment
	}
	if flags.Changed("interest-rate") {
		a.AnnualInterestRate = screenFlags.interestRate
	}
	if flags.Changed("term") {
		a.LoanTermYears = screenFlags.term
	}

	n := cfg.Defaults.NumListings
	if flags.Changed("num") {
		n = screenFlags.num
	}

	q := domain.ListingQuery{
		Location:    screenFlags.location,
		NumListings: n,
		ZipCode:     screenFlags.zip,
		Assumptions: a,
	}
	if err := q.Validate(); err != nil {
		return domain.ListingQuery{}, fmt.Errorf("screen: %w", err)
	}
	return q, nil
}

// screenView traduce los flags de orden y filtro. Solo los flags indicados
// crean predicados.
func screenView(cmd *cobra.Command) (ranking.View, error) {
	key, err := ranking.ParseSortKey(screenFlags.sort)
	if err != nil {
		return ranking.View{}, err
	}
	view := ranking.View{Criteria: ranking.Criteria{AddressContains: screenFlags.address}}
	if key != ranking.SortNone {
		view.Sort = ranking.SortState{Key: key, Direction: ranking.Ascending}
		if screenFlags.desc {
			view.Sort.Direction = ranking.Descending
		}
	}

	bound := func(name string, v float64) *float64 {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		return &v
	}
	view.Criteria.MortgageMin = bound("mortgage-min", screenFlags.mortgageMin)
	view.Criteria.MortgageMax = bound("mortgage-max", screenFlags.mortgageMax)
	view.Criteria.PriceMin = bound("price-min", screenFlags.priceMin)
	view.Criteria.PriceMax = bound("price-max", screenFlags.priceMax)
	return view, nil
}
