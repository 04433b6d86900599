package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alejandrodnm/proprun/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out    io.Writer
	table  bool
	detail bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table, detail bool) *Console {
	return &Console{out: os.Stdout, table: table, detail: detail}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table, detail bool) *Console {
	return &Console{out: w, table: table, detail: detail}
}

// Notify imprime los listings en el modo configurado.
func (c *Console) Notify(_ context.Context, listings []domain.EvaluatedListing) error {
	if len(listings) == 0 {
		fmt.Fprintf(c.out, "[%s] no listings evaluated\n", time.Now().Format("15:04:05"))
		return nil
	}

	if c.table {
		c.printFull(listings)
	} else {
		c.printCompact(listings)
	}

	if c.detail {
		c.printBreakdown(listings)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(listings []domain.EvaluatedListing) {
	now := time.Now().Format("15:04:05")
	target, breakEven, loss := countByVerdict(listings)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d listings → target:%d break-even:%d loss:%d",
		now, len(listings), target, breakEven, loss)

	shown := 0
	for _, l := range listings {
		if shown >= 3 {
			break
		}
		if !l.IsProfitable {
			continue
		}
		fmt.Fprintf(&sb, " | %s $%.0f rent$%.0f %s",
			compactName(l.Address, 25), l.ListPrice, l.RentalValue, l.Verdict())
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla y el resumen.
func (c *Console) printFull(listings []domain.EvaluatedListing) {
	now := time.Now().Format("15:04:05")
	target, breakEven, loss := countByVerdict(listings)

	fmt.Fprintf(c.out, "\n[%s] %d listings, target:%d break-even:%d loss:%d\n",
		now, len(listings), target, breakEven, loss)

	c.printTable(listings)
	c.printSummary(listings)
}

// printTable imprime una fila por listing con las métricas publicadas.
func (c *Console) printTable(listings []domain.EvaluatedListing) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Address", "Price", "Mortgage", "Op cost", "Rent", "Rent target", "Diff", "Adj profit", "Verdict")

	for i, l := range listings {
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(l.Address, 38),
			fmt.Sprintf("$%.0f", l.ListPrice),
			fmt.Sprintf("$%.2f", l.Mortgage),
			fmt.Sprintf("$%.2f", l.TotalOperatingCost),
			fmt.Sprintf("$%.2f", l.RentalValue),
			fmt.Sprintf("$%.2f", l.RentalPrice),
			fmt.Sprintf("%+.2f", l.Differential),
			adjustedLabel(l.AdjustedProfit),
			l.Verdict(),
		)
	}

	table.Render()

	fmt.Fprintln(c.out, "  Op cost = hipoteca + impuestos + seguro + mantenimiento | Rent = estimación de mercado")
	fmt.Fprintln(c.out, "  Diff = rent target - rent (> 0 = falta renta) | Adj profit = rent - op cost")
	fmt.Fprintln(c.out, "  Verdict: TARGET > BREAK-EVEN > LOSS")
}

// printSummary imprime los agregados de la ejecución.
func (c *Console) printSummary(listings []domain.EvaluatedListing) {
	var totPrice, totCost, totRent float64
	for _, l := range listings {
		totPrice += l.ListPrice
		totCost += l.TotalOperatingCost
		totRent += l.RentalValue
	}
	n := float64(len(listings))

	fmt.Fprintf(c.out, "\n=== SUMMARY (%d listings) ===\n", len(listings))
	fmt.Fprintf(c.out, "  Avg price:     $%.0f\n", totPrice/n)
	fmt.Fprintf(c.out, "  Avg op cost:   $%.2f/month\n", totCost/n)
	fmt.Fprintf(c.out, "  Avg rent:      $%.2f/month\n", totRent/n)
	fmt.Fprintf(c.out, "  Avg cash flow: $%.2f/month\n\n", (totRent-totCost)/n)
}

// printBreakdown imprime el cálculo detallado de los 3 primeros.
func (c *Console) printBreakdown(listings []domain.EvaluatedListing) {
	top := listings
	if len(top) > 3 {
		top = listings[:3]
	}

	fmt.Fprintln(c.out, "=== BREAKDOWN, step by step ===")

	for i, l := range top {
		fmt.Fprintf(c.out, "\n--- #%d: %s  [%s] ---\n", i+1, l.Address, l.Verdict())
		fmt.Fprintf(c.out, "  List price: $%.2f\n", l.ListPrice)

		fmt.Fprintf(c.out, "\n  1. OPERATING COST (monthly):\n")
		fmt.Fprintf(c.out, "     mortgage:     $%.2f\n", l.Mortgage)
		fmt.Fprintf(c.out, "     property tax: $%.2f\n", l.PropertyTax)
		fmt.Fprintf(c.out, "     insurance:    $%.2f\n", l.Insurance)
		fmt.Fprintf(c.out, "     maintenance:  $%.2f\n", l.Maintenance)
		fmt.Fprintf(c.out, "     >>> TOTAL:    $%.2f\n", l.TotalOperatingCost)

		fmt.Fprintf(c.out, "\n  2. RENT:\n")
		fmt.Fprintf(c.out, "     market estimate: $%.2f  (range $%.2f - $%.2f)\n", l.RentalValue, l.RentLow, l.RentHigh)
		fmt.Fprintf(c.out, "     rent for target: $%.2f\n", l.RentalPrice)
		fmt.Fprintf(c.out, "     differential:    %+.2f\n", l.Differential)

		fmt.Fprintf(c.out, "\n  3. VERDICT:\n")
		if l.MeetsTarget() {
			fmt.Fprintf(c.out, "     market rent covers costs and target profit\n")
			continue
		}
		fmt.Fprintf(c.out, "     >>> ADJUSTED PROFIT: %s/month\n", adjustedLabel(l.AdjustedProfit))
	}
	fmt.Fprintln(c.out)
}

// PrintRuns imprime el histórico de ejecuciones.
func (c *Console) PrintRuns(runs []domain.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "\n  No runs recorded.")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Started", "Run", "Location", "Req", "Fetched", "Eval", "Failed", "Profitable", "Duration", "Timeout")

	for _, r := range runs {
		timeout := ""
		if r.TimedOut {
			timeout = "yes"
		}
		table.Append(
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			shortID(r.ID),
			truncate(r.Location, 24),
			fmt.Sprintf("%d", r.Requested),
			fmt.Sprintf("%d", r.Fetched),
			fmt.Sprintf("%d", r.Evaluated),
			fmt.Sprintf("%d", r.Failed),
			fmt.Sprintf("%d", r.Profitable),
			r.Duration.Round(time.Millisecond).String(),
			timeout,
		)
	}
	table.Render()
}

// --- helpers ---

func countByVerdict(listings []domain.EvaluatedListing) (target, breakEven, loss int) {
	for _, l := range listings {
		switch {
		case l.MeetsTarget():
			target++
		case l.IsProfitable:
			breakEven++
		default:
			loss++
		}
	}
	return
}

func adjustedLabel(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate y compactName cuentan runas: cortar bytes partiría caracteres
// multibyte de direcciones como "Peñasco".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func compactName(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	cut := string(r[:maxLen])
	if idx := strings.LastIndex(cut, " "); idx > 0 && utf8.RuneCountInString(cut[:idx]) > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
