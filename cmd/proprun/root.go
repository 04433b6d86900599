package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/proprun/config"
)

var (
	// Global flags
	configPath string
	verbose    bool
	logFormat  string
	cacheOnly  bool

	// cargada en PersistentPreRunE, disponible para todos los subcomandos
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "proprun",
	Short: "Buy-to-rent listing screener",
	Long: `proprun evalúa listings en venta como inversión de alquiler.

Para cada listing calcula hipoteca, coste operativo mensual y el alquiler
necesario para un beneficio objetivo, y lo compara con la estimación de
mercado de RentCast.

Examples:
  proprun serve
  proprun screen --location "Austin, TX" --num 10 --sort list_price
  proprun history --since 72h`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			loaded.Log.Level = "debug"
		}
		if logFormat != "" {
			loaded.Log.Format = logFormat
		}
		if cacheOnly {
			loaded.RentCache.CacheOnly = true
		}
		setupLogger(loaded.Log)
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "set log level to debug")
	rootCmd.PersistentFlags().StringVar(&logFormat, "format", "", "log format: text|json (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&cacheOnly, "cache-only", false, "never call RentCast, use cached rent estimates only")
}
