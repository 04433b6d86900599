package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/proprun/internal/domain"
)

// Config es la configuración completa de proprun.
type Config struct {
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Costs     CostsConfig     `yaml:"costs"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
	RentCast  RentCastConfig  `yaml:"rentcast"`
	RentCache RentCacheConfig `yaml:"rent_cache"`
	Listings  ListingsConfig  `yaml:"listings"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// PipelineConfig controla la orquestación de la evaluación.
type PipelineConfig struct {
	Workers         int     `yaml:"workers" validate:"gte=1,lte=50"`
	TimeoutSeconds  int     `yaml:"timeout_seconds" validate:"gte=1"`
	RetryLookup     bool    `yaml:"retry_lookup"`
	RetryBackoffMS  *int    `yaml:"retry_backoff_ms" validate:"omitnil,gte=0"` // nil = 500ms; 0 = reintento inmediato
	OverFetchFactor float64 `yaml:"over_fetch_factor" validate:"gte=1,lte=5"`
	MaxListings     int     `yaml:"max_listings" validate:"gte=1"`
}

// CostsConfig son las tasas anuales sobre el precio de lista. nil = valor de referencia.
type CostsConfig struct {
	PropertyTaxRate *float64 `yaml:"property_tax_rate" validate:"omitnil,gte=0,lte=1"`
	InsuranceRate   *float64 `yaml:"insurance_rate" validate:"omitnil,gte=0,lte=1"`
	MaintenanceRate *float64 `yaml:"maintenance_rate" validate:"omitnil,gte=0,lte=1"`
}

// DefaultsConfig son los supuestos para los campos que el request omite.
type DefaultsConfig struct {
	TargetProfit   *float64 `yaml:"target_profit"`
	DownPaymentPct *float64 `yaml:"down_payment_pct" validate:"omitnil,gte=0,lte=100"`
	InterestRate   *float64 `yaml:"interest_rate" validate:"omitnil,gte=0"`
	LoanTermYears  int      `yaml:"loan_term_years" validate:"gte=1"`
	NumListings    int      `yaml:"num_listings" validate:"gte=1"`
}

// RentCastConfig configura el cliente de la API de alquileres.
type RentCastConfig struct {
	BaseURL        string  `yaml:"base_url" validate:"required,url"`
	APIKey         string  `yaml:"-"` // solo desde el entorno
	RatePerSec     float64 `yaml:"rate_per_sec" validate:"gt=0"`
	Burst          int     `yaml:"burst" validate:"gte=1"`
	TimeoutSeconds int     `yaml:"timeout_seconds" validate:"gte=1"`
}

// RentCacheConfig controla la caché de estimaciones en SQLite.
type RentCacheConfig struct {
	Enabled     bool `yaml:"enabled"`
	MaxAgeHours int  `yaml:"max_age_hours" validate:"gte=0"` // 0 = sin caducidad
	CacheOnly   bool `yaml:"cache_only"`                     // nunca llamar a la API
}

// ListingsConfig indica dónde están los exports CSV de listings.
type ListingsConfig struct {
	Dir         string `yaml:"dir" validate:"required"`
	File        string `yaml:"file"`          // fija un export concreto (modo test)
	MaxAgeHours int    `yaml:"max_age_hours"` // aviso de export antiguo; 0 = sin aviso
}

// ServerConfig controla la API HTTP.
type ServerConfig struct {
	Addr                string   `yaml:"addr" validate:"required,hostname_port"`
	CORSOrigins         []string `yaml:"cors_origins"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds" validate:"gte=1"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Con path vacío se usan solo el entorno y los valores por defecto.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// EvaluationTimeout devuelve el presupuesto de evaluación como time.Duration.
func (c *Config) EvaluationTimeout() time.Duration {
	return time.Duration(c.Pipeline.TimeoutSeconds) * time.Second
}

// RetryBackoff devuelve la espera antes del reintento de lookup.
func (c *Config) RetryBackoff() time.Duration {
	if c.Pipeline.RetryBackoffMS == nil {
		return 0
	}
	return time.Duration(*c.Pipeline.RetryBackoffMS) * time.Millisecond
}

// CostPolicy construye la política de costes operativos.
func (c *Config) CostPolicy() domain.OperatingCostPolicy {
	p := domain.DefaultOperatingCostPolicy()
	if v := c.Costs.PropertyTaxRate; v != nil {
		p.PropertyTaxRate = *v
	}
	if v := c.Costs.InsuranceRate; v != nil {
		p.InsuranceRate = *v
	}
	if v := c.Costs.MaintenanceRate; v != nil {
		p.MaintenanceRate = *v
	}
	return p
}

// Assumptions devuelve los supuestos por defecto de las consultas.
func (c *Config) Assumptions() domain.FinancialAssumptions {
	a := domain.DefaultAssumptions()
	if v := c.Defaults.TargetProfit; v != nil {
		a.TargetProfit = *v
	}
	if v := c.Defaults.DownPaymentPct; v != nil {
		a.DownPaymentPct = *v
	}
	if v := c.Defaults.InterestRate; v != nil {
		a.AnnualInterestRate = *v
	}
	a.LoanTermYears = c.Defaults.LoanTermYears
	return a
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RENTCAST_API_KEY"); v != "" {
		cfg.RentCast.APIKey = v
	} else if v := os.Getenv("API_KEY"); v != "" {
		cfg.RentCast.APIKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("PROPRUN_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Pipeline.Workers <= 0 {
		cfg.Pipeline.Workers = 5
	}
	if cfg.Pipeline.TimeoutSeconds <= 0 {
		cfg.Pipeline.TimeoutSeconds = 30
	}
	if cfg.Pipeline.RetryBackoffMS == nil {
		ms := 500
		cfg.Pipeline.RetryBackoffMS = &ms
	}
	if cfg.Pipeline.OverFetchFactor <= 0 {
		cfg.Pipeline.OverFetchFactor = 1
	}
	if cfg.Pipeline.MaxListings <= 0 {
		cfg.Pipeline.MaxListings = 500
	}
	if cfg.Defaults.LoanTermYears <= 0 {
		cfg.Defaults.LoanTermYears = 30
	}
	if cfg.Defaults.NumListings <= 0 {
		cfg.Defaults.NumListings = 10
	}
	if cfg.RentCast.BaseURL == "" {
		cfg.RentCast.BaseURL = "https://api.rentcast.io"
	}
	if cfg.RentCast.RatePerSec <= 0 {
		cfg.RentCast.RatePerSec = 5
	}
	if cfg.RentCast.Burst <= 0 {
		cfg.RentCast.Burst = 5
	}
	if cfg.RentCast.TimeoutSeconds <= 0 {
		cfg.RentCast.TimeoutSeconds = 10
	}
	if cfg.Listings.Dir == "" {
		cfg.Listings.Dir = "data"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:5173"}
	}
	if cfg.Server.WriteTimeoutSeconds <= 0 {
		// el pipeline tiene hasta TimeoutSeconds; se deja margen para serializar
		cfg.Server.WriteTimeoutSeconds = cfg.Pipeline.TimeoutSeconds + 10
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "proprun.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
