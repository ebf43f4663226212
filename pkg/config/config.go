package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
)

// Drivers de almacenamiento soportados.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App       AppConfig
	Log       LogConfig
	DB        DBConfig
	HTTP      HTTPConfig
	Store     StoreConfig
	Sales     SalesConfig
	Inventory InventoryConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// LogConfig nivel del logger (trace, debug, info, warn, error).
type LogConfig struct {
	Level string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StoreConfig driver de persistencia: memory (por defecto, no durable) o postgres.
// SeedFile catálogo CSV opcional que se carga al arrancar; SeedCharset utf-8 o iso-8859-1.
type StoreConfig struct {
	Driver      string
	SeedFile    string
	SeedCharset string
}

// SalesConfig reglas de la orden de venta.
type SalesConfig struct {
	OrderNumberPrefix string
	// DeferredPaymentMethods medios que pueden pagar menos que el total (ej. Credit, Insurance).
	DeferredPaymentMethods []string
}

// DeferredMethods convierte los nombres configurados (ya validados por Load).
func (c SalesConfig) DeferredMethods() []entity.PaymentMethod {
	out := make([]entity.PaymentMethod, 0, len(c.DeferredPaymentMethods))
	for _, name := range c.DeferredPaymentMethods {
		if m, err := entity.ParsePaymentMethod(name); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// InventoryConfig valores por defecto del libro de stock.
type InventoryConfig struct {
	DefaultReorderPoint int
	ExpiryWarningDays   int
	// ReplenishmentFactor stock ideal = punto de reorden * factor.
	ReplenishmentFactor float64
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, STORE_DRIVER, SALES_DEFERRED_METHODS, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.MergeInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "farmacia-pos"),
		},
		Log: LogConfig{
			Level: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "farmacia_pos"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    getInt(v, "DB_MAX_CONNS", 25),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(getString(v, "STORE_DRIVER", StoreMemory)),
			SeedFile:    getString(v, "STORE_SEED_FILE", ""),
			SeedCharset: strings.ToLower(getString(v, "STORE_SEED_CHARSET", "utf-8")),
		},
		Sales: SalesConfig{
			OrderNumberPrefix:      getString(v, "SALES_ORDER_PREFIX", "SO"),
			DeferredPaymentMethods: getList(v, "SALES_DEFERRED_METHODS", []string{"Credit"}),
		},
		Inventory: InventoryConfig{
			DefaultReorderPoint: getInt(v, "INVENTORY_DEFAULT_REORDER_POINT", 10),
			ExpiryWarningDays:   getInt(v, "INVENTORY_EXPIRY_WARNING_DAYS", 90),
			ReplenishmentFactor: getFloat(v, "INVENTORY_REPLENISHMENT_FACTOR", 1.5),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rechaza combinaciones inválidas antes de arrancar.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("config: STORE_DRIVER desconocido %q", c.Store.Driver)
	}
	if c.Inventory.DefaultReorderPoint < 0 {
		return fmt.Errorf("config: INVENTORY_DEFAULT_REORDER_POINT no puede ser negativo")
	}
	if c.Inventory.ExpiryWarningDays <= 0 {
		return fmt.Errorf("config: INVENTORY_EXPIRY_WARNING_DAYS debe ser mayor que cero")
	}
	if c.Inventory.ReplenishmentFactor < 1 {
		return fmt.Errorf("config: INVENTORY_REPLENISHMENT_FACTOR debe ser >= 1")
	}
	for _, m := range c.Sales.DeferredPaymentMethods {
		if _, err := entity.ParsePaymentMethod(m); err != nil {
			return fmt.Errorf("config: SALES_DEFERRED_METHODS: %w", err)
		}
	}
	if c.HTTP.Port <= 0 {
		return fmt.Errorf("config: HTTP_PORT inválido %d", c.HTTP.Port)
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if !v.IsSet(key) {
		return def
	}
	if s, ok := v.Get(key).(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return def
		}
		return n
	}
	return v.GetInt(key)
}

func getFloat(v *viper.Viper, key string, def float64) float64 {
	if !v.IsSet(key) {
		return def
	}
	if s, ok := v.Get(key).(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return def
		}
		return f
	}
	return v.GetFloat64(key)
}

// getList lee listas separadas por coma ("Credit,Insurance"). Una cadena vacía es lista vacía.
func getList(v *viper.Viper, key string, def []string) []string {
	if !v.IsSet(key) {
		return def
	}
	var out []string
	for _, part := range strings.Split(v.GetString(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
