package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/rl1809/storefront/internal/core/domain"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	HTTP         HTTPConfig
	GRPC         GRPCConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Log          LogConfig
	Pricing      PricingConfig
	Checkout     CheckoutConfig
	CartRequests CartRequestsConfig
	Catalog      []CatalogItem
}

type AppConfig struct {
	Name string
	Env  string
}

type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type GRPCConfig struct {
	Addr string
}

// DatabaseConfig selects the store for carts, orders and (without Redis) inventory.
type DatabaseConfig struct {
	Driver          string // sqlite, mysql or memory
	DSN             string // file path for sqlite, go-sql-driver DSN for mysql
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig moves inventory and carts to Redis when enabled.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	PoolSize int
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

type PricingConfig struct {
	Mode         string // rate or flat
	ShippingRate decimal.Decimal
	TaxRate      decimal.Decimal
	ShippingFee  decimal.Decimal
}

// CheckoutConfig points at the commerce backend. An empty RemoteAddr accepts orders locally.
type CheckoutConfig struct {
	RemoteAddr string
	Timeout    time.Duration
}

type CartRequestsConfig struct {
	QueueSize int
	Workers   int
}

// CatalogItem is one product entry of the catalog list.
type CatalogItem struct {
	ID    string `mapstructure:"id"`
	Name  string `mapstructure:"name"`
	Price string `mapstructure:"price"`
	Stock *int   `mapstructure:"stock"`
}

// Load reads configuration from an optional YAML file and STOREFRONT_ environment variables.
// Priority (highest to lowest):
// 1. Environment variables (e.g. STOREFRONT_DATABASE_DSN)
// 2. the file at path, or config.yaml in the working directory when path is empty
// 3. Built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		HTTP: HTTPConfig{
			Addr:            v.GetString("http.addr"),
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		},
		GRPC: GRPCConfig{
			Addr: v.GetString("grpc.addr"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			DSN:             v.GetString("database.dsn"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			PoolSize: v.GetInt("redis.pool_size"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Pricing: PricingConfig{
			Mode: v.GetString("pricing.mode"),
		},
		Checkout: CheckoutConfig{
			RemoteAddr: v.GetString("checkout.remote_addr"),
			Timeout:    v.GetDuration("checkout.timeout"),
		},
		CartRequests: CartRequestsConfig{
			QueueSize: v.GetInt("cart_requests.queue_size"),
			Workers:   v.GetInt("cart_requests.workers"),
		},
	}

	var err error
	if cfg.Pricing.ShippingRate, err = parseDecimal(v, "pricing.shipping_rate", "0.10"); err != nil {
		return nil, err
	}
	if cfg.Pricing.TaxRate, err = parseDecimal(v, "pricing.tax_rate", "0.12"); err != nil {
		return nil, err
	}
	if cfg.Pricing.ShippingFee, err = parseDecimal(v, "pricing.shipping_fee", "0"); err != nil {
		return nil, err
	}

	if err := v.UnmarshalKey("catalog", &cfg.Catalog); err != nil {
		return nil, fmt.Errorf("error reading catalog: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseDecimal(v *viper.Viper, key, fallback string) (decimal.Decimal, error) {
	raw := v.GetString(key)
	if raw == "" {
		raw = fallback
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storefront"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 5 * time.Second
	}
	if cfg.GRPC.Addr == "" {
		cfg.GRPC.Addr = ":50051"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "storefront.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 50
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 25
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 5 * time.Minute
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 100
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Pricing.Mode == "" {
		cfg.Pricing.Mode = "rate"
	}
	if cfg.Checkout.Timeout == 0 {
		cfg.Checkout.Timeout = 10 * time.Second
	}
	if cfg.CartRequests.QueueSize == 0 {
		cfg.CartRequests.QueueSize = 1000
	}
	if cfg.CartRequests.Workers == 0 {
		cfg.CartRequests.Workers = 1
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "memory":
	case "mysql":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the mysql driver")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Pricing.Mode {
	case "rate", "flat":
	default:
		return fmt.Errorf("unsupported pricing mode %q", c.Pricing.Mode)
	}
	if c.Pricing.ShippingRate.IsNegative() || c.Pricing.TaxRate.IsNegative() || c.Pricing.ShippingFee.IsNegative() {
		return fmt.Errorf("pricing values must not be negative")
	}

	if c.CartRequests.Workers < 0 || c.CartRequests.QueueSize < 0 {
		return fmt.Errorf("cart_requests values must not be negative")
	}

	if c.App.Env == "production" && len(c.Catalog) == 0 {
		return fmt.Errorf("catalog must not be empty in production")
	}
	return nil
}

// Policy returns the fee policy selected by pricing.mode.
func (c *Config) Policy() domain.FeePolicy {
	if c.Pricing.Mode == "flat" {
		return domain.FlatShippingPolicy{ShippingFee: c.Pricing.ShippingFee, TaxRate: c.Pricing.TaxRate}
	}
	return domain.RatePolicy{ShippingRate: c.Pricing.ShippingRate, TaxRate: c.Pricing.TaxRate}
}

// Products converts the catalog list. Entries without a stock value are untracked.
func (c *Config) Products() ([]domain.Product, error) {
	products := make([]domain.Product, 0, len(c.Catalog))
	for _, item := range c.Catalog {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			return nil, fmt.Errorf("catalog %q price: %w", item.ID, err)
		}
		var stock *int
		if item.Stock != nil {
			s := *item.Stock
			stock = &s
		}
		products = append(products, domain.Product{
			ID:            item.ID,
			Name:          item.Name,
			UnitPrice:     price,
			DeclaredStock: stock,
		})
	}
	return products, nil
}
