package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot de consenso.
type Config struct {
	Consensus ConsensusConfig `yaml:"consensus"`
	API       APIConfig       `yaml:"api"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Storage   StorageConfig   `yaml:"storage"`
	HTTP      HTTPConfig      `yaml:"http"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Log       LogConfig       `yaml:"log"`
}

// ConsensusConfig controla el scan diario y los umbrales del detector.
type ConsensusConfig struct {
	Enabled             bool    `yaml:"enabled"`
	ScheduleTime        string  `yaml:"schedule_time" validate:"hhmm"` // "HH:MM" en Timezone
	Timezone            string  `yaml:"timezone" validate:"timezone"`
	MinWallets          int     `yaml:"min_wallets" validate:"min=1"`
	MinOrderValue       float64 `yaml:"min_order_value" validate:"min=0"`       // USDC
	MinPortfolioPercent float64 `yaml:"min_portfolio_percent" validate:"min=0"` // 2 = 2%
	InterWalletDelayMs  int     `yaml:"inter_wallet_delay_ms" validate:"min=0"`
	FetchConcurrency    int     `yaml:"fetch_concurrency" validate:"min=1,max=32"`
	PositionsLimit      int     `yaml:"positions_limit" validate:"min=1,max=500"`
	FetchTimeoutSeconds int     `yaml:"fetch_timeout_seconds" validate:"min=1"`
	SendTimeoutSeconds  int     `yaml:"send_timeout_seconds" validate:"min=1"`
}

// APIConfig contiene los base URLs de las APIs de datos.
type APIConfig struct {
	DataBase      string `yaml:"data_base" validate:"url"`
	AnalyticsBase string `yaml:"analytics_base" validate:"url"`
}

// TelegramConfig configura el bot. Sin token los mensajes van a consola.
type TelegramConfig struct {
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url" validate:"url"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn" validate:"required"` // ruta al archivo SQLite, o ":memory:"
}

// HTTPConfig configura la API de administración.
type HTTPConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// RedisConfig configura el lock distribuido del scan (opcional).
type RedisConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Addr           string `yaml:"addr" validate:"required_if=Enabled true"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db" validate:"min=0"`
	LockKey        string `yaml:"lock_key"`
	LockTTLSeconds int    `yaml:"lock_ttl_seconds" validate:"min=1"`
}

// KafkaConfig configura la publicación de señales (opcional).
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers" validate:"required_if=Enabled true"`
	Topic   string   `yaml:"topic" validate:"required"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// Parse interpreta un YAML, aplica overrides de entorno y defaults, y valida.
func Parse(data []byte) (*Config, error) {
	// consensus.enabled ausente = true
	cfg := Config{Consensus: ConsensusConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate comprueba rangos y formatos.
func (c *Config) Validate() error {
	v := validator.New()
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("15:04", fl.Field().String())
		return err == nil
	})

	err := v.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("validate: %s", strings.Join(msgs, "; "))
}

// Location devuelve la zona horaria del schedule.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Consensus.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config.Location: %w", err)
	}
	return loc, nil
}

// InterWalletDelay devuelve la pausa entre wallets como time.Duration.
func (c *Config) InterWalletDelay() time.Duration {
	return time.Duration(c.Consensus.InterWalletDelayMs) * time.Millisecond
}

// FetchTimeout devuelve el timeout por fetch de posiciones.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Consensus.FetchTimeoutSeconds) * time.Second
}

// SendTimeout devuelve el timeout por envío de mensaje.
func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.Consensus.SendTimeoutSeconds) * time.Second
}

// LockTTL devuelve el TTL del lock de Redis.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Redis.LockTTLSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("CONSENSUS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("env CONSENSUS_ENABLED: %w", err)
		}
		cfg.Consensus.Enabled = b
	}
	if v := os.Getenv("CONSENSUS_SCHEDULE_TIME"); v != "" {
		cfg.Consensus.ScheduleTime = v
	}
	if v := os.Getenv("CONSENSUS_TIMEZONE"); v != "" {
		cfg.Consensus.Timezone = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
// Los ceros explícitos en umbrales de valor y delay se respetan.
func setDefaults(cfg *Config) {
	c := &cfg.Consensus
	if c.ScheduleTime == "" {
		c.ScheduleTime = "09:00"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.MinWallets <= 0 {
		c.MinWallets = 3
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = 1
	}
	if c.PositionsLimit <= 0 {
		c.PositionsLimit = 500
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = 15
	}
	if c.SendTimeoutSeconds <= 0 {
		c.SendTimeoutSeconds = 10
	}
	if cfg.API.DataBase == "" {
		cfg.API.DataBase = "https://data-api.polymarket.com"
	}
	if cfg.API.AnalyticsBase == "" {
		cfg.API.AnalyticsBase = "https://polymarketanalytics.com"
	}
	if cfg.Telegram.BaseURL == "" {
		cfg.Telegram.BaseURL = "https://api.telegram.org"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "consensus.db"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Redis.LockKey == "" {
		cfg.Redis.LockKey = "consensus:scan-lock"
	}
	if cfg.Redis.LockTTLSeconds <= 0 {
		cfg.Redis.LockTTLSeconds = 900
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "consensus.signals"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
