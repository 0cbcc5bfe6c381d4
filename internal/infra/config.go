package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации сервиса и наблюдателя.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Service  ServiceConfig  `mapstructure:"service"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Chaos    ChaosConfig    `mapstructure:"chaos"`
	Health   HealthConfig   `mapstructure:"health"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Observer ObserverConfig `mapstructure:"observer"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP/gRPC серверов.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr возвращает адрес HTTP-листенера.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GRPCAddr возвращает адрес gRPC-листенера.
func (s ServerConfig) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.GRPCPort)
}

// ServiceConfig — кто мы и что проверяем.
type ServiceConfig struct {
	Name string `mapstructure:"name"`
	// Таблица, доступность которой проверяет datastore-проба (inventory, orders)
	Table      string             `mapstructure:"table"`
	Downstream []DownstreamConfig `mapstructure:"downstream"`
}

// DownstreamConfig — зависимый сервис, чье время ответа попадает в /health/deep.
type DownstreamConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// DatabaseConfig описывает подключение к PostgreSQL.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig описывает подключение к Redis (кэш и Pub/Sub).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ChaosConfig — настройки контура управления хаосом.
type ChaosConfig struct {
	// Рассылать конфигурацию остальным инстансам через Redis Pub/Sub
	SyncEnabled bool    `mapstructure:"sync_enabled"`
	AdminRPS    float64 `mapstructure:"admin_rps"`
	AdminBurst  int     `mapstructure:"admin_burst"`
}

// HealthConfig — таймауты проб.
type HealthConfig struct {
	ProbeTimeout     time.Duration `mapstructure:"probe_timeout"`
	CachePingTimeout time.Duration `mapstructure:"cache_ping_timeout"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
}

// MonitorConfig — параметры скользящего окна.
type MonitorConfig struct {
	Window     time.Duration `mapstructure:"window"`
	WarningMs  float64       `mapstructure:"warning_ms"`
	CriticalMs float64       `mapstructure:"critical_ms"`
}

// ObserverConfig — наблюдатель, опрашивающий сервисы.
type ObserverConfig struct {
	Port     int            `mapstructure:"port"`
	Interval time.Duration  `mapstructure:"interval"`
	Targets  []TargetConfig `mapstructure:"targets"`
}

// TargetConfig — опрашиваемый сервис. Deep=true: время ответа идет в окно.
type TargetConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
	Deep bool   `mapstructure:"deep"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, console
	File       string `mapstructure:"file"`   // пусто — только stdout
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(".", "./configs")
}

// LoadConfigFrom — то же, что LoadConfig, но с явными путями поиска.
func LoadConfigFrom(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Ключи без дефолта viper не видит в ENV, поэтому перечисляем все
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.read_timeout", 5*time.Second)
	// Запись должна пережить инъекцию задержки (пресет severe — 10s)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("service.name", "inventory-service")
	v.SetDefault("service.table", "inventory")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("chaos.sync_enabled", false)
	v.SetDefault("chaos.admin_rps", 5.0)
	v.SetDefault("chaos.admin_burst", 10)

	v.SetDefault("health.probe_timeout", 5*time.Second)
	v.SetDefault("health.cache_ping_timeout", 2*time.Second)
	v.SetDefault("health.fetch_timeout", 10*time.Second)

	v.SetDefault("monitor.window", 30*time.Second)
	v.SetDefault("monitor.warning_ms", 500.0)
	v.SetDefault("monitor.critical_ms", 1000.0)

	v.SetDefault("observer.port", 8090)
	v.SetDefault("observer.interval", 2*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size_mb", 100)
	v.SetDefault("logger.max_backups", 3)
}
