package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Cron      CronConfig      `mapstructure:"cron"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Guardrail GuardrailConfig `mapstructure:"guardrail"`
	Playbook  PlaybookConfig  `mapstructure:"playbook"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Swagger         bool          `mapstructure:"swagger"`

	// AllowedOrigins are host patterns allowed to open the breach stream cross-origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`

	// File enables a rotating JSON log file next to stdout.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type DBConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type CronConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	GuardrailScan string `mapstructure:"guardrail_scan"`
}

type AuthConfig struct {
	Disabled  bool   `mapstructure:"disabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	PrettyPrint bool   `mapstructure:"pretty_print"`
}

type GuardrailConfig struct {
	Timezone         string        `mapstructure:"timezone"`
	ScanLookbackDays int           `mapstructure:"scan_lookback_days"`
	ScanTimeout      time.Duration `mapstructure:"scan_timeout"`
	DefaultRules     RulesDefault  `mapstructure:"default_rules"`
}

type RulesDefault struct {
	MaxLossesRowDay           int    `mapstructure:"max_losses_row_day"`
	MaxLosingDaysStreakWeek   int    `mapstructure:"max_losing_days_streak_week"`
	MaxLosingWeeksStreakMonth int    `mapstructure:"max_losing_weeks_streak_month"`
	AlertsEnabled             bool   `mapstructure:"alerts_enabled"`
	EnforcementMode           string `mapstructure:"enforcement_mode"`
}

type PlaybookConfig struct {
	GradeThresholds map[string]float64 `mapstructure:"grade_thresholds"`
	RiskSchedule    map[string]float64 `mapstructure:"risk_schedule"`
	MaxVersionRetry int                `mapstructure:"max_version_retry"`
}

// Location resolves the guardrail timezone, falling back to UTC.
func (g GuardrailConfig) Location() *time.Location {
	if g.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EJ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.swagger", true)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.guardrail_scan", "@every 15m")
	v.SetDefault("auth.disabled", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "edge-journal")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "edge-journal:breaches")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "edge-journal")
	v.SetDefault("tracing.pretty_print", false)

	// Guardrail defaults mirror the rules a user gets before saving their own.
	v.SetDefault("guardrail.timezone", "UTC")
	v.SetDefault("guardrail.scan_lookback_days", 45)
	v.SetDefault("guardrail.scan_timeout", "2m")
	v.SetDefault("guardrail.default_rules.max_losses_row_day", 3)
	v.SetDefault("guardrail.default_rules.max_losing_days_streak_week", 2)
	v.SetDefault("guardrail.default_rules.max_losing_weeks_streak_month", 2)
	v.SetDefault("guardrail.default_rules.alerts_enabled", true)
	v.SetDefault("guardrail.default_rules.enforcement_mode", "off")

	v.SetDefault("playbook.grade_thresholds", map[string]float64{"A": 0.90, "B": 0.75, "C": 0.60})
	v.SetDefault("playbook.risk_schedule", map[string]float64{"A": 1.0, "B": 0.5, "C": 0.25, "D": 0.0})
	v.SetDefault("playbook.max_version_retry", 5)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
