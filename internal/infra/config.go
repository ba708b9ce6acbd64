package infra

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/xela07ax/clickup-gmud/internal/domain"
)

// Config — корневая структура конфигурации. Собирается один раз при старте
// и передается вниз явно, без повторного чтения ENV по ходу работы.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	ClickUp  ClickUpConfig  `mapstructure:"clickup"`
	GMUD     GMUDConfig     `mapstructure:"gmud"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	MetricsPort  int           `mapstructure:"metrics_port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // Должен перекрывать самый длинный /wait
}

// ClickUpConfig описывает доступ к API таск-трекера.
type ClickUpConfig struct {
	Token     string        `mapstructure:"token" validate:"required"`
	ListID    string        `mapstructure:"list_id" validate:"required"`
	BaseURL   string        `mapstructure:"base_url" validate:"required,url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"` // Запросов в минуту на токен
}

// GMUDConfig: словарь статусов и параметры ожидания.
type GMUDConfig struct {
	StatusPending  string `mapstructure:"status_pending" validate:"required"`
	StatusApproved string `mapstructure:"status_approved" validate:"required"`
	StatusRejected string `mapstructure:"status_rejected" validate:"required"`
	StatusComplete string `mapstructure:"status_complete" validate:"required"`

	PollInterval time.Duration `mapstructure:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout"`

	CompleteOnSuccess      bool     `mapstructure:"complete_on_success"`
	SkipNonProduction      bool     `mapstructure:"skip_non_production"`
	ProductionEnvironments []string `mapstructure:"production_environments"`
	IncludeCommitInfo      bool     `mapstructure:"include_commit_info"`
	IncludePRInfo          bool     `mapstructure:"include_pr_info"`
}

// NotifyConfig описывает вебхук чата. Пустой URL означает "уведомления выключены".
type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url" validate:"omitempty,url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Attempts   uint          `mapstructure:"attempts"`
}

// GitHubConfig нужен только для обогащения описания коммитом.
type GitHubConfig struct {
	Token  string `mapstructure:"token"`
	APIURL string `mapstructure:"api_url"`
}

// RedisConfig описывает подключение к Redis (Pub/Sub решений). Пустой Addr выключает.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig описывает подключение к PostgreSQL для журнала. Пустой URL выключает.
type DatabaseConfig struct {
	URL           string        `mapstructure:"url"`
	MaxConns      int           `mapstructure:"max_conns"`
	BufferSize    int           `mapstructure:"buffer_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// AuthConfig: публичный ключ IdP для проверки RS256. Без ключа API открыт.
type AuthConfig struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
	PublicKey     []byte
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

var validate = newValidator()

// newValidator называет поля так же, как они называются в конфиге (mapstructure).
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("mapstructure"); name != "" && name != "-" {
			return name
		}
		return f.Name
	})
	return v
}

// Validate проверяет словарь статусов. Метки одобрения и отказа обязаны
// различаться, иначе автомат не может однозначно выбрать исход.
func (g GMUDConfig) Validate() error {
	if strings.EqualFold(strings.TrimSpace(g.StatusApproved), strings.TrimSpace(g.StatusRejected)) {
		return &domain.ConfigError{Field: "status_rejected", Reason: "must differ from status_approved"}
	}
	if g.PollInterval <= 0 {
		return &domain.ConfigError{Field: "poll_interval", Reason: "must be positive"}
	}
	if g.Timeout <= 0 {
		return &domain.ConfigError{Field: "timeout", Reason: "must be positive"}
	}
	return nil
}

// Validate прогоняет struct-теги и доменные правила.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) && len(vErrs) > 0 {
			fe := vErrs[0]
			field := strings.TrimPrefix(fe.Namespace(), "Config.")
			return &domain.ConfigError{Field: field, Reason: "failed '" + fe.Tag() + "' check"}
		}
		return fmt.Errorf("configuration: %w", err)
	}
	return c.GMUD.Validate()
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла, ENV и флагов.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// 2. ENV перекрывает файл: CLICKUP_TOKEN перекроет clickup.token
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Дефолты. Ключи без дефолта нужно привязать к ENV явно,
	// иначе Unmarshal их не увидит.
	SetDefaults(v)
	for _, key := range envOnlyKeys {
		_ = v.BindEnv(key)
	}

	// 4. Флаги командной строки (если переданы)
	if flags != nil {
		if path, err := flags.GetString("config"); err == nil && path != "" {
			v.SetConfigFile(path)
		}
		if f := flags.Lookup("port"); f != nil {
			if err := v.BindPFlag("server.port", f); err != nil {
				return nil, fmt.Errorf("bind flag port: %w", err)
			}
		}
	}

	// 5. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Файла нет, работаем на ENV и дефолтах
	}

	// 6. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 7. Ключ из ENV (Docker/K8s) или из файла по пути
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var envOnlyKeys = []string{
	"server.host",
	"clickup.token",
	"clickup.list_id",
	"notify.webhook_url",
	"github.token",
	"redis.addr",
	"redis.password",
	"redis.db",
	"database.url",
	"auth.public_key_path",
}

// SetDefaults ставит значения по умолчанию, общие для API и CI-экшена.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 65*time.Minute)

	v.SetDefault("clickup.base_url", "https://api.clickup.com/api/v2")
	v.SetDefault("clickup.timeout", 15*time.Second)
	v.SetDefault("clickup.rate_limit", 100)

	v.SetDefault("gmud.status_pending", "EM ANÁLISE")
	v.SetDefault("gmud.status_approved", "APROVADAS")
	v.SetDefault("gmud.status_rejected", "NEGADAS")
	v.SetDefault("gmud.status_complete", "COMPLETE")
	v.SetDefault("gmud.poll_interval", 30*time.Second)
	v.SetDefault("gmud.timeout", 60*time.Minute)
	v.SetDefault("gmud.complete_on_success", true)
	v.SetDefault("gmud.skip_non_production", true)
	v.SetDefault("gmud.production_environments", []string{"prd", "prod", "production"})
	v.SetDefault("gmud.include_commit_info", true)
	v.SetDefault("gmud.include_pr_info", true)

	v.SetDefault("notify.timeout", 10*time.Second)
	v.SetDefault("notify.attempts", 3)

	v.SetDefault("github.api_url", "https://api.github.com/")

	v.SetDefault("database.max_conns", 5)
	v.SetDefault("database.buffer_size", 1000)
	v.SetDefault("database.flush_interval", 1*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

// loadKeyResource: ключ либо прилетел напрямую в ENV, либо лежит в файле.
func loadKeyResource(path string, envDataKey string) []byte {
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
