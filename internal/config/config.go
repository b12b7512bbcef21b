package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"propdesk/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	API        APIConfig        `yaml:"api"`
	Redis      RedisConfig      `yaml:"redis"`
	OTP        OTPConfig        `yaml:"otp"`
	Workflow   WorkflowConfig   `yaml:"workflow"`
	SeedPath   string           `yaml:"seed_path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Roles     APIRolesConfig     `yaml:"roles"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

// APIRolesConfig selects the acting role per request. It is a role
// switcher, not authentication.
type APIRolesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Header  string `yaml:"header"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

const (
	OTPModeDemo   = "demo"
	OTPModeRandom = "random"
)

type OTPConfig struct {
	Mode     string `yaml:"mode"`
	TTLHours int    `yaml:"ttl_hours"`
	Length   int    `yaml:"length"`
}

type WorkflowConfig struct {
	PaymentPlan   string `yaml:"payment_plan"`
	PaymentMethod string `yaml:"payment_method"`
	SLAHours      int    `yaml:"sla_hours"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.OTP.Mode {
	case OTPModeDemo, OTPModeRandom:
	default:
		return fmt.Errorf("unknown otp mode %q", c.OTP.Mode)
	}

	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		return fmt.Errorf("otp length must be between 4 and 10, got %d", c.OTP.Length)
	}

	if c.API.Enabled && (c.API.HTTP.Port <= 0 || c.API.HTTP.Port > 65535) {
		return fmt.Errorf("invalid api http port %d", c.API.HTTP.Port)
	}

	if c.Workflow.SLAHours < 0 {
		return errors.New("workflow.sla_hours must not be negative")
	}

	return nil
}

// ValidateSeed checks IDs are present and unique and that references resolve.
func ValidateSeed(seed models.Seed) error {
	brokers := make(map[string]bool, len(seed.Brokers))
	for _, b := range seed.Brokers {
		if strings.TrimSpace(b.ID) == "" {
			return fmt.Errorf("broker '%s' has empty ID", b.Name)
		}
		if brokers[b.ID] {
			return fmt.Errorf("duplicate broker ID found: %s", b.ID)
		}
		brokers[b.ID] = true
	}

	properties := make(map[string]bool, len(seed.Properties))
	for _, p := range seed.Properties {
		if strings.TrimSpace(p.Code) == "" {
			return fmt.Errorf("property '%s' has empty code", p.Name)
		}
		if properties[p.Code] {
			return fmt.Errorf("duplicate property code found: %s", p.Code)
		}
		if p.BSP < 0 {
			return fmt.Errorf("property %s has negative bsp", p.Code)
		}
		properties[p.Code] = true
	}

	customers := make(map[string]bool, len(seed.Customers))
	for _, c := range seed.Customers {
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("customer '%s' has empty ID", c.Name)
		}
		if customers[c.ID] {
			return fmt.Errorf("duplicate customer ID found: %s", c.ID)
		}
		// The seed holds no bookings, so a verified customer would have none.
		if c.Verified {
			return fmt.Errorf("customer %s is seeded as verified; seed customers must start unverified", c.ID)
		}
		switch c.Status {
		case "", models.CustomerPending:
		case models.CustomerComplete:
			return fmt.Errorf("customer %s is Complete but unverified", c.ID)
		default:
			return fmt.Errorf("customer %s has unknown status %q", c.ID, c.Status)
		}
		if !brokers[c.BrokerID] {
			return fmt.Errorf("customer %s references unknown broker %s", c.ID, c.BrokerID)
		}
		if c.PropertyUnit != "" && !properties[c.PropertyUnit] {
			return fmt.Errorf("customer %s references unknown property %s", c.ID, c.PropertyUnit)
		}
		customers[c.ID] = true
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "propdesk"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.Roles.Header == "" {
		c.API.Roles.Header = "x-role"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}

	if c.OTP.Mode == "" {
		c.OTP.Mode = OTPModeDemo
	}
	if c.OTP.TTLHours == 0 {
		c.OTP.TTLHours = models.DefaultSLAHours
	}
	if c.OTP.Length == 0 {
		c.OTP.Length = len(models.DemoOTPCode)
	}

	if c.Workflow.PaymentPlan == "" {
		c.Workflow.PaymentPlan = models.DefaultPaymentPlan
	}
	if c.Workflow.PaymentMethod == "" {
		c.Workflow.PaymentMethod = models.DefaultPaymentMethod
	}
	if c.Workflow.SLAHours == 0 {
		c.Workflow.SLAHours = models.DefaultSLAHours
	}
}
