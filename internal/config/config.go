package config

import (
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Notification transports
const (
	TransportQueue = "queue"
	TransportSMTP  = "smtp"
)

// SMTP TLS modes
const (
	SMTPTLSImplicit      = "implicit"
	SMTPTLSStartTLS      = "starttls"
	SMTPTLSOpportunistic = "opportunistic"
	SMTPTLSNone          = "none"
)

// Config represents the complete application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	RabbitMQ     RabbitMQConfig     `yaml:"rabbitmq"`
	Redis        RedisConfig        `yaml:"redis"`
	Logging      LoggingConfig      `yaml:"logging"`
	App          AppConfig          `yaml:"app"`
	Worker       WorkerConfig       `yaml:"worker"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Notification NotificationConfig `yaml:"notification"`
	SMTP         SMTPConfig         `yaml:"smtp"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// CORSOrigins lists allowed browser origins. Empty allows any origin.
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings. Deliveries are always
// acknowledged manually.
type ConsumerConfig struct {
	PrefetchCount int `yaml:"prefetch_count"`
}

// RedisConfig holds the Redis connection used for scheduler run locks
type RedisConfig struct {
	URL     string        `yaml:"url"`
	LockTTL time.Duration `yaml:"lock_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
	NoColor      bool   `yaml:"no_color"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds notification delivery worker configuration
type WorkerConfig struct {
	Concurrency      int           `yaml:"concurrency"`
	JobTimeout       time.Duration `yaml:"job_timeout"`
	MaxRedeliveries  int           `yaml:"max_redeliveries"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
	OpsPort          int           `yaml:"ops_port"`
	BufferMultiplier int           `yaml:"buffer_multiplier"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	MaxRetryDelay    time.Duration `yaml:"max_retry_delay"`
}

// SchedulerConfig holds the alert scheduler cadence and throttling
type SchedulerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Timezone         string        `yaml:"timezone"`
	DailySpec        string        `yaml:"daily_spec"`
	WeeklySpec       string        `yaml:"weekly_spec"`
	MonthlySpec      string        `yaml:"monthly_spec"`
	DispatchTimeout  time.Duration `yaml:"dispatch_timeout"`
	DispatchInterval time.Duration `yaml:"dispatch_interval"`
	TestWindow       time.Duration `yaml:"test_window"`
	RunLock          bool          `yaml:"run_lock"`
	RunTimeout       time.Duration `yaml:"run_timeout"`
	ReminderSpec     string        `yaml:"reminder_spec"`
	ReminderLeadTime time.Duration `yaml:"reminder_lead_time"`
}

// NotificationConfig selects how dispatches leave the process
type NotificationConfig struct {
	Transport   string `yaml:"transport"`
	FrontendURL string `yaml:"frontend_url"`
	FromEmail   string `yaml:"from_email"`
}

// SMTPConfig holds outbound mail server settings. TLS is one of implicit,
// starttls, opportunistic or none.
type SMTPConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	TLS      string        `yaml:"tls"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyDefaults()

	return &config, nil
}

// ApplyDefaults fills unset values with the defaults both services rely on
func (c *Config) ApplyDefaults() {
	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = "UTC"
	}
	if c.Scheduler.DailySpec == "" {
		c.Scheduler.DailySpec = "0 9 * * *"
	}
	if c.Scheduler.WeeklySpec == "" {
		c.Scheduler.WeeklySpec = "0 9 * * 1"
	}
	if c.Scheduler.MonthlySpec == "" {
		c.Scheduler.MonthlySpec = "0 9 1 * *"
	}
	if c.Scheduler.DispatchTimeout == 0 {
		c.Scheduler.DispatchTimeout = 30 * time.Second
	}
	if c.Scheduler.DispatchInterval == 0 {
		c.Scheduler.DispatchInterval = 100 * time.Millisecond
	}
	if c.Scheduler.TestWindow == 0 {
		c.Scheduler.TestWindow = 30 * 24 * time.Hour
	}
	if c.Scheduler.RunTimeout == 0 {
		c.Scheduler.RunTimeout = 2 * time.Hour
	}
	if c.Scheduler.ReminderSpec == "" {
		c.Scheduler.ReminderSpec = "0 * * * *"
	}
	if c.Scheduler.ReminderLeadTime == 0 {
		c.Scheduler.ReminderLeadTime = 24 * time.Hour
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = SMTPTLSOpportunistic
		if c.SMTP.Port == 465 {
			c.SMTP.TLS = SMTPTLSImplicit
		}
	}
	if c.SMTP.Timeout == 0 {
		c.SMTP.Timeout = 15 * time.Second
	}
	if c.Notification.Transport == "" {
		c.Notification.Transport = TransportQueue
	}
	if c.Notification.FrontendURL == "" {
		c.Notification.FrontendURL = "http://localhost:5001"
	}
	if c.Notification.FromEmail == "" {
		c.Notification.FromEmail = `"NextStep Job Tracker" <noreply@nextstep.com>`
	}
	if c.Redis.LockTTL == 0 {
		c.Redis.LockTTL = 30 * time.Minute
	}
	if c.Worker.MaxRedeliveries == 0 {
		c.Worker.MaxRedeliveries = 3
	}
	if c.Worker.BufferMultiplier == 0 {
		c.Worker.BufferMultiplier = 2
	}
	if c.Worker.RetryDelay == 0 {
		c.Worker.RetryDelay = 30 * time.Second
	}
	if c.Worker.MaxRetryDelay == 0 {
		c.Worker.MaxRetryDelay = 10 * time.Minute
	}
}

// ValidateAPIConfig checks the settings the API service needs
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateNotification(); err != nil {
		return err
	}

	if c.Scheduler.DispatchTimeout <= 0 {
		return fmt.Errorf("scheduler dispatch_timeout must be greater than 0")
	}

	return nil
}

// ValidateWorkerConfig checks the settings the worker service needs
func (c *Config) ValidateWorkerConfig() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	if c.Worker.RetryDelay < 0 || c.Worker.MaxRetryDelay < c.Worker.RetryDelay {
		return fmt.Errorf("worker retry_delay must not be negative or exceed max_retry_delay")
	}

	if c.Worker.OpsPort != 0 && (c.Worker.OpsPort < MinPort || c.Worker.OpsPort > MaxPort) {
		return fmt.Errorf("invalid worker ops port: %d (must be between %d and %d)", c.Worker.OpsPort, MinPort, MaxPort)
	}

	if err := c.validateNotification(); err != nil {
		return err
	}

	// The worker always consumes the delivery queue, so it needs SMTP and RabbitMQ
	if err := c.validateRabbitMQ(); err != nil {
		return err
	}

	if err := c.validateSMTP(); err != nil {
		return err
	}

	if c.Scheduler.Enabled {
		if err := c.validateScheduler(); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}

func (c *Config) validateRabbitMQ() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	return nil
}

func (c *Config) validateSMTP() error {
	if c.SMTP.Host == "" {
		return fmt.Errorf("smtp host is required")
	}

	if c.SMTP.Port < MinPort || c.SMTP.Port > MaxPort {
		return fmt.Errorf("invalid smtp port: %d (must be between %d and %d)", c.SMTP.Port, MinPort, MaxPort)
	}

	switch c.SMTP.TLS {
	case SMTPTLSImplicit, SMTPTLSStartTLS, SMTPTLSOpportunistic, SMTPTLSNone:
	default:
		return fmt.Errorf("invalid smtp tls mode: %q (must be %q, %q, %q or %q)",
			c.SMTP.TLS, SMTPTLSImplicit, SMTPTLSStartTLS, SMTPTLSOpportunistic, SMTPTLSNone)
	}

	return nil
}

func (c *Config) validateNotification() error {
	switch c.Notification.Transport {
	case TransportQueue:
		return c.validateRabbitMQ()
	case TransportSMTP:
		return c.validateSMTP()
	default:
		return fmt.Errorf("unknown notification transport: %q (must be %q or %q)", c.Notification.Transport, TransportQueue, TransportSMTP)
	}
}

func (c *Config) validateScheduler() error {
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid scheduler timezone %q: %w", c.Scheduler.Timezone, err)
	}

	specs := map[string]string{
		"daily_spec":    c.Scheduler.DailySpec,
		"weekly_spec":   c.Scheduler.WeeklySpec,
		"monthly_spec":  c.Scheduler.MonthlySpec,
		"reminder_spec": c.Scheduler.ReminderSpec,
	}
	for name, spec := range specs {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid scheduler %s %q: %w", name, spec, err)
		}
	}

	if c.Scheduler.DispatchTimeout <= 0 {
		return fmt.Errorf("scheduler dispatch_timeout must be greater than 0")
	}

	if c.Scheduler.DispatchInterval < 0 {
		return fmt.Errorf("scheduler dispatch_interval must not be negative")
	}

	if c.Scheduler.RunTimeout <= 0 {
		return fmt.Errorf("scheduler run_timeout must be greater than 0")
	}

	if c.Scheduler.ReminderLeadTime <= 0 {
		return fmt.Errorf("scheduler reminder_lead_time must be greater than 0")
	}

	if c.Scheduler.RunLock && c.Redis.URL == "" {
		return fmt.Errorf("redis url is required when scheduler run_lock is enabled")
	}

	if c.Scheduler.RunLock && c.Redis.LockTTL < 3*time.Second {
		return fmt.Errorf("redis lock_ttl must be at least 3s")
	}

	return nil
}
