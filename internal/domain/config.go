package domain

import "time"

// Config holds the complete Harrier configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Pipeline inputs and outputs
	Models  ModelsConfig  `json:"models"`
	RuleDoc RuleDocConfig `json:"ruleDoc"`
	Reports ReportsConfig `json:"reports"`

	// External collaborators
	TextGen TextGenConfig `json:"textGen"`
	Mail    MailConfig    `json:"mail"`

	// Advisory dispatch policy
	Dispatch DispatchConfig `json:"dispatch"`

	// Observability
	Logging LoggingConfig `json:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// ModelsConfig locates the pre-fit model artifacts.
type ModelsConfig struct {
	// Dir holds anomaly_model.json, encoder.json, fraud_classifier.json
	// and label_decoder.json.
	Dir string `json:"dir"`
}

// RuleDocConfig locates the rule document source.
type RuleDocConfig struct {
	// Path to the extracted-text rule document (blocks separated by
	// blank lines). PDF text extraction happens upstream.
	Path string `json:"path"`

	// ContactWindow is the number of characters scanned after the
	// first occurrence of a branch name.
	ContactWindow int `json:"contactWindow"`
}

// ReportsConfig holds the write-only report output settings.
type ReportsConfig struct {
	Dir string `json:"dir"`
}

// TextGenConfig configures the advisory text generator.
type TextGenConfig struct {
	// Provider is "gemini" or "static".
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	APIKey   string        `json:"-"`
	Timeout  time.Duration `json:"timeout"`
}

// MailConfig configures SMTP dispatch of advisories.
type MailConfig struct {
	SMTPHost       string        `json:"smtpHost"`
	SMTPPort       int           `json:"smtpPort"`
	SenderEmail    string        `json:"senderEmail"`
	SenderPassword string        `json:"-"`
	Timeout        time.Duration `json:"timeout"`
}

// DispatchConfig controls whether and when advisories are mailed.
type DispatchConfig struct {
	Enabled bool `json:"enabled"`

	// Policy is a CEL expression over the branch summary deciding
	// whether an advisory is dispatched. Empty means dispatch all.
	Policy string `json:"policy"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// DefaultConfig returns the embedded single-node configuration:
// SQLite repository, in-process channel bus, local LRU cache, static
// text generator.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 60,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./harrier.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 1000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Models: ModelsConfig{
			Dir: "./models",
		},
		RuleDoc: RuleDocConfig{
			Path:          "./data/branch_rules.txt",
			ContactWindow: 600,
		},
		Reports: ReportsConfig{
			Dir: "./output",
		},
		TextGen: TextGenConfig{
			Provider: "static",
			Model:    "gemini-2.5-flash",
			Timeout:  30 * time.Second,
		},
		Mail: MailConfig{
			SMTPHost: "smtp.gmail.com",
			SMTPPort: 587,
			Timeout:  20 * time.Second,
		},
		Dispatch: DispatchConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// ClusterConfig returns the multi-node configuration: PostgreSQL
// repository, NATS bus, two-phase Redis cache.
func ClusterConfig() *Config {
	cfg := DefaultConfig()
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "harrier",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       5 * time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	return cfg
}
