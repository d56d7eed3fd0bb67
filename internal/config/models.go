package config

import (
	"os"
)

// StoreConfig selects the durable store rule documents live in
type StoreConfig struct {
	Type        string
	Scope       string
	SQLitePath  string
	MySQLDSN    string
	PostgresDSN string
}

// ProviderConfig selects the mailbox provider
type ProviderConfig struct {
	Type string
}

// GmailConfig locates the OAuth client secret and token
type GmailConfig struct {
	ConfigDir string
}

// IMAPConfig represents the configuration for an IMAP mailbox
type IMAPConfig struct {
	Address  string
	Username string
	Password string
	Inbox    string
	Insecure bool
}

// RulesConfig holds rule engine settings
type RulesConfig struct {
	AutoConsolidate    bool
	ReservedCategories []string
}

// SweepConfig controls the periodic sweep
type SweepConfig struct {
	Enabled   bool
	Interval  string
	BatchSize int
}

// DiscoveryConfig bounds a discovery run
type DiscoveryConfig struct {
	PerLabelLimit int
	TimeBudget    string
}

// BackupConfig selects where backups are written
type BackupConfig struct {
	Type string
	Dir  string
}

// S3Config represents the configuration for an S3 compatible bucket
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider      string
	MinConfidence float64
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// ServerConfig represents the SMTP filter configuration
type ServerConfig struct {
	FilterType      string
	ListenAddress   string
	CategoryHeader  string
	RuleHeader      string
	SuggestedHeader string
	PostfixEnabled  bool
	PostfixAddress  string
	PostfixPort     int
}

// MetricsConfig controls the metrics endpoint
type MetricsConfig struct {
	Enabled       bool
	ListenAddress string
}

// GetStore returns the store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:        c.GetString("store.type"),
		Scope:       c.GetString("store.scope"),
		SQLitePath:  os.ExpandEnv(c.GetString("store.sqlite_path")),
		MySQLDSN:    c.GetString("store.mysql_dsn"),
		PostgresDSN: c.GetString("store.postgres_dsn"),
	}
}

// GetProvider returns the provider configuration
func (c *Config) GetProvider() ProviderConfig {
	return ProviderConfig{
		Type: c.GetString("provider.type"),
	}
}

// GetGmail returns the Gmail configuration
func (c *Config) GetGmail() GmailConfig {
	return GmailConfig{
		ConfigDir: os.ExpandEnv(c.GetString("gmail.config_dir")),
	}
}

// GetIMAP returns the IMAP configuration
func (c *Config) GetIMAP() IMAPConfig {
	return IMAPConfig{
		Address:  c.GetString("imap.address"),
		Username: c.GetString("imap.username"),
		Password: c.GetString("imap.password"),
		Inbox:    c.GetString("imap.inbox"),
		Insecure: c.GetBool("imap.insecure"),
	}
}

// GetRules returns the rule engine configuration
func (c *Config) GetRules() RulesConfig {
	return RulesConfig{
		AutoConsolidate:    c.GetBool("rules.auto_consolidate"),
		ReservedCategories: c.GetStringSlice("rules.reserved_categories"),
	}
}

// GetSweep returns the sweep configuration
func (c *Config) GetSweep() SweepConfig {
	return SweepConfig{
		Enabled:   c.GetBool("sweep.enabled"),
		Interval:  c.GetString("sweep.interval"),
		BatchSize: c.GetInt("sweep.batch_size"),
	}
}

// GetDiscovery returns the discovery configuration
func (c *Config) GetDiscovery() DiscoveryConfig {
	return DiscoveryConfig{
		PerLabelLimit: c.GetInt("discovery.per_label_limit"),
		TimeBudget:    c.GetString("discovery.time_budget"),
	}
}

// GetBackup returns the backup configuration
func (c *Config) GetBackup() BackupConfig {
	return BackupConfig{
		Type: c.GetString("backup.type"),
		Dir:  c.GetString("backup.dir"),
	}
}

// GetS3 returns the S3 configuration
func (c *Config) GetS3() S3Config {
	return S3Config{
		Endpoint:  c.GetString("s3.endpoint"),
		AccessKey: c.GetString("s3.access_key"),
		SecretKey: c.GetString("s3.secret_key"),
		Bucket:    c.GetString("s3.bucket"),
		Prefix:    c.GetString("s3.prefix"),
		UseSSL:    c.GetBool("s3.use_ssl"),
	}
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:      c.GetString("llm.provider"),
		MinConfidence: c.GetFloat64("suggest.min_confidence"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetServer returns the SMTP filter configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		FilterType:      c.GetString("server.filter_type"),
		ListenAddress:   c.GetString("server.listen_address"),
		CategoryHeader:  c.GetString("server.headers.category"),
		RuleHeader:      c.GetString("server.headers.rule"),
		SuggestedHeader: c.GetString("server.headers.suggested"),
		PostfixEnabled:  c.GetBool("server.postfix.enabled"),
		PostfixAddress:  c.GetString("server.postfix.address"),
		PostfixPort:     c.GetInt("server.postfix.port"),
	}
}

// GetMetrics returns the metrics configuration
func (c *Config) GetMetrics() MetricsConfig {
	return MetricsConfig{
		Enabled:       c.GetBool("metrics.enabled"),
		ListenAddress: c.GetString("metrics.listen_address"),
	}
}
