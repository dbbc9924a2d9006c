package config

import "time"

// Config holds scansort configuration.
// Discovered at ./config.yaml or ~/.scansort/config.yaml.
type Config struct {
	// Categories is the configured category set pages are classified into.
	// The catch-all "other" is always implied and need not be listed.
	Categories []string `mapstructure:"categories" yaml:"categories"`

	Intake IntakeCfg `mapstructure:"intake" yaml:"intake"`
	OCR    OCRCfg    `mapstructure:"ocr" yaml:"ocr"`
	LLM    LLMCfg    `mapstructure:"llm" yaml:"llm"`
	Retry  RetryCfg  `mapstructure:"retry" yaml:"retry"`
	Log    LogCfg    `mapstructure:"log" yaml:"log"`
}

// IntakeCfg configures the intake scanner and watch mode.
type IntakeCfg struct {
	// SettleSeconds is how long a file must be quiet before a watch-mode
	// batch is triggered. Scanners write large PDFs incrementally.
	SettleSeconds int `mapstructure:"settle_seconds" yaml:"settle_seconds"`
}

// OCRCfg configures text extraction.
type OCRCfg struct {
	Pdftotext string `mapstructure:"pdftotext" yaml:"pdftotext"` // binary name or absolute path
	Pdftoppm  string `mapstructure:"pdftoppm" yaml:"pdftoppm"`   // binary name or absolute path
	DPI       int    `mapstructure:"dpi" yaml:"dpi"`             // rasterization DPI for pages without a text layer
	Language  string `mapstructure:"language" yaml:"language"`   // tesseract language
}

// LLMCfg configures the AI collaborator.
type LLMCfg struct {
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	Model          string `mapstructure:"model" yaml:"model"`
	APIKey         string `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`

	// MaxClassifyChars caps how much page text is sent for classification.
	MaxClassifyChars int `mapstructure:"max_classify_chars" yaml:"max_classify_chars"`
}

// RetryCfg configures the retry/backoff controller for external calls.
type RetryCfg struct {
	MaxAttempts   int     `mapstructure:"max_attempts" yaml:"max_attempts"`
	BaseDelayMS   int     `mapstructure:"base_delay_ms" yaml:"base_delay_ms"`
	Multiplier    float64 `mapstructure:"multiplier" yaml:"multiplier"`
	MaxDelayMS    int     `mapstructure:"max_delay_ms" yaml:"max_delay_ms"`
	JitterPercent int     `mapstructure:"jitter_percent" yaml:"jitter_percent"`
}

// LogCfg configures logging output.
type LogCfg struct {
	Level string `mapstructure:"level" yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Categories: []string{
			"invoices",
			"receipts",
			"contracts",
			"correspondence",
			"reports",
		},
		Intake: IntakeCfg{
			SettleSeconds: 10,
		},
		OCR: OCRCfg{
			Pdftotext: "pdftotext",
			Pdftoppm:  "pdftoppm",
			DPI:       300,
			Language:  "eng",
		},
		LLM: LLMCfg{
			BaseURL:          "https://api.openai.com/v1",
			Model:            "gpt-4o-mini",
			APIKey:           "${OPENAI_API_KEY}",
			TimeoutSeconds:   120,
			MaxClassifyChars: 2000,
		},
		Retry: RetryCfg{
			MaxAttempts:   3,
			BaseDelayMS:   1000,
			Multiplier:    2.0,
			MaxDelayMS:    30000,
			JitterPercent: 20,
		},
		Log: LogCfg{
			Level: "info",
		},
	}
}

// LLMTimeout returns the configured LLM timeout as a duration.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// SettleDelay returns the intake settle window as a duration.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Intake.SettleSeconds) * time.Second
}
