package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/yiyanglaw/spam-email-backend/internal/ml"
)

// ServerConfig represents the configuration for the HTTP prediction server
type ServerConfig struct {
	ListenAddress   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodySize     int64
	MaxTextSize     int
}

// CorpusConfig represents the layout of the training CSV
type CorpusConfig struct {
	Path        string
	TextColumn  string
	LabelColumn string
	SpamLabel   string
}

// NLPConfig represents the configuration of the text normalizer
type NLPConfig struct {
	StopwordsPath string
}

// TrainingConfig represents the configuration of a training run
type TrainingConfig struct {
	TestSize        float64
	Seed            uint64
	Folds           int
	Scoring         string
	Workers         int
	NormalizeCorpus bool
}

// ModelConfig represents where trained models and reports are kept
type ModelConfig struct {
	Path       string
	Save       bool
	ReportPath string
}

// CacheConfig represents the configuration of the prediction cache
type CacheConfig struct {
	Type             string
	Enabled          bool
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	RedisURL         string
	RedisPrefix      string
}

// HeadersConfig names the headers the SMTP filter adds
type HeadersConfig struct {
	Spam   string
	Score  string
	Reason string
}

// SMTPConfig represents the configuration for the SMTP content filter
type SMTPConfig struct {
	Enabled            bool
	ListenAddress      string
	ForwardAddress     string
	BlockSpam          bool
	SubjectPrefix      string
	MaxBodySize        int
	WhitelistedDomains []string
	Headers            HeadersConfig
}

// MetricsConfig represents the configuration of the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// GetServer returns the HTTP server configuration
func (c *Config) GetServer() (ServerConfig, error) {
	cfg := ServerConfig{
		ListenAddress: c.GetString("server.listen_address"),
		MaxBodySize:   int64(c.GetInt("server.max_body_size")),
		MaxTextSize:   c.GetInt("server.max_text_size"),
	}

	var err error
	if cfg.ReadTimeout, err = c.GetDuration("server.read_timeout"); err != nil {
		return cfg, err
	}
	if cfg.WriteTimeout, err = c.GetDuration("server.write_timeout"); err != nil {
		return cfg, err
	}
	if cfg.IdleTimeout, err = c.GetDuration("server.idle_timeout"); err != nil {
		return cfg, err
	}
	if cfg.ShutdownTimeout, err = c.GetDuration("server.shutdown_timeout"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// GetCorpus returns the corpus configuration
func (c *Config) GetCorpus() CorpusConfig {
	return CorpusConfig{
		Path:        c.GetString("corpus.path"),
		TextColumn:  c.GetString("corpus.text_column"),
		LabelColumn: c.GetString("corpus.label_column"),
		SpamLabel:   c.GetString("corpus.spam_label"),
	}
}

// GetNLP returns the text normalizer configuration
func (c *Config) GetNLP() NLPConfig {
	return NLPConfig{
		StopwordsPath: c.GetString("nlp.stopwords_path"),
	}
}

// GetTraining returns the training configuration
func (c *Config) GetTraining() TrainingConfig {
	return TrainingConfig{
		TestSize:        c.GetFloat64("training.test_size"),
		Seed:            c.GetUint64("training.seed"),
		Folds:           c.GetInt("training.folds"),
		Scoring:         c.GetString("training.scoring"),
		Workers:         c.GetInt("training.workers"),
		NormalizeCorpus: c.GetBool("training.normalize_corpus"),
	}
}

// GetGrid parses the hyperparameter grid
func (c *Config) GetGrid() (ml.Grid, error) {
	var grid ml.Grid
	for _, s := range c.GetStringSlice("grid.ngram_ranges") {
		r, err := ml.ParseNgramRange(s)
		if err != nil {
			return grid, fmt.Errorf("grid.ngram_ranges: %w", err)
		}
		grid.NgramRanges = append(grid.NgramRanges, r)
	}

	var err error
	if grid.MaxDF, err = c.getFloatSlice("grid.max_df"); err != nil {
		return grid, err
	}
	if grid.Alpha, err = c.getFloatSlice("grid.alpha"); err != nil {
		return grid, err
	}
	return grid, grid.Validate()
}

func (c *Config) getFloatSlice(key string) ([]float64, error) {
	var out []float64
	for _, s := range c.GetStringSlice(key) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid number %q", key, s)
		}
		out = append(out, f)
	}
	return out, nil
}

// GetModel returns the model persistence configuration
func (c *Config) GetModel() ModelConfig {
	return ModelConfig{
		Path:       c.GetString("model.path"),
		Save:       c.GetBool("model.save"),
		ReportPath: c.GetString("model.report_path"),
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	cfg := CacheConfig{
		Type:        c.GetString("cache.type"),
		Enabled:     c.GetBool("cache.enabled"),
		SQLitePath:  c.GetString("cache.sqlite_path"),
		MySQLDSN:    c.GetString("cache.mysql_dsn"),
		RedisURL:    c.GetString("cache.redis_url"),
		RedisPrefix: c.GetString("cache.redis_prefix"),
	}

	var err error
	if cfg.TTL, err = c.GetDuration("cache.ttl"); err != nil {
		return cfg, err
	}
	if cfg.CleanupFrequency, err = c.GetDuration("cache.cleanup_frequency"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// GetSMTP returns the SMTP content filter configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Enabled:            c.GetBool("smtp.enabled"),
		ListenAddress:      c.GetString("smtp.listen_address"),
		ForwardAddress:     c.GetString("smtp.forward_address"),
		BlockSpam:          c.GetBool("smtp.block_spam"),
		SubjectPrefix:      c.GetString("smtp.subject_prefix"),
		MaxBodySize:        c.GetInt("smtp.max_body_size"),
		WhitelistedDomains: c.GetStringSlice("smtp.whitelisted_domains"),
		Headers: HeadersConfig{
			Spam:   c.GetString("smtp.headers.spam"),
			Score:  c.GetString("smtp.headers.score"),
			Reason: c.GetString("smtp.headers.reason"),
		},
	}
}

// GetMetrics returns the metrics configuration
func (c *Config) GetMetrics() MetricsConfig {
	return MetricsConfig{
		Enabled: c.GetBool("metrics.enabled"),
		Path:    c.GetString("metrics.path"),
	}
}
