package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env string

	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Gmail    GmailConfig
	Matcher  MatcherConfig
	Parser   ParserConfig
	Dispatch DispatchConfig
	Storage  StorageConfig
	Agency   AgencyConfig
	Review   ReviewConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// GmailConfig covers OAuth material and the ingestion search surface.
type GmailConfig struct {
	CredentialsPath string
	TokenPath       string
	SenderAddresses []string
	UnreadOnly      bool
	ProcessedLabel  string
	MaxResults      int
	MaxRetries      int
	BackoffBase     time.Duration
}

// MatcherConfig tunes fuzzy client matching.
type MatcherConfig struct {
	Threshold       int
	AmbiguityMargin int
}

// ParserConfig holds KPI extraction policy knobs.
type ParserConfig struct {
	PreferLaterLine bool
}

// DispatchConfig governs spaced sending of approved notifications.
type DispatchConfig struct {
	InterMessageDelay time.Duration
	DraftOnly         bool
}

// StorageConfig locates downloaded report PDFs and review exports.
type StorageConfig struct {
	ReportDir string
	ExportDir string
}

// AgencyConfig supplies the notification signature block and boilerplate copy.
type AgencyConfig struct {
	Name             string
	Email            string
	Phone            string
	Website          string
	SEOParagraph     string
	PaidParagraph    string
	ClosingParagraph string
}

// ReviewConfig configures the approval review API server.
type ReviewConfig struct {
	Port           int
	AllowedOrigins []string
	JWTSecret      string
	JWTExpiry      time.Duration
	ReviewerEmail  string
	ReviewerHash   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Gmail = GmailConfig{
		CredentialsPath: v.GetString("GMAIL_CREDENTIALS_PATH"),
		TokenPath:       v.GetString("GMAIL_TOKEN_PATH"),
		SenderAddresses: splitAndTrim(v.GetString("REPORT_SENDER_ADDRESSES")),
		UnreadOnly:      v.GetBool("GMAIL_UNREAD_ONLY"),
		ProcessedLabel:  v.GetString("GMAIL_PROCESSED_LABEL"),
		MaxResults:      v.GetInt("GMAIL_MAX_RESULTS"),
		MaxRetries:      v.GetInt("GMAIL_MAX_RETRIES"),
		BackoffBase:     parseDuration(v.GetString("GMAIL_BACKOFF_BASE"), time.Second),
	}

	cfg.Matcher = MatcherConfig{
		Threshold:       v.GetInt("FUZZY_MATCH_THRESHOLD"),
		AmbiguityMargin: v.GetInt("FUZZY_AMBIGUITY_MARGIN"),
	}

	cfg.Parser = ParserConfig{
		PreferLaterLine: v.GetBool("PARSER_PREFER_LATER_LINE"),
	}

	cfg.Dispatch = DispatchConfig{
		InterMessageDelay: parseDuration(v.GetString("DISPATCH_INTER_MESSAGE_DELAY"), 30*time.Second),
		DraftOnly:         v.GetBool("DISPATCH_DRAFT_ONLY"),
	}

	cfg.Storage = StorageConfig{
		ReportDir: v.GetString("REPORT_STORAGE_DIR"),
		ExportDir: v.GetString("EXPORT_STORAGE_DIR"),
	}

	cfg.Agency = AgencyConfig{
		Name:             v.GetString("AGENCY_NAME"),
		Email:            v.GetString("AGENCY_EMAIL"),
		Phone:            v.GetString("AGENCY_PHONE"),
		Website:          v.GetString("AGENCY_WEBSITE"),
		SEOParagraph:     v.GetString("STANDARD_SEO_PARAGRAPH"),
		PaidParagraph:    v.GetString("STANDARD_PAID_PARAGRAPH"),
		ClosingParagraph: v.GetString("STANDARD_CLOSING_PARAGRAPH"),
	}

	cfg.Review = ReviewConfig{
		Port:           v.GetInt("REVIEW_PORT"),
		AllowedOrigins: splitAndTrim(v.GetString("REVIEW_ALLOWED_ORIGINS")),
		JWTSecret:      v.GetString("REVIEW_JWT_SECRET"),
		JWTExpiry:      parseDuration(v.GetString("REVIEW_JWT_EXPIRY"), 12*time.Hour),
		ReviewerEmail:  v.GetString("REVIEWER_EMAIL"),
		ReviewerHash:   v.GetString("REVIEWER_PASSWORD_HASH"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "reportpilot")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GMAIL_CREDENTIALS_PATH", "credentials.json")
	v.SetDefault("GMAIL_TOKEN_PATH", "token.json")
	v.SetDefault("REPORT_SENDER_ADDRESSES", "")
	v.SetDefault("GMAIL_UNREAD_ONLY", false)
	v.SetDefault("GMAIL_PROCESSED_LABEL", "Reports/Processed")
	v.SetDefault("GMAIL_MAX_RESULTS", 50)
	v.SetDefault("GMAIL_MAX_RETRIES", 3)
	v.SetDefault("GMAIL_BACKOFF_BASE", "1s")

	v.SetDefault("FUZZY_MATCH_THRESHOLD", 85)
	v.SetDefault("FUZZY_AMBIGUITY_MARGIN", 3)
	v.SetDefault("PARSER_PREFER_LATER_LINE", true)

	v.SetDefault("DISPATCH_INTER_MESSAGE_DELAY", "30s")
	v.SetDefault("DISPATCH_DRAFT_ONLY", false)

	v.SetDefault("REPORT_STORAGE_DIR", "./reports")
	v.SetDefault("EXPORT_STORAGE_DIR", "./exports")

	v.SetDefault("AGENCY_NAME", "")
	v.SetDefault("AGENCY_EMAIL", "")
	v.SetDefault("AGENCY_PHONE", "")
	v.SetDefault("AGENCY_WEBSITE", "")
	v.SetDefault("STANDARD_SEO_PARAGRAPH", "Your keyword rankings continue to improve.")
	v.SetDefault("STANDARD_PAID_PARAGRAPH", "Your campaigns continue to drive quality traffic.")
	v.SetDefault("STANDARD_CLOSING_PARAGRAPH", "Please review the attached PDF for your complete monthly report.")

	v.SetDefault("REVIEW_PORT", 8080)
	v.SetDefault("REVIEW_ALLOWED_ORIGINS", "")
	v.SetDefault("REVIEW_JWT_SECRET", "dev_secret")
	v.SetDefault("REVIEW_JWT_EXPIRY", "12h")
	v.SetDefault("REVIEWER_EMAIL", "")
	v.SetDefault("REVIEWER_PASSWORD_HASH", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
