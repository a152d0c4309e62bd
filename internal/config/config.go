package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Cache    CacheConfig    `mapstructure:"cache"`
	News     NewsConfig     `mapstructure:"news"`
	Gamma    GammaConfig    `mapstructure:"gamma"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Trading  TradingConfig  `mapstructure:"trading"`
	ClobREST ClobRESTConfig `mapstructure:"clob_rest"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Report   ReportConfig   `mapstructure:"report"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// CacheConfig selects the backing store of the news caches: "memory" or "redis".
type CacheConfig struct {
	Backend       string `mapstructure:"backend"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

type NewsConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	Country             string        `mapstructure:"country"`
	Language            string        `mapstructure:"language"`
	Timeout             time.Duration `mapstructure:"timeout"`
	DailyLimit          int           `mapstructure:"daily_limit"`
	MaxSearchesPerCycle int           `mapstructure:"max_searches_per_cycle"`
	HeadlineTTL         time.Duration `mapstructure:"headline_ttl"`
	SearchTTL           time.Duration `mapstructure:"search_ttl"`
	SearchPageSize      int           `mapstructure:"search_page_size"`
	LookbackDays        int           `mapstructure:"lookback_days"`
	Timezone            string        `mapstructure:"timezone"`
	RSSFeeds            []string      `mapstructure:"rss_feeds"`
	Categories          []string      `mapstructure:"categories"`
}

type GammaConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	FetchLimit int           `mapstructure:"fetch_limit"`
}

type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BackoffUnit time.Duration `mapstructure:"backoff_unit"`
}

type PipelineConfig struct {
	MaxArticles         int     `mapstructure:"max_articles"`
	MaxEvents           int     `mapstructure:"max_events"`
	MaxPrice            float64 `mapstructure:"max_price"`
	ConfirmedConfidence float64 `mapstructure:"confirmed_confidence"`
}

type TradingConfig struct {
	MaxPositionSize        float64       `mapstructure:"max_position_size"`
	RiskLimitPerTrade      float64       `mapstructure:"risk_limit_per_trade"`
	MinConfidenceThreshold float64       `mapstructure:"min_confidence_threshold"`
	MaxDailyTrades         int           `mapstructure:"max_daily_trades"`
	MaxOpenPositions       int           `mapstructure:"max_open_positions"`
	UnsupervisedMode       bool          `mapstructure:"unsupervised_mode"`
	MonitorOnly            bool          `mapstructure:"monitor_only"`
	TradingHoursStart      int           `mapstructure:"trading_hours_start"`
	TradingHoursEnd        int           `mapstructure:"trading_hours_end"`
	Backend                string        `mapstructure:"backend"`
	SettlementDelay        time.Duration `mapstructure:"settlement_delay"`
	PaperBalance           float64       `mapstructure:"paper_balance"`
}

type ClobRESTConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	APIKey        string        `mapstructure:"api_key"`
	APISecret     string        `mapstructure:"api_secret"`
	Passphrase    string        `mapstructure:"passphrase"`
	Address       string        `mapstructure:"address"`
	SignRequests  bool          `mapstructure:"sign_requests"`
	OrderPath     string        `mapstructure:"order_path"`
	BalancePath   string        `mapstructure:"balance_path"`
	DepositPath   string        `mapstructure:"deposit_path"`
	PositionsPath string        `mapstructure:"positions_path"`
}

type ScheduleConfig struct {
	CycleInterval    time.Duration `mapstructure:"cycle_interval"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
	RunOnStart       bool          `mapstructure:"run_on_start"`
}

type ReportConfig struct {
	Dir             string `mapstructure:"dir"`
	RecentDecisions int    `mapstructure:"recent_decisions"`
	PersistDB       bool   `mapstructure:"persist_db"`
}

type NotifyConfig struct {
	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	TelegramChatID   string `mapstructure:"telegram_chat_id"`
	WebhookURL       string `mapstructure:"webhook_url"`
	Project          string `mapstructure:"project"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 2)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "127.0.0.1:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.key_prefix", "eventarb:")

	v.SetDefault("news.base_url", "https://newsapi.org/v2")
	v.SetDefault("news.api_key", "")
	v.SetDefault("news.country", "us")
	v.SetDefault("news.language", "en")
	v.SetDefault("news.timeout", "10s")
	v.SetDefault("news.daily_limit", 95)
	v.SetDefault("news.max_searches_per_cycle", 3)
	v.SetDefault("news.headline_ttl", "30m")
	v.SetDefault("news.search_ttl", "2h")
	v.SetDefault("news.search_page_size", 50)
	v.SetDefault("news.lookback_days", 3)
	v.SetDefault("news.timezone", "UTC")
	v.SetDefault("news.categories", []string{"politics", "economy", "crypto", "sports", "tech"})

	v.SetDefault("gamma.base_url", "https://gamma-api.polymarket.com")
	v.SetDefault("gamma.timeout", "10s")
	v.SetDefault("gamma.fetch_limit", 100)

	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.backoff_unit", "10s")

	v.SetDefault("pipeline.max_articles", 40)
	v.SetDefault("pipeline.max_events", 10)
	v.SetDefault("pipeline.max_price", 0.90)
	v.SetDefault("pipeline.confirmed_confidence", 0.95)

	v.SetDefault("trading.max_position_size", 10)
	v.SetDefault("trading.risk_limit_per_trade", 10)
	v.SetDefault("trading.min_confidence_threshold", 0.8)
	v.SetDefault("trading.max_daily_trades", 5)
	v.SetDefault("trading.max_open_positions", 10)
	v.SetDefault("trading.unsupervised_mode", false)
	v.SetDefault("trading.monitor_only", true)
	v.SetDefault("trading.trading_hours_start", -1)
	v.SetDefault("trading.trading_hours_end", -1)
	v.SetDefault("trading.backend", "paper")
	v.SetDefault("trading.settlement_delay", "5s")
	v.SetDefault("trading.paper_balance", 100)

	v.SetDefault("clob_rest.base_url", "https://clob.polymarket.com")
	v.SetDefault("clob_rest.timeout", "10s")
	v.SetDefault("clob_rest.sign_requests", true)
	v.SetDefault("clob_rest.order_path", "/orders")
	v.SetDefault("clob_rest.balance_path", "/balance")
	v.SetDefault("clob_rest.deposit_path", "/deposit")
	v.SetDefault("clob_rest.positions_path", "/positions")

	v.SetDefault("schedule.cycle_interval", "30m")
	v.SetDefault("schedule.snapshot_interval", "1h")
	v.SetDefault("schedule.run_on_start", true)

	v.SetDefault("report.dir", "reports")
	v.SetDefault("report.recent_decisions", 200)
	v.SetDefault("report.persist_db", true)

	v.SetDefault("notify.project", "eventarb")
}

// HasTradingWindow reports whether an hour-of-day trading window is configured.
func (c TradingConfig) HasTradingWindow() bool {
	return c.TradingHoursStart >= 0 && c.TradingHoursEnd >= 0
}
