package settings

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// consts
const (
	Name = "InsightChat"
)

// Config ...
type Config struct {
	Name    string `ignored:"true"`
	Version string `ignored:"true"`
	Develop bool   `envconfig:"DEVELOP"`

	HTTPListen     string        `envconfig:"HTTP_LISTEN" default:":5001"`
	AnalysisURL    string        `envconfig:"ANALYSIS_URL" default:"http://localhost:8000"`
	UserID         string        `envconfig:"USER_ID" default:"web_user"`
	SaveResult     bool          `envconfig:"SAVE_RESULT" default:"true"`
	AnalyzeTimeout time.Duration `envconfig:"ANALYZE_TIMEOUT"` // 0: wait forever

	SnapshotKey       string        `envconfig:"SNAPSHOT_KEY" default:"crewai_conversation"`
	SnapshotLifetime  time.Duration `envconfig:"SNAPSHOT_LIFETIME" default:"24h"`
	SnapshotRetention time.Duration `envconfig:"SNAPSHOT_RETENTION" default:"168h"` // redis key ttl
	SnapshotStore     string        `envconfig:"SNAPSHOT_STORE" default:"redis"`    // redis, bolt, memory
	RedisURI          string        `envconfig:"redis_uri" default:"redis://localhost:6379/1"`
	BoltPath          string        `envconfig:"BOLT_PATH"`

	HistoryLimit int    `envconfig:"HISTORY_LIMIT" default:"50"`
	PresetFile   string `envconfig:"preset_file"`
	Locale       string `envconfig:"LOCALE" default:"en-US"`
	TimeZone     string `envconfig:"TIMEZONE"` // IANA name for dates in the terminal, empty: system zone

	CookieName   string `envconfig:"Cookie_Name" default:"insc"`
	CookiePath   string `envconfig:"Cookie_Path" default:"/"`
	CookieMaxAge int    `envconfig:"Cookie_MaxAge" default:"86400"`
	SendRate     string `envconfig:"SEND_RATE" default:"30-M"` // ulule/limiter formatted rate
}

var (
	// Current 当前配置
	Current = new(Config)
)

func init() {
	if err := envconfig.Process(Name, Current); err != nil {
		log.Printf("envconfig process fail: %s", err)
	}

	Current.Name = Name
	Current.Version = version
}

// Usage 打印配置帮助
func Usage() error {
	log.Printf("ver: %s", Current.Version)
	return envconfig.Usage(Current.Name, Current)
}

// InDevelop ...
func InDevelop() bool {
	return Current.Develop
}
