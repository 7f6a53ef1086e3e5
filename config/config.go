package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Guild    GuildConfig    `mapstructure:"guild"`
	War      WarConfig      `mapstructure:"war"`
	Quest    QuestConfig    `mapstructure:"quest"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`
	AdminKey string `mapstructure:"admin_key"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

// GuildConfig holds guild progression tunables.
type GuildConfig struct {
	BaseXPThreshold   int   `mapstructure:"base_xp_threshold"`
	XPPerContribution int   `mapstructure:"xp_per_contribution"` // contribution amount per 1 XP
	BaseMaxMembers    int   `mapstructure:"base_max_members"`
	MembersPerLevel   int   `mapstructure:"members_per_level"`
	MaxMembersCap     int   `mapstructure:"max_members_cap"`
	WarHistoryCap     int   `mapstructure:"war_history_cap"`
	InitialGold       int64 `mapstructure:"initial_gold"`
}

// WarConfig holds guild-war timing and scoring tunables.
type WarConfig struct {
	PrepDelay   time.Duration `mapstructure:"prep_delay"`
	Duration    time.Duration `mapstructure:"duration"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
	CaptureStep int           `mapstructure:"capture_step"`
	DefeatBonus int           `mapstructure:"defeat_bonus"`
}

type QuestConfig struct {
	DailySlots     int           `mapstructure:"daily_slots"`
	WeeklyWindow   time.Duration `mapstructure:"weekly_window"`
	SeasonalWindow time.Duration `mapstructure:"seasonal_window"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLH        time.Duration `mapstructure:"jwt_ttl_h"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/guildwar.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("guild.base_xp_threshold", 1000)
	v.SetDefault("guild.xp_per_contribution", 10)
	v.SetDefault("guild.base_max_members", 20)
	v.SetDefault("guild.members_per_level", 5)
	v.SetDefault("guild.max_members_cap", 100)
	v.SetDefault("guild.war_history_cap", 50)
	v.SetDefault("guild.initial_gold", 0)
	v.SetDefault("war.prep_delay", "1h")
	v.SetDefault("war.duration", "1h")
	v.SetDefault("war.cooldown", "24h")
	v.SetDefault("war.capture_step", 10)
	v.SetDefault("war.defeat_bonus", 100)
	v.SetDefault("quest.daily_slots", 3)
	v.SetDefault("quest.weekly_window", "168h")
	v.SetDefault("quest.seasonal_window", "2160h")
	v.SetDefault("quest.sweep_interval", "1m")
	v.SetDefault("security.jwt_ttl_h", "72h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
