package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	ETCD     ETCDConfig     `mapstructure:"etcd"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Election ElectionConfig `mapstructure:"election"`
	Feed     FeedConfig     `mapstructure:"feed"`
	GraphQL  GraphQLConfig  `mapstructure:"graphql"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Master       string `mapstructure:"master"`
	Slave        string `mapstructure:"slave"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	// 数据存储Redis
	DataAddress string        `mapstructure:"data_address"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Timeout     time.Duration `mapstructure:"timeout"`

	// 榜单快照缓存有效期
	BoardCacheTTL time.Duration `mapstructure:"board_cache_ttl"`
}

type KafkaConfig struct {
	Brokers   []string `mapstructure:"brokers"`
	Topic     string   `mapstructure:"topic"`
	Partition int      `mapstructure:"partition"`
	GroupID   string   `mapstructure:"group_id"`
}

type ETCDConfig struct {
	Endpoints      []string      `mapstructure:"endpoints"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
}

// AdminConfig 管理口令为静态共享密钥，仅适用于低风险场景
type AdminConfig struct {
	Passcode string `mapstructure:"passcode"`
}

type ElectionConfig struct {
	// 首次启动时写入settings的基础票数
	InitialBaseline int `mapstructure:"initial_baseline"`
	// 首次启动时预置的候选人名单
	SeedCandidates []SeedCandidate `mapstructure:"seed_candidates"`
	// 榜单快照刷新间隔与刷新锁超时
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
	LockTimeout      time.Duration `mapstructure:"lock_timeout"`
}

type SeedCandidate struct {
	Name     string `mapstructure:"name"`
	Bio      string `mapstructure:"bio"`
	ImageRef string `mapstructure:"image_ref"`
}

type FeedConfig struct {
	// 活动流默认展示窗口大小
	RecentLimit int `mapstructure:"recent_limit"`
}

type GraphQLConfig struct {
	Path string `mapstructure:"path"`
}

var AppConfig Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()

	viper.SetDefault("feed.recent_limit", 20)
	viper.SetDefault("election.snapshot_interval", 5*time.Second)
	viper.SetDefault("election.lock_timeout", 3*time.Second)
	viper.SetDefault("redis.board_cache_ttl", 10*time.Second)
	viper.SetDefault("graphql.path", "/graphql")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return &AppConfig, nil
}
