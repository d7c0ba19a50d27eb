package config

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerCfg struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}
type MysqlCfg struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Database     string `mapstructure:"database"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Charset      string `mapstructure:"charset"`
	MaxIdleConns int    `mapstructure:"maxIdleConns"`
	MaxOpenConns int    `mapstructure:"maxOpenConns"`
	LogLevel     string `mapstructure:"logLevel"`
}
type RabbitCfg struct {
	URL           string `mapstructure:"url"`
	Exchange      string `mapstructure:"exchange"`
	NotifyQueue   string `mapstructure:"notifyQueue"`
	PrefetchCount int    `mapstructure:"prefetchCount"`
}
type RedisCfg struct {
	Addr           string `mapstructure:"addr"`
	Password       string `mapstructure:"password"`
	DB             int    `mapstructure:"db"`
	PoolSize       int    `mapstructure:"poolSize"`
	MerchantTTLSec int    `mapstructure:"merchantTTLSec"`
}
type SecurityCfg struct {
	SignWindowSec  int      `mapstructure:"signWindowSec"`
	ExcludedFields []string `mapstructure:"excludedFields"`
	PrivateKeyFile string   `mapstructure:"privateKeyFile"`
}
type NotifyCfg struct {
	MaxRetry      int `mapstructure:"maxRetry"`
	TimeoutSec    int `mapstructure:"timeoutSec"`
	RetryDelaySec int `mapstructure:"retryDelaySec"`
}
type AlertCfg struct {
	TelegramBotToken string `mapstructure:"telegramBotToken"`
	TelegramChatID   string `mapstructure:"telegramChatID"`
}
type ProjectCfg struct {
	Name string `mapstructure:"name"`
}
type SnowflakeCfg struct {
	Node int64 `mapstructure:"node"`
}

type Root struct {
	Project    ProjectCfg   `mapstructure:"project"`
	Server     ServerCfg    `mapstructure:"server"`
	MysqlMain  MysqlCfg     `mapstructure:"mysql_main"`
	MysqlOrder MysqlCfg     `mapstructure:"mysql_order"`
	RabbitMQ   RabbitCfg    `mapstructure:"rabbitmq"`
	Redis      RedisCfg     `mapstructure:"redis"`
	Security   SecurityCfg  `mapstructure:"security"`
	Notify     NotifyCfg    `mapstructure:"notify"`
	Snowflake  SnowflakeCfg `mapstructure:"snowflake"`
	Alert      AlertCfg     `mapstructure:"alert"`
}

var C Root

func Init() {
	env := flag.String("env", "dev", "config env: dev|prod")
	flag.Parse()

	if err := Load("config/config." + *env + ".yaml"); err != nil {
		log.Fatalf("load config failed: %v", err)
	}
}

// Load 读取配置文件，环境变量可覆盖（如 MYSQL_MAIN_PASSWORD）
func Load(path string) error {
	_ = godotenv.Load() // .env 不存在时忽略

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	var c Root
	if err := v.Unmarshal(&c); err != nil {
		return err
	}
	applyDefaults(&c)
	C = c
	return nil
}

// sane defaults
func applyDefaults(c *Root) {
	if strings.TrimSpace(c.Project.Name) == "" {
		c.Project.Name = "merchant-order-api"
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		c.Server.Port = "8080"
	}
	if c.Security.SignWindowSec <= 0 {
		c.Security.SignWindowSec = 60
	}
	if c.Redis.MerchantTTLSec <= 0 {
		c.Redis.MerchantTTLSec = 60
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "order_events"
	}
	if c.RabbitMQ.NotifyQueue == "" {
		c.RabbitMQ.NotifyQueue = "order_notify"
	}
	if c.Notify.MaxRetry <= 0 {
		c.Notify.MaxRetry = 3
	}
	if c.Notify.TimeoutSec <= 0 {
		c.Notify.TimeoutSec = 10
	}
	if c.Notify.RetryDelaySec <= 0 {
		c.Notify.RetryDelaySec = 5
	}
	if c.Alert.TelegramBotToken == "" {
		c.Alert.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	for _, m := range []*MysqlCfg{&c.MysqlMain, &c.MysqlOrder} {
		if m.Charset == "" {
			m.Charset = "utf8mb4"
		}
		if m.MaxIdleConns <= 0 {
			m.MaxIdleConns = 10
		}
		if m.MaxOpenConns <= 0 {
			m.MaxOpenConns = 50
		}
	}
}
