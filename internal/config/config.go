package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 结构体包含所有应用的配置
type Config struct {
	Server        ServerConfig        `mapstructure:"server"` // `mapstructure` 标签用于Viper绑定结构体
	MySQL         MySQLConfig         `mapstructure:"mysql"`
	Redis         RedisConfig         `mapstructure:"redis"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	AliyunOSS     AliyunOSSConfig     `mapstructure:"aliyun_oss"`
	RabbitMQ      RabbitMQConfig      `mapstructure:"rabbitmq"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Storage       StorageConfig       `mapstructure:"storageconfig"`
	Quota         QuotaConfig         `mapstructure:"quota"`
	Share         ShareConfig         `mapstructure:"share"`
	Log           LogConfig           `mapstructure:"log"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    string `mapstructure:"port"`
	Env     string `mapstructure:"env"`      // development / production
	BaseURL string `mapstructure:"base_url"` // 用于拼接分享链接，例如 https://skieshare.example.com
}

// MySQLConfig 数据库配置
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

type AliyunOSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"` // 例如: oss-cn-hangzhou.aliyuncs.com
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"` // OSS SDK 默认是HTTPS，但为了明确
}

// RabbitMQConfig RabbitMQ配置
type RabbitMQConfig struct {
	URL string `mapstructure:"url"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	SecretKey          string        `mapstructure:"secret_key"`
	ExpiresIn          time.Duration `mapstructure:"expires_in"` // 使用 time.Duration 更清晰
	RefreshExpireHours time.Duration `mapstructure:"refresh_expire_hours"`
	Issuer             string        `mapstructure:"issuer"`
}

type StorageConfig struct {
	Type               string `mapstructure:"type"` // minio 或 aliyun_oss
	PresignedURLExpiry int    `mapstructure:"presigned_url_expiry"` // 预签名URL有效期（分钟）
}

// QuotaConfig 各订阅套餐的配额配置
type QuotaConfig struct {
	FreeStorageLimit  uint64 `mapstructure:"free_storage_limit"`  // 字节，默认 6GB
	BasicStorageLimit uint64 `mapstructure:"basic_storage_limit"` // 字节
	FreeDailyUploads  uint32 `mapstructure:"free_daily_uploads"`  // 每日上传次数上限，0 表示不限
	BasicDailyUploads uint32 `mapstructure:"basic_daily_uploads"`
}

// ShareConfig 分享相关配置
type ShareConfig struct {
	TokenLength       int `mapstructure:"token_length"`        // 分享 token 随机字节数
	CodeLength        int `mapstructure:"code_length"`         // 分享码字符数
	CodeMaxAttempts   int `mapstructure:"code_max_attempts"`   // 分享码碰撞重试上限
	DefaultExpiryDays int `mapstructure:"default_expiry_days"` // 0 表示默认永久
}

// zap日志配置
type LogConfig struct {
	OutputPath string `mapstructure:"output_path"`
	ErrorPath  string `mapstructure:"error_path"`
	Level      string `mapstructure:"level"`
}

// ElasticsearchConfig 定义 Elasticsearch 连接配置
type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	FileIndex string   `mapstructure:"file_index"` // 文件名搜索索引名
}

var AppConfig *Config // 全局应用配置实例

// LoadConfig 加载配置
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")            // 配置文件名 (不带扩展名)
	viper.SetConfigType("yaml")              // 配置文件类型
	viper.AddConfigPath(".")                 // 在当前目录查找配置文件
	viper.AddConfigPath("./configs")         // 也可以添加其他路径，例如 ./configs/
	viper.AddConfigPath("/etc/skieshare/")   // 生产环境常见路径

	// 读取环境变量，环境变量名将自动转换为大写，并用下划线替换点
	// 例如：SERVER.PORT 对应环境变量 SKIESHARE_SERVER_PORT
	viper.SetEnvPrefix("SKIESHARE")
	viper.AutomaticEnv() // 自动绑定环境变量

	// 替换环境变量中的点为下划线，确保Viper能正确映射如 MYSQL_DSN 到 mysql.dsn
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	// 默认值：配置文件和环境变量都缺省时生效
	viper.SetDefault("quota.free_storage_limit", uint64(6442450944))
	viper.SetDefault("quota.basic_storage_limit", uint64(107374182400))
	viper.SetDefault("share.token_length", 32)
	viper.SetDefault("share.code_length", 8)
	viper.SetDefault("share.code_max_attempts", 5)
	viper.SetDefault("storageconfig.presigned_url_expiry", 15)
	viper.SetDefault("elasticsearch.file_index", "skieshare_files")

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// 配置文件未找到，但这不是致命错误，因为我们可以依赖环境变量或默认值
			log.Println("Warning: config file not found, using environment variables or default values.")
			return nil, err
		} else {
			// 其他读取错误，例如配置文件格式错误
			log.Fatalf("Fatal error reading config file: %s \n", err)
			return nil, err
		}
	}

	// 将读取到的配置绑定到结构体
	AppConfig = &Config{}
	if err := viper.Unmarshal(AppConfig); err != nil {
		log.Fatalf("Fatal error unmarshaling config: %s \n", err)
		return nil, err
	}

	log.Println("Configuration loaded successfully with Viper.")
	return AppConfig, nil
}
