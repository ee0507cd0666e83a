package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port            string        `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
		AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	} `mapstructure:"server"`

	Mongo struct {
		URI      string `mapstructure:"uri"`
		Database string `mapstructure:"database"`
	} `mapstructure:"mongo"`

	Redis struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		CacheTTL time.Duration `mapstructure:"cache_ttl"`
	} `mapstructure:"redis"`

	Auth struct {
		JWTSecret   string        `mapstructure:"jwt_secret"`
		Issuer      string        `mapstructure:"issuer"`
		SessionTTL  time.Duration `mapstructure:"session_ttl"`
		LoginLimit  int           `mapstructure:"login_limit"`
		LoginWindow time.Duration `mapstructure:"login_window"`
	} `mapstructure:"auth"`

	Storage struct {
		Driver   string `mapstructure:"driver"` // local|ftp
		LocalDir string `mapstructure:"local_dir"`
		BaseURL  string `mapstructure:"base_url"`
		FTP      struct {
			Host     string        `mapstructure:"host"`
			Port     string        `mapstructure:"port"`
			User     string        `mapstructure:"user"`
			Password string        `mapstructure:"password"`
			Timeout  time.Duration `mapstructure:"timeout"`
		} `mapstructure:"ftp"`
	} `mapstructure:"storage"`

	Mail struct {
		Driver    string `mapstructure:"driver"` // sendgrid|log
		APIKey    string `mapstructure:"sendgrid_api_key"`
		FromEmail string `mapstructure:"from_email"`
		FromName  string `mapstructure:"from_name"`
		ClientURL string `mapstructure:"client_url"`
	} `mapstructure:"mail"`

	Admin struct {
		SeedEmail    string `mapstructure:"seed_email"`
		SeedPassword string `mapstructure:"seed_password"`
	} `mapstructure:"admin"`

	Sweep struct {
		Spec   string        `mapstructure:"spec"`
		MaxAge time.Duration `mapstructure:"max_age"`
	} `mapstructure:"sweep"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logs"`
}

// envAliases keeps the original flat variable names working next to the
// dotted keys (MONGO_URI, SERVER_PORT, ...).
var envAliases = map[string][]string{
	"server.port":           {"PORT"},
	"mongo.uri":             {"MONGOURI"},
	"mongo.database":        {"DB"},
	"redis.addr":            {"REDIS_ADD"},
	"redis.password":        {"REDIS_PASS"},
	"auth.jwt_secret":       {"JWT_KEY", "JWT_SECRET"},
	"mail.sendgrid_api_key": {"SENDGRID_API_KEY"},
	"mail.client_url":       {"CLIENT_URL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("mongo.database", "realtor_listing")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", "10m")

	v.SetDefault("auth.issuer", "realtor-listing")
	v.SetDefault("auth.session_ttl", "24h")
	v.SetDefault("auth.login_limit", 5)
	v.SetDefault("auth.login_window", "15m")

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local_dir", "./uploads")
	v.SetDefault("storage.base_url", "http://localhost:8080/uploads")
	v.SetDefault("storage.ftp.host", "")
	v.SetDefault("storage.ftp.port", "21")
	v.SetDefault("storage.ftp.user", "")
	v.SetDefault("storage.ftp.password", "")
	v.SetDefault("storage.ftp.timeout", "10s")

	v.SetDefault("mail.driver", "log")
	v.SetDefault("mail.from_email", "")
	v.SetDefault("mail.from_name", "Realtor Listing")
	v.SetDefault("mail.client_url", "http://localhost:3000")

	v.SetDefault("admin.seed_email", "")
	v.SetDefault("admin.seed_password", "")

	v.SetDefault("sweep.spec", "@every 24h")
	v.SetDefault("sweep.max_age", "24h")

	v.SetDefault("logs.level", "info")
	v.SetDefault("logs.format", "text")
}

// Load reads configuration from defaults, an optional config file and the
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		envKey := strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		if err := v.BindEnv(append([]string{key, envKey}, names...)...); err != nil {
			return nil, fmt.Errorf("config env binding error: %w", err)
		}
	}

	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("config read error: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(c *Config) error {
	var problems []string
	if strings.TrimSpace(c.Mongo.URI) == "" {
		problems = append(problems, "mongo.uri (MONGOURI) must be set")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		problems = append(problems, "auth.jwt_secret (JWT_KEY) must be set")
	}
	if c.Auth.SessionTTL <= 0 {
		problems = append(problems, "auth.session_ttl must be positive")
	}
	if c.Auth.LoginLimit <= 0 || c.Auth.LoginWindow <= 0 {
		problems = append(problems, "auth.login_limit and auth.login_window must be positive")
	}
	switch c.Storage.Driver {
	case "local":
		if c.Storage.LocalDir == "" {
			problems = append(problems, "storage.local_dir must be set for the local driver")
		}
	case "ftp":
		if c.Storage.FTP.Host == "" {
			problems = append(problems, "storage.ftp.host must be set for the ftp driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.driver %q is not one of local, ftp", c.Storage.Driver))
	}
	switch c.Mail.Driver {
	case "log":
	case "sendgrid":
		if c.Mail.APIKey == "" || c.Mail.FromEmail == "" {
			problems = append(problems, "mail.sendgrid_api_key and mail.from_email must be set for the sendgrid driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("mail.driver %q is not one of sendgrid, log", c.Mail.Driver))
	}
	if (c.Admin.SeedEmail == "") != (c.Admin.SeedPassword == "") {
		problems = append(problems, "admin.seed_email and admin.seed_password must be set together")
	}
	if c.Sweep.MaxAge <= 0 {
		problems = append(problems, "sweep.max_age must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
