package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"product-store/internal/logger"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	AppName                string `koanf:"app_name"`
	AppPort                string `koanf:"app_port"`
	GrpcPort               string `koanf:"grpc_port"`
	MongoURI               string `koanf:"mongo_uri"`
	MongoDBName            string `koanf:"mongo_db_name"`
	MongoTimeoutMs         int64  `koanf:"mongo_timeout_ms"`
	ShutdownTimeoutMs      int64  `koanf:"shutdown_timeout_ms"`
	RemoteLogHttpURI       string `koanf:"remote_log_http_uri"`
	RemoteTraceRpcURI      string `koanf:"remote_trace_rpc_uri"`
	RemoteProfilingHttpURI string `koanf:"remote_profiling_http_uri"`
}

// SafeConfig is the loggable view of Config; MongoURI may hold credentials and is left out.
type SafeConfig struct {
	AppName                string `json:"app_name"`
	AppPort                string `json:"app_port"`
	GrpcPort               string `json:"grpc_port"`
	MongoDBName            string `json:"mongo_db_name"`
	MongoTimeoutMs         int64  `json:"mongo_timeout_ms"`
	ShutdownTimeoutMs      int64  `json:"shutdown_timeout_ms"`
	RemoteLogHttpURI       string `json:"remote_log_http_uri"`
	RemoteTraceRpcURI      string `json:"remote_trace_rpc_uri"`
	RemoteProfilingHttpURI string `json:"remote_profiling_http_uri"`
}

var defaults = map[string]any{
	"app_name":            "product-store",
	"app_port":            "8000",
	"grpc_port":           "50051",
	"mongo_db_name":       "store",
	"mongo_timeout_ms":    5000,
	"shutdown_timeout_ms": 10000,
}

func toSnake(s string) string {
	var out strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 && s[i-1] != '_' {
				out.WriteRune('_')
			}
			out.WriteRune(unicode.ToLower(r))
		} else {
			out.WriteRune(r)
		}
	}
	return out.String()
}

// StructAttrs("data", cfg) ➜ []slog.Attr{ slog.String("data.app_port", "8000"), ... }
func StructAttrs(prefix string, s any) []slog.Attr {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	t := v.Type()

	attrs := make([]slog.Attr, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		key := prefix + "." + jsonKey(f)

		switch v.Field(i).Kind() {
		case reflect.String:
			attrs = append(attrs, slog.String(key, v.Field(i).String()))
		case reflect.Int, reflect.Int64, reflect.Int32:
			attrs = append(attrs, slog.Int64(key, v.Field(i).Int()))
		default:
			attrs = append(attrs, slog.Any(key, v.Field(i).Interface()))
		}
	}
	return attrs
}

// json tag name when present, otherwise the snake_cased field name
func jsonKey(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		return strings.Split(tag, ",")[0]
	}
	return toSnake(f.Name)
}

func (c *Config) ToSafeConfig() SafeConfig {
	return SafeConfig{
		AppName:                c.AppName,
		AppPort:                c.AppPort,
		GrpcPort:               c.GrpcPort,
		MongoDBName:            c.MongoDBName,
		MongoTimeoutMs:         c.MongoTimeoutMs,
		ShutdownTimeoutMs:      c.ShutdownTimeoutMs,
		RemoteLogHttpURI:       c.RemoteLogHttpURI,
		RemoteTraceRpcURI:      c.RemoteTraceRpcURI,
		RemoteProfilingHttpURI: c.RemoteProfilingHttpURI,
	}
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var missing []string
	if c.AppName == "" {
		missing = append(missing, "APP_NAME")
	}
	if c.AppPort == "" {
		missing = append(missing, "APP_PORT")
	}
	if c.MongoURI == "" {
		missing = append(missing, "MONGO_URI")
	}
	if c.MongoDBName == "" {
		missing = append(missing, "MONGO_DB_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.MongoTimeoutMs < 0 || c.ShutdownTimeoutMs < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

// LoadFrom builds a Config from, lowest priority first: built-in defaults, the YAML
// file at configFile, the dotenv file at envFile, and the process environment.
// Missing files are skipped.
func LoadFrom(configFile, envFile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", configFile, err)
		}
	}

	if envFile != "" {
		envMap, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
		values := make(map[string]any, len(envMap))
		for key, value := range envMap {
			values[strings.ToLower(key)] = value
		}
		if err := k.Load(confmap.Provider(values, "."), nil); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var log = logger.Instance()
var (
	configInstance *Config
	configOnce     sync.Once
)

// Instance loads the process configuration once. CONFIG_FILE overrides the YAML path.
func Instance() *Config {
	configOnce.Do(func() {
		configFile := os.Getenv("CONFIG_FILE")
		if configFile == "" {
			configFile = "config.yaml"
		}

		cfg, err := LoadFrom(configFile, ".env")
		if err != nil {
			log.Error("Failed to load configuration", slog.String("error", err.Error()))
			os.Exit(1)
		}
		configInstance = cfg

		// Optional but recommended
		if configInstance.RemoteLogHttpURI == "" {
			log.Warn("Missing REMOTE_LOG_HTTP_URI will skip sending log")
		}
		if configInstance.RemoteTraceRpcURI == "" {
			log.Warn("Missing REMOTE_TRACE_RPC_URI will print traces to stdout")
		}
		if configInstance.RemoteProfilingHttpURI == "" {
			log.Warn("Missing REMOTE_PROFILING_HTTP_URI will skip sending profiling")
		}

		attrs := StructAttrs("data", configInstance.ToSafeConfig())
		anyAttrs := make([]any, len(attrs))
		for i, a := range attrs {
			anyAttrs[i] = a
		}
		log.Info("Configuration loaded successfully", anyAttrs...)
	})

	return configInstance
}
