package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 配置结构体
type Config struct {
	// NapCat / go-cqhttp 配置
	HttpRemote  string `yaml:"http_remote"`  // 正向 HTTP 地址
	HttpListen  string `yaml:"http_listen"`  // 反向 HTTP 监听地址
	AccessToken string `yaml:"access_token,omitempty"`
	BotID       string `yaml:"bot_id,omitempty"`

	RequestTimeout time.Duration `yaml:"request_timeout"`

	Chat       ChatConfig     `yaml:"chat"`
	DstServers []ServerConfig `yaml:"dst_servers"`
	Database   DatabaseConfig `yaml:"database"`
	Log        LogConfig      `yaml:"log"`
}

type ChatConfig struct {
	Provider string `yaml:"provider"` // turing | openai

	Turing struct {
		URL    string `yaml:"url"`
		UserID string `yaml:"user_id"`
		APIKey string `yaml:"api_key"`
	} `yaml:"turing"`

	OpenAI struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
	} `yaml:"openai"`
}

type ServerConfig struct {
	Name string      `yaml:"name"`
	IP   string      `yaml:"ip"`
	Port int         `yaml:"port,omitempty"`
	Rcon *RconConfig `yaml:"rcon,omitempty"`
}

type RconConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "", sqlite, postgres
	DSN    string `yaml:"dsn"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console *bool  `yaml:"console,omitempty"`
}

const (
	ProviderTuring = "turing"
	ProviderOpenAI = "openai"

	DefaultControlPort = 5800
	DefaultTuringURL   = "http://openapi.turingapi.com/openapi/api/v2"
)

var ErrInvalid = errors.New("invalid config")

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.HttpRemote == "" {
		cfg.HttpRemote = "http://127.0.0.1:5700"
	}
	cfg.HttpRemote = strings.TrimRight(cfg.HttpRemote, "/")
	if cfg.HttpListen == "" {
		cfg.HttpListen = "0.0.0.0:5701"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	if cfg.Chat.Provider == "" {
		cfg.Chat.Provider = ProviderTuring
	}
	if cfg.Chat.Turing.URL == "" {
		cfg.Chat.Turing.URL = DefaultTuringURL
	}

	for i := range cfg.DstServers {
		if cfg.DstServers[i].Port == 0 {
			cfg.DstServers[i].Port = DefaultControlPort
		}
	}

	if cfg.Database.Driver == "sqlite" && cfg.Database.DSN == "" {
		cfg.Database.DSN = "data/dstbot.db"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Console == nil {
		on := true
		cfg.Log.Console = &on
	}
}

func (cfg *Config) Validate() error {
	seen := make(map[string]bool, len(cfg.DstServers))
	for i, s := range cfg.DstServers {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("%w: dst_servers[%d]: empty name", ErrInvalid, i)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: dst_servers[%d]: duplicate name %q", ErrInvalid, i, s.Name)
		}
		seen[s.Name] = true
		if strings.TrimSpace(s.IP) == "" {
			return fmt.Errorf("%w: dst_servers[%d] %q: empty ip", ErrInvalid, i, s.Name)
		}
		if s.Port < 1 || s.Port > 65535 {
			return fmt.Errorf("%w: dst_servers[%d] %q: invalid port %d", ErrInvalid, i, s.Name, s.Port)
		}
		if s.Rcon != nil && !strings.Contains(s.Rcon.Address, ":") {
			return fmt.Errorf("%w: dst_servers[%d] %q: rcon address must be host:port", ErrInvalid, i, s.Name)
		}
	}

	switch cfg.Chat.Provider {
	case ProviderTuring:
		if cfg.Chat.Turing.UserID == "" || cfg.Chat.Turing.APIKey == "" {
			return fmt.Errorf("%w: chat.turing.user_id and chat.turing.api_key are required", ErrInvalid)
		}
	case ProviderOpenAI:
		if cfg.Chat.OpenAI.BaseURL == "" || cfg.Chat.OpenAI.Model == "" {
			return fmt.Errorf("%w: chat.openai.base_url and chat.openai.model are required", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown chat provider %q", ErrInvalid, cfg.Chat.Provider)
	}

	switch cfg.Database.Driver {
	case "", "sqlite":
	case "postgres":
		if cfg.Database.DSN == "" {
			return fmt.Errorf("%w: database.dsn is required for postgres", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalid, cfg.Database.Driver)
	}
	return nil
}

// RequiredDirs lists the directories that must exist before the bot starts.
func (cfg *Config) RequiredDirs() []string {
	var dirs []string
	add := func(file string) {
		dir := filepath.Dir(file)
		if file == "" || dir == "." {
			return
		}
		for _, d := range dirs {
			if d == dir {
				return
			}
		}
		dirs = append(dirs, dir)
	}
	add(cfg.Log.File)
	if cfg.Database.Driver == "sqlite" && !strings.HasPrefix(cfg.Database.DSN, "file:") && cfg.Database.DSN != ":memory:" {
		add(cfg.Database.DSN)
	}
	return dirs
}

func (cfg *Config) EnsureDirs() error {
	for _, dir := range cfg.RequiredDirs() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
