package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
	"gopkg.in/yaml.v3"
)

// Config is the resolved daemon configuration after file merge and env
// overrides. Secrets (admin token, store passphrase) come from the
// environment only and never from the config file.
type Config struct {
	Listen          string
	DataDir         string
	LogLevel        string
	AdminToken      string
	StorePassphrase string
	ChallengeRPS    float64
	ChallengeBurst  int
	RPCBodyLimit    int64
}

func DefaultConfig() Config {
	return Config{
		Listen:         "127.0.0.1:8420",
		DataDir:        "data",
		LogLevel:       "info",
		ChallengeRPS:   5,
		ChallengeBurst: 10,
		RPCBodyLimit:   1 << 20,
	}
}

type FileConfig struct {
	Server ServerFileConfig `yaml:"server"`
	Limits LimitsFileConfig `yaml:"limits"`
}

type ServerFileConfig struct {
	Listen   string `yaml:"listen"`
	DataDir  string `yaml:"dataDir"`
	LogLevel string `yaml:"logLevel"`
}

type LimitsFileConfig struct {
	ChallengeRPS   float64 `yaml:"challengeRps"`
	ChallengeBurst int     `yaml:"challengeBurst"`
	RPCBodyLimit   int64   `yaml:"rpcBodyLimit"`
}

func LoadFromPath(configPath string) Config {
	cfg := DefaultConfig()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"go-backend/configs/config.yaml",
			"configs/config.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var parsed FileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}

		merged := cfg
		Merge(&merged, parsed)
		ApplyEnvOverrides(&merged)
		return merged
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

func Merge(dst *Config, src FileConfig) {
	if src.Server.Listen != "" {
		dst.Listen = src.Server.Listen
	}
	if src.Server.DataDir != "" {
		dst.DataDir = src.Server.DataDir
	}
	if src.Server.LogLevel != "" {
		dst.LogLevel = src.Server.LogLevel
	}
	if src.Limits.ChallengeRPS != 0 {
		dst.ChallengeRPS = src.Limits.ChallengeRPS
	}
	if src.Limits.ChallengeBurst != 0 {
		dst.ChallengeBurst = src.Limits.ChallengeBurst
	}
	if src.Limits.RPCBodyLimit != 0 {
		dst.RPCBodyLimit = src.Limits.RPCBodyLimit
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if listen := strings.TrimSpace(os.Getenv("HELIX_LISTEN")); listen != "" {
		cfg.Listen = listen
	}
	if dir := strings.TrimSpace(os.Getenv("HELIX_DATA_DIR")); dir != "" {
		cfg.DataDir = dir
	}
	if level := strings.TrimSpace(os.Getenv("HELIX_LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}
	cfg.AdminToken = strings.TrimSpace(os.Getenv("HELIX_ADMIN_TOKEN"))
	cfg.StorePassphrase = os.Getenv("HELIX_STORE_PASSPHRASE")

	if raw := strings.TrimSpace(os.Getenv("HELIX_CHALLENGE_RPS")); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			cfg.ChallengeRPS = v
		}
	}
	if raw := strings.TrimSpace(os.Getenv("HELIX_CHALLENGE_BURST")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.ChallengeBurst = v
		}
	}
}

// ResolveListenAddr accepts either a multiaddr ("/ip4/127.0.0.1/tcp/8420")
// or a plain host:port and returns the host:port form net/http expects.
func ResolveListenAddr(listen string) (string, error) {
	listen = strings.TrimSpace(listen)
	if listen == "" {
		return "", fmt.Errorf("listen address is empty")
	}
	if strings.HasPrefix(listen, "/") {
		maddr, err := ma.NewMultiaddr(listen)
		if err != nil {
			return "", fmt.Errorf("parse listen multiaddr: %w", err)
		}
		naddr, err := manet.ToNetAddr(maddr)
		if err != nil {
			return "", fmt.Errorf("listen multiaddr is not a network address: %w", err)
		}
		if naddr.Network() != "tcp" {
			return "", fmt.Errorf("listen multiaddr must be tcp, got %s", naddr.Network())
		}
		return naddr.String(), nil
	}
	if _, _, err := net.SplitHostPort(listen); err != nil {
		return "", fmt.Errorf("parse listen address: %w", err)
	}
	return listen, nil
}
