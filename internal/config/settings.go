package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Transport names accepted in client settings.
const (
	TransportHTTP  = "http"
	TransportGRPC  = "grpc"
	TransportLocal = "local"
)

// Settings are the client-side options for the CLI and terminal UI, read
// from ~/.givecal.yaml (or ./.givecal.yaml) and GIVECAL_* variables.
type Settings struct {
	Server     string // gRPC address of a givecal server
	HTTPURL    string // base URL of a givecal server
	Transport  string // http, grpc or local
	Token      string // bearer token for writes
	Fundraiser string // fundraiser file used in local transport
	ClientID   string // anonymous identity stamped on pledges
}

// LoadSettings reads client settings. A missing settings file is not an
// error. configPath, when set, names the file explicitly.
func LoadSettings(configPath string) (*Settings, error) {
	v := viper.New()
	v.SetDefault("server", "localhost:9090")
	v.SetDefault("http_url", "http://localhost:8080")
	v.SetDefault("transport", TransportHTTP)
	v.SetDefault("fundraiser", "fundraiser.toml")
	v.SetEnvPrefix("GIVECAL")
	v.AutomaticEnv()

	if configPath != "" {
		p, err := homedir.Expand(configPath)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(p)
	} else {
		v.SetConfigName(".givecal") // .yaml is implicit
		v.AddConfigPath("./")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(configPath != "" && os.IsNotExist(err)) {
			return nil, fmt.Errorf("reading settings: %w", err)
		}
	}

	s := &Settings{
		Server:     v.GetString("server"),
		HTTPURL:    v.GetString("http_url"),
		Transport:  v.GetString("transport"),
		Token:      v.GetString("token"),
		Fundraiser: v.GetString("fundraiser"),
		ClientID:   v.GetString("client_id"),
	}
	switch s.Transport {
	case TransportHTTP, TransportGRPC, TransportLocal:
	default:
		return nil, fmt.Errorf("unknown transport %q (want http, grpc or local)", s.Transport)
	}
	return s, nil
}

// StatePath returns a path under ~/.local/state/givecal, creating the
// directory.
func StatePath(name string) (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "state", "givecal")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
