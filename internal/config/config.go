package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type APIKey struct {
	Name string `yaml:"name" validate:"required"`
	Key  string `yaml:"key" validate:"required"`
	Role string `yaml:"role"`
}

// Format registers an additional response type backed by a built-in mapper.
type Format struct {
	MIMEType string `yaml:"mime_type" validate:"required,contains=/"`
	Mapper   string `yaml:"mapper" validate:"required,oneof=json query xml yaml protobuf"`
}

type ResponseConfig struct {
	JSONPKey        string   `yaml:"jsonp_key"`
	PrettyPrintKey  string   `yaml:"pretty_print_key"`
	PrettyPrint     bool     `yaml:"pretty_print"`
	XMLRootElement  string   `yaml:"xml_root_element"`
	ExtraFormats    []Format `yaml:"extra_formats" validate:"dive"`
	DisabledFormats []string `yaml:"disabled_formats"`
}

type Config struct {
	ListenAddr string         `yaml:"listen_addr" validate:"required"`
	DBDSN      string         `yaml:"db_dsn" validate:"required"`
	LogLevel   string         `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat  string         `yaml:"log_format" validate:"oneof=json text"`
	APIKeys    []APIKey       `yaml:"api_keys" validate:"dive"`
	Response   ResponseConfig `yaml:"response"`
}

// Default returns the configuration used for keys the file leaves out.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		LogLevel:   "info",
		LogFormat:  "json",
		Response: ResponseConfig{
			JSONPKey:       "jsonp",
			PrettyPrintKey: "prettyPrint",
			PrettyPrint:    true,
			XMLRootElement: "root",
		},
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes YAML from r over Default and validates the result.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
