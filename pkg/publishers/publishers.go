package publishers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/students-e2e/internal/filecfg"
)

// Supported publisher types.
const (
	TypeSQS       = "sqs"
	TypeSNS       = "sns"
	TypeGCPPubSub = "gcp_pubsub"
	TypeHTTP      = "http"
)

// PublisherConfig is one report sink declared in the publishers file. Only
// the block matching Type is read.
type PublisherConfig struct {
	ID        string                    `json:"id" yaml:"id" validate:"required"`
	Type      string                    `json:"type" yaml:"type" validate:"required,oneof=sqs sns gcp_pubsub http"`
	Enabled   *bool                     `json:"enabled" yaml:"enabled"`
	SQS       *SQSPublisherConfig       `json:"sqs" yaml:"sqs" validate:"required_if=Type sqs"`
	SNS       *SNSPublisherConfig       `json:"sns" yaml:"sns" validate:"required_if=Type sns"`
	GCPPubSub *GCPPubSubPublisherConfig `json:"gcp_pubsub" yaml:"gcp_pubsub" validate:"required_if=Type gcp_pubsub"`
	HTTP      *HTTPPublisherConfig      `json:"http" yaml:"http" validate:"required_if=Type http"`
}

// AWSCredentials optionally pins static keys instead of the default chain.
type AWSCredentials struct {
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string `json:"session_token" yaml:"session_token"`
}

type SQSPublisherConfig struct {
	QueueURL    string         `json:"uri" yaml:"uri" validate:"required,url"`
	Region      string         `json:"region" yaml:"region" validate:"required"`
	Endpoint    string         `json:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	Credentials AWSCredentials `json:"credentials" yaml:"credentials"`
}

type SNSPublisherConfig struct {
	TopicARN    string         `json:"topic_arn" yaml:"topic_arn" validate:"required"`
	Region      string         `json:"region" yaml:"region" validate:"required"`
	Endpoint    string         `json:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	Credentials AWSCredentials `json:"credentials" yaml:"credentials"`
}

// GCPPubSubPublisherConfig targets a topic. Endpoint is host:port, as used by
// the Pub/Sub emulator.
type GCPPubSubPublisherConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id" validate:"required"`
	Topic           string `json:"topic" yaml:"topic" validate:"required"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPPublisherConfig posts the report as JSON. Method defaults to POST and
// TimeoutSeconds to 5.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url" validate:"required,url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds" validate:"gte=0"`
}

// LoadConfigs reads a publishers file. Every entry is validated, including
// disabled ones; use Enabled to pick the sinks to build.
func LoadConfigs(path string) ([]PublisherConfig, error) {
	var file struct {
		Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
	}
	if err := filecfg.Read(path, "publishers", &file); err != nil {
		return nil, err
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	seen := make(map[string]struct{}, len(file.Publishers))
	for i := range file.Publishers {
		cfg := &file.Publishers[i]
		cfg.ID = strings.TrimSpace(cfg.ID)
		cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
	}
	return file.Publishers, nil
}

// Validate reports missing or malformed fields of the entry.
func (cfg PublisherConfig) Validate() error {
	if err := filecfg.Validate(cfg); err != nil {
		if cfg.ID == "" {
			return err
		}
		return fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}
	return nil
}

// IsEnabled treats a missing enabled flag as true.
func (cfg PublisherConfig) IsEnabled() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}

// Enabled returns the entries of cfgs that are switched on, in order.
func Enabled(cfgs []PublisherConfig) []PublisherConfig {
	var out []PublisherConfig
	for _, cfg := range cfgs {
		if cfg.IsEnabled() {
			out = append(out, cfg)
		}
	}
	return out
}
