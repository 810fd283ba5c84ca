package keybackend

import (
	"github.com/sagarc03/apicore"
)

// ConsumersConfig holds configuration for loading consumers.
type ConsumersConfig struct {
	Inline []Consumer `mapstructure:"inline"` // Inline consumers from config
	File   string     `mapstructure:"file"`   // Path to JSON file containing consumers
}

// NewConsumerStore creates a ConsumerStore from inline consumers and the
// consumers file, if set. File entries take precedence over inline entries
// with the same client id.
func NewConsumerStore(cfg ConsumersConfig) (apicore.ConsumerStore, error) {
	secrets := make(map[string]string)

	for _, c := range cfg.Inline {
		if c.ClientID != "" && c.ClientSecret != "" {
			secrets[c.ClientID] = c.ClientSecret
		}
	}

	if cfg.File != "" {
		fileSecrets, err := LoadConsumersFromFile(cfg.File)
		if err != nil {
			return nil, err
		}
		for id, secret := range fileSecrets {
			secrets[id] = secret
		}
	}

	return NewMapConsumerStore(secrets), nil
}
