package keybackend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Consumer is a client allowed to request tokens.
type Consumer struct {
	ClientID     string `json:"client_id" mapstructure:"client_id"`
	ClientSecret string `json:"client_secret" mapstructure:"client_secret"`
}

// ReadConsumersFile reads the consumers array from a JSON file:
//
//	[
//	  {"client_id": "billing", "client_secret": "$argon2id$v=19$m=65536,t=1,p=2$..."},
//	  {"client_id": "reports", "client_secret": "plain-secret"}
//	]
func ReadConsumersFile(path string) ([]Consumer, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted config file
	if err != nil {
		return nil, fmt.Errorf("read consumers file: %w", err)
	}

	var consumers []Consumer
	if err := json.Unmarshal(data, &consumers); err != nil {
		return nil, fmt.Errorf("parse consumers file: %w", err)
	}

	return consumers, nil
}

// LoadConsumersFromFile returns the client id to secret mapping of a consumers file.
// Entries missing either field are skipped.
func LoadConsumersFromFile(path string) (map[string]string, error) {
	consumers, err := ReadConsumersFile(path)
	if err != nil {
		return nil, err
	}

	secrets := make(map[string]string, len(consumers))
	for _, c := range consumers {
		if c.ClientID != "" && c.ClientSecret != "" {
			secrets[c.ClientID] = c.ClientSecret
		}
	}

	return secrets, nil
}

// SaveConsumer adds c to the consumers file, replacing an entry with the same
// client id. A missing file is created. The file is replaced atomically.
func SaveConsumer(path string, c Consumer) error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("save consumer: client id and secret are required")
	}

	consumers, err := ReadConsumersFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	replaced := false
	for i := range consumers {
		if consumers[i].ClientID == c.ClientID {
			consumers[i] = c
			replaced = true
		}
	}
	if !replaced {
		consumers = append(consumers, c)
	}

	data, err := json.MarshalIndent(consumers, "", "  ")
	if err != nil {
		return fmt.Errorf("encode consumers file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".consumers-*.json")
	if err != nil {
		return fmt.Errorf("save consumer: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save consumer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save consumer: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save consumer: %w", err)
	}
	return nil
}
