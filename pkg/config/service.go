package config

import (
	"sync"

	"github.com/pkg/errors"
)

// Service guards UserConfig access. The periodic jobs re-read settings every
// tick while the settings endpoint may be writing them, so reads hand out a
// copy taken under the lock.
type Service struct {
	config *Config

	mu sync.RWMutex
}

type UpdateUserConfigOptions struct {
	UpdateFile bool
}

func NewService(cfg *Config) *Service {
	return &Service{config: cfg}
}

// UserConfig returns a snapshot of the current settings.
func (s *Service) UserConfig() UserConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.config.UserConfig
}

func (s *Service) UpdateUserConfig(userConfig *UserConfig, opts UpdateUserConfigOptions) error {
	s.mu.Lock()
	*s.config.UserConfig = *userConfig
	s.mu.Unlock()

	if !opts.UpdateFile {
		return nil
	}

	err := saveUserConfigFile(userConfig, s.config.UserConfigFilePath)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}
