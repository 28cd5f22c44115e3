package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sghaida/scoped/logger"
)

// Validation mirrors di.ValidationSettings in a loadable form.
type Validation struct {
	NothingOverridden bool `yaml:"nothing_overridden" mapstructure:"nothing_overridden"`
	ImplicitOverride  bool `yaml:"implicit_override" mapstructure:"implicit_override"`
	NothingDecorated  bool `yaml:"nothing_decorated" mapstructure:"nothing_decorated"`
}

// Settings configures container construction.
type Settings struct {
	Validation Validation `yaml:"validation" mapstructure:"validation"`
	// SkipValidation disables graph validation, for partial graphs used only
	// for introspection.
	SkipValidation bool `yaml:"skip_validation" mapstructure:"skip_validation"`
	// Lock guards the root container against concurrent instantiation.
	Lock bool `yaml:"lock" mapstructure:"lock"`
	// StartScope names the scope the root container is opened in. Empty means
	// the first non-skip scope.
	StartScope string `yaml:"start_scope" mapstructure:"start_scope"`
	// Logging enables the engine logger configured by Log.
	Logging bool          `yaml:"logging" mapstructure:"logging"`
	Log     logger.Config `yaml:"log" mapstructure:"log"`
}

// Default returns the settings a container uses when none are given.
func Default() Settings {
	s := Settings{
		Validation: Validation{NothingOverridden: true, ImplicitOverride: true, NothingDecorated: true},
		Lock:       true,
	}
	s.ApplyDefaults()
	return s
}

// ApplyDefaults fills the zero-valued string settings.
func (s *Settings) ApplyDefaults() {
	s.Log.ApplyDefaults()
}

// Validate checks the settings.
func (s *Settings) Validate() error {
	var errs []error
	if s.Logging {
		if err := s.Log.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if strings.TrimSpace(s.StartScope) != s.StartScope {
		errs = append(errs, fmt.Errorf("start_scope %q has surrounding spaces", s.StartScope))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid settings: %w", errors.Join(errs...))
	}
	return nil
}
