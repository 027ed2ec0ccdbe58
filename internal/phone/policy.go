package phone

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/skiptrace-cli/internal/resilience"
)

// Policy governs how discovered phones are selected and validated. It is
// carried explicitly on the validator so tests can substitute a no-delay
// variant.
type Policy struct {
	// Retry is the backoff policy for rate-limited lookup calls.
	Retry resilience.Policy `mapstructure:"retry"`

	// InterCallDelay is the fixed pause between sequential lookup calls.
	// Sequential-with-delay is how the provider's rate limit is honored;
	// it is not a throughput bug.
	InterCallDelay time.Duration `mapstructure:"inter_call_delay"`

	// MaxPrimaryPhones caps how many primary-contact phones are validated.
	MaxPrimaryPhones int `mapstructure:"max_primary_phones"`

	// MaxSecondOwnerPhones caps how many co-owner phones are queued.
	MaxSecondOwnerPhones int `mapstructure:"max_second_owner_phones"`

	// MaxPersistedPhones caps how many phones are persisted per contact
	// from a single provider occurrence, validated or not.
	MaxPersistedPhones int `mapstructure:"max_persisted_phones"`
}

// DefaultPolicy returns the production validation policy.
func DefaultPolicy() Policy {
	return Policy{
		Retry:                resilience.DefaultPolicy(),
		InterCallDelay:       time.Second,
		MaxPrimaryPhones:     3,
		MaxSecondOwnerPhones: 2,
		MaxPersistedPhones:   3,
	}
}

// TestPolicy returns a policy with no delays for tests.
func TestPolicy() Policy {
	p := DefaultPolicy()
	p.Retry = resilience.NoDelayPolicy()
	p.InterCallDelay = 0
	return p
}

// filePolicy is the YAML schema for LoadPolicy. Delays are millisecond
// integers so the file stays plain YAML.
type filePolicy struct {
	Retry struct {
		MaxAttempts int     `yaml:"max_attempts"`
		BaseDelayMs int     `yaml:"base_delay_ms"`
		Multiplier  float64 `yaml:"multiplier"`
	} `yaml:"retry"`
	InterCallDelayMs     int `yaml:"inter_call_delay_ms"`
	MaxPrimaryPhones     int `yaml:"max_primary_phones"`
	MaxSecondOwnerPhones int `yaml:"max_second_owner_phones"`
	MaxPersistedPhones   int `yaml:"max_persisted_phones"`
}

// LoadPolicy reads a validation policy from a YAML file, filling unset
// fields from defaults.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, eris.Wrapf(err, "phone: read policy %s", path)
	}

	var wrapper struct {
		Validation filePolicy `yaml:"validation"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Policy{}, eris.Wrap(err, "phone: parse policy")
	}

	fp := wrapper.Validation
	p := DefaultPolicy()
	if fp.Retry.MaxAttempts > 0 {
		p.Retry.MaxAttempts = fp.Retry.MaxAttempts
	}
	if fp.Retry.BaseDelayMs > 0 {
		p.Retry.BaseDelay = time.Duration(fp.Retry.BaseDelayMs) * time.Millisecond
	}
	if fp.Retry.Multiplier > 0 {
		p.Retry.Multiplier = fp.Retry.Multiplier
	}
	if fp.InterCallDelayMs > 0 {
		p.InterCallDelay = time.Duration(fp.InterCallDelayMs) * time.Millisecond
	}
	if fp.MaxPrimaryPhones > 0 {
		p.MaxPrimaryPhones = fp.MaxPrimaryPhones
	}
	if fp.MaxSecondOwnerPhones > 0 {
		p.MaxSecondOwnerPhones = fp.MaxSecondOwnerPhones
	}
	if fp.MaxPersistedPhones > 0 {
		p.MaxPersistedPhones = fp.MaxPersistedPhones
	}
	return p, nil
}
