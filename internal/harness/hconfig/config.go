package hconfig

import (
	"time"

	"github.com/dbtestharness/dbtestharness/pkg/harness/harnesserr"
)

// HarnessConfig is cmd/dbtestharness's top-level configuration.
type HarnessConfig struct {
	TesterEndpoints    []string      `yaml:"testerEndpoints"`
	MinTestersExpected int           `yaml:"minTestersExpected"`
	ReplyWindow        time.Duration `yaml:"replyWindow"`

	StartingConfiguration string `yaml:"startingConfiguration"`
	EnableDD              bool   `yaml:"enableDD"`
}

// Validate checks HarnessConfig's invariants: at least one tester endpoint,
// and MinTestersExpected no larger than the endpoint list the locator is
// seeded with, since the controller can never recruit more testers than it
// was told about.
func (c *HarnessConfig) Validate() error {
	if len(c.TesterEndpoints) == 0 {
		return harnesserr.Invalid("testerEndpoints must name at least one tester")
	}
	if c.MinTestersExpected <= 0 {
		return harnesserr.Invalid("minTestersExpected must be positive")
	}
	if c.MinTestersExpected > len(c.TesterEndpoints) {
		return harnesserr.Invalid("minTestersExpected exceeds the number of configured testerEndpoints")
	}
	if c.ReplyWindow < 0 {
		return harnesserr.Invalid("replyWindow must be non-negative")
	}
	return nil
}

// TesterConfig is cmd/dbtester's top-level configuration.
type TesterConfig struct {
	ListenAddress string `yaml:"listenAddress"`
}

// Validate checks TesterConfig's invariants.
func (c *TesterConfig) Validate() error {
	if c.ListenAddress == "" {
		return harnesserr.Invalid("listenAddress must be set")
	}
	return nil
}
