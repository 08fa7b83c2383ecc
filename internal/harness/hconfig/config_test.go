package hconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHarnessConfig_Validate(t *testing.T) {
	valid := &HarnessConfig{
		TesterEndpoints:    []string{"127.0.0.1:9001", "127.0.0.1:9002"},
		MinTestersExpected: 2,
		ReplyWindow:        60 * time.Second,
	}

	tests := []struct {
		name    string
		modify  func(*HarnessConfig)
		wantErr bool
	}{
		{name: "valid configuration", modify: func(c *HarnessConfig) {}},
		{name: "no endpoints", modify: func(c *HarnessConfig) { c.TesterEndpoints = nil }, wantErr: true},
		{name: "zero min testers", modify: func(c *HarnessConfig) { c.MinTestersExpected = 0 }, wantErr: true},
		{name: "min exceeds endpoints", modify: func(c *HarnessConfig) { c.MinTestersExpected = 3 }, wantErr: true},
		{name: "negative reply window", modify: func(c *HarnessConfig) { c.ReplyWindow = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *valid
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestTesterConfig_Validate(t *testing.T) {
	require.NoError(t, (&TesterConfig{ListenAddress: "0.0.0.0:9001"}).Validate())
	require.Error(t, (&TesterConfig{}).Validate())
}
