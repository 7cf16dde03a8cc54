package cmd

import (
	"testing"

	"github.com/spf13/viper"
)

// Commands that never touch the store or providers (version, help) must run
// without a config file present.
func TestInitConfigSkippedForAuxiliaryCommands(t *testing.T) {
	initConfig()

	if used := viper.ConfigFileUsed(); used != "" {
		t.Fatalf("config file %q was read without serve or seed being called", used)
	}
}
