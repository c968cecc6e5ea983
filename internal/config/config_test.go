package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsSelfValidating(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("avb_default_vlan: 10\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint16(10), cfg.AVBDefaultVLAN)
	assert.Equal(t, 1, cfg.MRPNumPorts)
	assert.Equal(t, 16, cfg.AVBStreamTableEntries)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not_a_real_field: 1\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsBadPortCount(t *testing.T) {
	cfg := Default()
	cfg.MRPNumPorts = 3
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNegativeSourcesOrSinks(t *testing.T) {
	cfg := Default()
	cfg.AVBNumSources = -1
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositivePacketRate(t *testing.T) {
	cfg := Default()
	cfg.AVB1722PacketRate = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateEnforcesSlackFormula(t *testing.T) {
	cfg := Default()
	cfg.AVBStreamTableEntries = 7 // sources(2)+sinks(2)+slack(4) = 8 > 7
	assert.Error(t, cfg.Validate())

	cfg.AVBStreamTableEntries = 8
	assert.NoError(t, cfg.Validate())
}

func TestValidateTwoPortSlackIsLarger(t *testing.T) {
	cfg := Default()
	cfg.MRPNumPorts = 2
	cfg.AVBStreamTableEntries = 8 // slack is now 4+8=12, so 8 is too small
	assert.Error(t, cfg.Validate())
}
