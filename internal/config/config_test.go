package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsStandaloneMaster(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, RoleMaster, cfg.Role)
	require.Equal(t, 6379, cfg.Port)
}

func TestInfoReplicationSection(t *testing.T) {
	cfg := DefaultConfig()
	info := NewInfo(cfg, "abc123")

	section := info.Section("replication")
	require.Equal(t, "master", section["role"])
	require.Equal(t, "abc123", section["master_replid"])
	require.Equal(t, "0", section["master_repl_offset"])
}

func TestInfoServerSection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 7000
	info := NewInfo(cfg, "abc123")

	section := info.Section("server")
	require.Equal(t, "7000", section["tcp_port"])
}

func TestInfoUnknownSectionIsNil(t *testing.T) {
	cfg := DefaultConfig()
	info := NewInfo(cfg, "abc123")
	require.Nil(t, info.Section("nosuchsection"))
}
