package provision

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envInstaller(id, envProperty string) types.Installer {
	return types.Installer{
		ID:         id,
		Properties: map[string]string{types.InstallerEnvProperty: envProperty},
	}
}

func serverInstaller(id string, servers map[string]types.ServerConfig) types.Installer {
	return types.Installer{ID: id, Servers: servers}
}

func TestInstallerEnvBestEffort(t *testing.T) {
	env := newTestEnv("ws/dev")
	env.Machines["ws/dev"].Installers = []types.Installer{envInstaller("agent", "A=1,BADENTRY,B=2")}

	err := NewInstallerConfigProvisioner().Provision(testIdentity, env)
	require.NoError(t, err)

	machineEnv := env.Machines["ws/dev"].Env
	assert.Equal(t, "1", machineEnv["A"])
	assert.Equal(t, "2", machineEnv["B"])
	assert.NotContains(t, machineEnv, "BADENTRY")

	require.Len(t, env.Warnings, 1)
	assert.Equal(t, types.WarningMalformedInstallerEnv, env.Warnings[0].Code)
	assert.Contains(t, env.Warnings[0].Message, "BADENTRY")
}

func TestInstallerEnvSkipIsLoggedWithMachine(t *testing.T) {
	var buf bytes.Buffer
	log.Init(log.Config{Level: log.WarnLevel, JSONOutput: true, Output: &buf})
	defer func() { log.Logger = zerolog.Nop() }()

	env := newTestEnv("ws/dev")
	env.Machines["ws/dev"].Installers = []types.Installer{envInstaller("agent", "BADENTRY")}
	require.NoError(t, NewInstallerConfigProvisioner().Provision(testIdentity, env))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "workspace123", entry["workspace_id"])
	assert.Equal(t, "ws/dev", entry["machine"])
	assert.Equal(t, "installer-config", entry["component"])
	assert.Equal(t, "agent", entry["installer"])
	assert.Equal(t, "BADENTRY", entry["entry"])
}

func TestInstallerEnvEntries(t *testing.T) {
	tests := []struct {
		name     string
		property string
		want     map[string]string
		warnings int
	}{
		{name: "single entry", property: "JAVA_OPTS=-Xmx1g", want: map[string]string{"JAVA_OPTS": "-Xmx1g"}},
		{name: "value with equals", property: "OPTS=a=b", want: map[string]string{"OPTS": "a=b"}},
		{name: "surrounding spaces", property: " A=1 , B=2 ", want: map[string]string{"A": "1", "B": "2"}},
		{name: "empty key", property: "=1,B=2", want: map[string]string{"B": "2"}, warnings: 1},
		{name: "empty value", property: "A=,B=2", want: map[string]string{"B": "2"}, warnings: 1},
		{name: "blank entries ignored", property: "A=1,,B=2", want: map[string]string{"A": "1", "B": "2"}},
		{name: "blank property", property: "   ", want: map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv("ws/dev")
			env.Machines["ws/dev"].Installers = []types.Installer{envInstaller("agent", tt.property)}

			require.NoError(t, NewInstallerConfigProvisioner().Provision(testIdentity, env))
			assert.Equal(t, tt.want, env.Machines["ws/dev"].Env)
			assert.Len(t, env.Warnings, tt.warnings)
		})
	}
}

func TestInstallerEnvLastWriterWins(t *testing.T) {
	env := newTestEnv("ws/dev")
	env.Machines["ws/dev"].Env["A"] = "machine"
	env.Machines["ws/dev"].Installers = []types.Installer{
		envInstaller("first", "A=1"),
		envInstaller("second", "A=2"),
	}

	require.NoError(t, NewInstallerConfigProvisioner().Provision(testIdentity, env))
	assert.Equal(t, "2", env.Machines["ws/dev"].Env["A"])
}

func TestInstallerWithoutEnvDoesNotStopOthers(t *testing.T) {
	env := newTestEnv("ws/dev")
	env.Machines["ws/dev"].Installers = []types.Installer{
		{ID: "no-env"},
		envInstaller("with-env", "A=1"),
	}

	require.NoError(t, NewInstallerConfigProvisioner().Provision(testIdentity, env))
	assert.Equal(t, "1", env.Machines["ws/dev"].Env["A"])
}

func TestInstallerServerConflict(t *testing.T) {
	env := newTestEnv("ws/dev")
	env.Machines["ws/dev"].Installers = []types.Installer{
		serverInstaller("a", map[string]types.ServerConfig{"debug": {Port: "5005/tcp", Protocol: "jdwp"}}),
		serverInstaller("b", map[string]types.ServerConfig{"debug": {Port: "5006/tcp", Protocol: "jdwp"}}),
	}

	err := NewInstallerConfigProvisioner().Provision(testIdentity, env)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflictingServer)
	assert.Contains(t, err.Error(), `"debug"`)
	assert.Contains(t, err.Error(), `installer "b"`)
	assert.Contains(t, err.Error(), `machine "ws/dev"`)
	assert.Contains(t, err.Error(), `workspace "workspace123"`)

	// the first declaration is kept, never overwritten
	assert.Equal(t, "5005/tcp", env.Machines["ws/dev"].Servers["debug"].Port)
}

func TestInstallerIdenticalServers(t *testing.T) {
	debug := types.ServerConfig{Port: "5005/tcp", Protocol: "jdwp", Attributes: map[string]string{"internal": "true"}}
	env := newTestEnv("ws/dev")
	env.Machines["ws/dev"].Installers = []types.Installer{
		serverInstaller("a", map[string]types.ServerConfig{"debug": debug}),
		serverInstaller("b", map[string]types.ServerConfig{"debug": debug}),
	}

	require.NoError(t, NewInstallerConfigProvisioner().Provision(testIdentity, env))
	assert.True(t, debug.Equal(env.Machines["ws/dev"].Servers["debug"]))
}

func TestInstallerConflictWithMachineServer(t *testing.T) {
	env := newTestEnv("ws/dev")
	env.Machines["ws/dev"].Servers["web"] = types.ServerConfig{Port: "8080", Protocol: "http"}
	env.Machines["ws/dev"].Installers = []types.Installer{
		serverInstaller("agent", map[string]types.ServerConfig{"web": {Port: "8080", Protocol: "https"}}),
	}

	err := NewInstallerConfigProvisioner().Provision(testIdentity, env)
	assert.ErrorIs(t, err, ErrConflictingServer)
}

func TestInstallerServerMergeIsIdempotent(t *testing.T) {
	env := newTestEnv("ws/dev", "ws/db")
	env.Machines["ws/dev"].Installers = []types.Installer{
		serverInstaller("exec", map[string]types.ServerConfig{"exec": {Port: "4411/tcp", Protocol: "ws"}}),
		serverInstaller("terminal", map[string]types.ServerConfig{
			"terminal": {Port: "4412/tcp", Protocol: "ws", Path: "/pty"},
			"exec":     {Port: "4411/tcp", Protocol: "ws"},
		}),
	}
	provisioner := NewInstallerConfigProvisioner()

	require.NoError(t, provisioner.Provision(testIdentity, env))
	once := make(map[string]types.ServerConfig)
	for k, v := range env.Machines["ws/dev"].Servers {
		once[k] = v
	}

	require.NoError(t, provisioner.Provision(testIdentity, env))
	assert.Equal(t, once, env.Machines["ws/dev"].Servers)
	assert.Len(t, once, 2)
	assert.Empty(t, env.Machines["ws/db"].Servers)
}

func TestInstallerServersAreCopied(t *testing.T) {
	installer := serverInstaller("agent", map[string]types.ServerConfig{
		"web": {Port: "8080", Protocol: "http", Attributes: map[string]string{"public": "true"}},
	})
	env := newTestEnv("ws/dev")
	env.Machines["ws/dev"].Installers = []types.Installer{installer}

	require.NoError(t, NewInstallerConfigProvisioner().Provision(testIdentity, env))
	env.Machines["ws/dev"].Servers["web"].Attributes["public"] = "false"

	assert.Equal(t, "true", installer.Servers["web"].Attributes["public"])
}
