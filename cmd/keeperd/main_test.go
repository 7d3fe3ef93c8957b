package main

import (
    "bytes"
    "context"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
    root := newRootCmd()
    run, _, err := root.Find([]string{"run"})
    require.NoError(t, err)
    assert.Equal(t, "run", run.Name())
    assert.ElementsMatch(t, modes, run.ValidArgs)

    serve, _, err := root.Find([]string{"serve"})
    require.NoError(t, err)
    assert.Equal(t, "serve", serve.Name())
}

func TestSetupRequiresConnectionSettings(t *testing.T) {
    t.Setenv("RPC_URL", "")
    t.Setenv("STAKING_ADDRESS", "")
    t.Setenv("KEEPER_CONFIG_FILE", "")

    _, err := setup(context.Background(), "calculate")
    require.Error(t, err)
    assert.Contains(t, err.Error(), "RPC_URL")
    assert.Contains(t, err.Error(), "STAKING_ADDRESS")
}

func TestSetupIndexedModeNeedsSubgraph(t *testing.T) {
    t.Setenv("RPC_URL", "http://127.0.0.1:1")
    t.Setenv("STAKING_ADDRESS", "0x1111111111111111111111111111111111111111")
    t.Setenv("SUBGRAPH_URL", "")
    t.Setenv("KEEPER_CONFIG_FILE", "")

    _, err := setup(context.Background(), "distribute-indexed")
    require.Error(t, err)
    assert.Contains(t, err.Error(), "SUBGRAPH_URL")
}

func TestSetupRejectsUnknownMode(t *testing.T) {
    t.Setenv("RPC_URL", "http://127.0.0.1:1")
    t.Setenv("STAKING_ADDRESS", "0x1111111111111111111111111111111111111111")
    t.Setenv("KEEPER_CONFIG_FILE", "")

    _, err := setup(context.Background(), "harvest")
    require.Error(t, err)
    assert.Contains(t, err.Error(), `unknown mode "harvest"`)
}

func TestRunCommandSurfacesSetupErrors(t *testing.T) {
    t.Setenv("RPC_URL", "")
    t.Setenv("STAKING_ADDRESS", "")
    t.Setenv("KEEPER_CONFIG_FILE", "")

    root := newRootCmd()
    var out bytes.Buffer
    root.SetOut(&out)
    root.SetArgs([]string{"run", "sweep"})
    require.Error(t, root.ExecuteContext(context.Background()))
    assert.Empty(t, out.String())
}
