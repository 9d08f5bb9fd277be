package taskrunner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner_Run(t *testing.T) {
	r := NewExecRunner("true", t.TempDir(), Targets{DataTransfer: "data-transfer"})

	assert.NoError(t, r.RunDataTransfer(context.Background()))
}

func TestExecRunner_RunFailure(t *testing.T) {
	r := NewExecRunner("false", t.TempDir(), Targets{Recipe: "recipe"})

	err := r.RunRecipe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recipe")
}

func TestExecRunner_MissingTarget(t *testing.T) {
	r := NewExecRunner("true", t.TempDir(), Targets{})

	assert.Error(t, r.RunBackup(context.Background()),
		"an unconfigured target must not silently succeed")
}

func TestExecRunner_StoreLifecycleViaTargets(t *testing.T) {
	r := NewExecRunner("true", t.TempDir(), Targets{StoreUp: "store-up", StoreDown: "store-down"})

	assert.NoError(t, r.StartIndexStore(context.Background()))
	assert.NoError(t, r.StopIndexStore(context.Background()))
}
