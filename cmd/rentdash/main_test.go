package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentdash/rentdash/internal/app"
	_ "github.com/rentdash/rentdash/internal/testing/guard"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	require.True(t, app.InTestMode())
	main()
}

func TestSplit(t *testing.T) {
	assert.Nil(t, split(" "))
	assert.Equal(t, []string{"a", "b"}, split("a,b"))
}

func TestRunJobsRequiresCommand(t *testing.T) {
	err := runJobs(&app.Config{RedisAddr: "127.0.0.1:0"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage")
}
