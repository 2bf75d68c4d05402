package database

import (
	"testing"

	"github.com/casbin/casbin/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedPolicies(t *testing.T) {
	m, err := RBACModel()
	require.NoError(t, err)
	e, err := casbin.NewEnforcer(m)
	require.NoError(t, err)

	require.NoError(t, SeedPolicies(e))
	require.NoError(t, SeedPolicies(e))
	_, err = e.AddGroupingPolicy("42", "service")
	require.NoError(t, err)

	allowed, err := e.Enforce("42", "/v1/topics/forum-7/events", "POST")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = e.Enforce("43", "/v1/topics/forum-7/events", "POST")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = e.Enforce("42", "/v1/user/profile", "GET")
	require.NoError(t, err)
	assert.False(t, allowed)
}
