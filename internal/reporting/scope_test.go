package reporting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeFromParams(t *testing.T) {
	assert.Equal(t, AllProperties("owner-1"), ScopeFromParams("owner-1", "", ""))
	assert.Equal(t, Scope{Kind: ScopeProperty, OwnerID: "owner-1", PropertyID: "prop-1"}, ScopeFromParams("owner-1", " prop-1 ", ""))
	assert.Equal(t, Scope{Kind: ScopeRoom, OwnerID: "owner-1", PropertyID: "prop-1", RoomID: "room-1"}, ScopeFromParams("owner-1", "prop-1", "room-1"))

	err := ScopeFromParams("owner-1", "", "room-1").Validate()
	assert.ErrorIs(t, err, ErrInvalidParameter, "room without property")
}

func TestScopeKey(t *testing.T) {
	assert.Equal(t, "owner:o", AllProperties("o").Key())
	assert.Equal(t, "property:p", PropertyScope("p").Key())
	assert.Equal(t, "room:p/r", RoomScope("p", "r").Key())
	assert.Equal(t, "owner:o/property:p", ScopeFromParams("o", "p", "").Key())
	assert.NotEqual(t, ScopeFromParams("a", "p", "").Key(), ScopeFromParams("b", "p", "").Key())
}

func TestResolveFilterChecksOwnership(t *testing.T) {
	store := financialFixture()
	ctx := context.Background()

	filter, err := resolveFilter(ctx, store, ScopeFromParams("owner-1", "prop-2", ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"prop-2"}, filter.PropertyIDs)

	_, err = resolveFilter(ctx, store, ScopeFromParams("owner-2", "prop-2", "room-3"))
	assert.ErrorIs(t, err, ErrScopeNotFound)

	filter, err = resolveFilter(ctx, store, PropertyScope("prop-2"))
	require.NoError(t, err)
	assert.Equal(t, ScopeFilter{PropertyIDs: []string{"prop-2"}}, filter)
	assert.Equal(t, 2, store.count("properties"), "owner-less scopes skip the lookup")
}

func TestResolveFilterOwnerWithoutProperties(t *testing.T) {
	filter, err := resolveFilter(context.Background(), newMemStore(), AllProperties("nobody"))
	require.NoError(t, err)
	assert.True(t, filter.Empty())
}
