package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modbot/model"
	"modbot/utils/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Init(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestUpsertMemberReportsChanges(t *testing.T) {
	store := newTestStore(t)

	rec := model.MemberRecord{ID: 42, Username: "gerald", Discriminator: "0001", AvatarURL: "http://a/42.png", Present: true}

	changed, err := store.UpsertMember(rec)
	require.NoError(t, err)
	assert.True(t, changed)

	// Identical snapshot is a no-op.
	changed, err = store.UpsertMember(rec)
	require.NoError(t, err)
	assert.False(t, changed)

	// Any field difference triggers a full-row overwrite.
	rec.AvatarURL = "http://a/new.png"
	changed, err = store.UpsertMember(rec)
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := store.GetMember(42)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestSetPresent(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UpsertMember(model.MemberRecord{ID: 42, Username: "gerald", Discriminator: "0001", AvatarURL: "u", Present: true})
	require.NoError(t, err)

	changed, err := store.SetPresent(42, false)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = store.SetPresent(42, false)
	require.NoError(t, err)
	assert.False(t, changed)

	// The record survives departure.
	got, err := store.GetMember(42)
	require.NoError(t, err)
	assert.False(t, got.Present)

	// Unknown members are a no-op.
	changed, err = store.SetPresent(999, false)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestUpsertRoleReportsChanges(t *testing.T) {
	store := newTestStore(t)

	rec := model.RoleRecord{ID: 10, Name: "Muted", Colour: 0x99AAB5}
	changed, err := store.UpsertRole(rec)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = store.UpsertRole(rec)
	require.NoError(t, err)
	assert.False(t, changed)

	rec.Name = "Silenced"
	changed, err = store.UpsertRole(rec)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestDeleteRoleDropsJunctionRows(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UpsertRole(model.RoleRecord{ID: 10, Name: "Muted"})
	require.NoError(t, err)
	_, err = store.UpsertMember(model.MemberRecord{ID: 42, Username: "gerald", Discriminator: "0001", AvatarURL: "u", Present: true})
	require.NoError(t, err)
	_, err = store.ReplaceMemberRoles(42, []int64{10, 11})
	require.NoError(t, err)

	require.NoError(t, store.DeleteRole(10))

	ids, err := store.ListRoleIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)

	roles, err := store.GetMemberRoles(42)
	require.NoError(t, err)
	assert.Equal(t, []int64{11}, roles)
}

func TestReplaceMemberRoles(t *testing.T) {
	store := newTestStore(t)

	changed, err := store.ReplaceMemberRoles(42, []int64{3, 1, 2})
	require.NoError(t, err)
	assert.True(t, changed)

	roles, err := store.GetMemberRoles(42)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, roles)

	// Same set in any order is a no-op.
	changed, err = store.ReplaceMemberRoles(42, []int64{2, 3, 1})
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = store.ReplaceMemberRoles(42, []int64{1})
	require.NoError(t, err)
	assert.True(t, changed)

	roles, err = store.GetMemberRoles(42)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, roles)
}

func TestListPresentMemberIDs(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UpsertMember(model.MemberRecord{ID: 1, Username: "a", Discriminator: "0001", AvatarURL: "u", Present: true})
	require.NoError(t, err)
	_, err = store.UpsertMember(model.MemberRecord{ID: 2, Username: "b", Discriminator: "0002", AvatarURL: "u", Present: false})
	require.NoError(t, err)

	ids, err := store.ListPresentMemberIDs()
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}
