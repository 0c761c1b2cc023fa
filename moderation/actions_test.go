package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modbot/model"
)

func TestApplyMuteGrantsRole(t *testing.T) {
	client := newFakeClient()
	client.addMember(42)
	applier := NewApplier(client, testRoles)

	require.NoError(t, applier.Apply(model.KindMute, 42, "spamming"))
	assert.Contains(t, client.memberRoles(42), testRoles.Muted)

	// Applying twice must not error or double-apply.
	require.NoError(t, applier.Apply(model.KindMute, 42, "spamming"))
	assert.Equal(t, []int64{testRoles.Muted}, client.memberRoles(42))
}

func TestEachMuteKindUsesItsOwnRole(t *testing.T) {
	client := newFakeClient()
	client.addMember(42)
	applier := NewApplier(client, testRoles)

	for kind, want := range map[model.InfractionKind]int64{
		model.KindMute:         testRoles.Muted,
		model.KindMetaMute:     testRoles.NoMeta,
		model.KindReactionMute: testRoles.NoReactions,
		model.KindRequestsMute: testRoles.NoRequests,
		model.KindSupportMute:  testRoles.NoSupport,
	} {
		require.NoError(t, applier.Apply(kind, 42, "reason"))
		assert.Contains(t, client.memberRoles(42), want, "kind %s", kind)

		require.NoError(t, applier.Revert(kind, 42, "reason"))
		assert.NotContains(t, client.memberRoles(42), want, "kind %s", kind)
	}
}

func TestApplyMuteAbsentTargetIsSoftSuccess(t *testing.T) {
	client := newFakeClient()
	applier := NewApplier(client, testRoles)

	// The role grant is deferred to the sync engine when the user returns.
	require.NoError(t, applier.Apply(model.KindMute, 42, "spamming"))
	require.NoError(t, applier.Revert(model.KindMute, 42, "expired"))
}

func TestApplyBanWorksByID(t *testing.T) {
	client := newFakeClient()
	applier := NewApplier(client, testRoles)

	// The target is not a member; bans operate by ID regardless.
	require.NoError(t, applier.Apply(model.KindBan, 42, "raid"))
	assert.True(t, client.isBanned(42))
}

func TestRevertBanIsIdempotent(t *testing.T) {
	client := newFakeClient()
	applier := NewApplier(client, testRoles)

	require.NoError(t, applier.Apply(model.KindBan, 42, "raid"))
	require.NoError(t, applier.Revert(model.KindBan, 42, "expired"))
	assert.False(t, client.isBanned(42))

	// Reverting an already-lifted ban is a no-op.
	require.NoError(t, applier.Revert(model.KindBan, 42, "expired"))
}

func TestKickAbsentTargetIsSoftSuccess(t *testing.T) {
	client := newFakeClient()
	applier := NewApplier(client, testRoles)

	require.NoError(t, applier.Apply(model.KindKick, 42, "spam"))
	assert.Empty(t, client.kicked)
}

func TestWarnAndNoteHaveNoRemoteEffect(t *testing.T) {
	client := newFakeClient()
	client.addMember(42, 5)
	applier := NewApplier(client, testRoles)

	require.NoError(t, applier.Apply(model.KindWarn, 42, "reason"))
	require.NoError(t, applier.Apply(model.KindNote, 42, "reason"))
	require.NoError(t, applier.Revert(model.KindWarn, 42, "reason"))
	require.NoError(t, applier.Revert(model.KindNote, 42, "reason"))

	assert.Equal(t, []int64{5}, client.memberRoles(42))
	assert.False(t, client.isBanned(42))
	assert.Empty(t, client.kicked)
}

func TestUnknownKindIsRejected(t *testing.T) {
	applier := NewApplier(newFakeClient(), testRoles)

	assert.Error(t, applier.Apply(model.InfractionKind("bogus"), 42, "reason"))
	assert.Error(t, applier.Revert(model.InfractionKind("bogus"), 42, "reason"))
}
