package moderation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modbot/model"
	"modbot/utils/database/infractions"
)

func newTestService(t *testing.T, client *fakeClient) (*Service, *infractions.Store, *Scheduler, *fakeNotifier) {
	t.Helper()
	store := newTestStore(t)
	notifier := &fakeNotifier{}
	applier := NewApplier(client, testRoles)
	scheduler := NewScheduler(store, applier, notifier)
	t.Cleanup(scheduler.Shutdown)
	service := NewService(store, applier, scheduler, client, notifier)
	return service, store, scheduler, notifier
}

func durationPtr(d time.Duration) *time.Duration { return &d }

func TestCreateTemporaryMute(t *testing.T) {
	client := newFakeClient()
	client.addMember(42)
	service, store, scheduler, notifier := newTestService(t, client)

	before := time.Now()
	inf, err := service.Create(CreateRequest{
		Kind:     model.KindMute,
		TargetID: 42,
		ActorID:  7,
		Reason:   "spamming",
		Duration: durationPtr(10 * time.Minute),
	})
	require.NoError(t, err)

	assert.Equal(t, model.KindMute, inf.Kind)
	assert.Equal(t, int64(42), inf.TargetID)
	assert.Equal(t, int64(7), inf.ActorID)
	assert.True(t, inf.Active)
	require.NotNil(t, inf.ExpiresAt)
	expected := before.Add(10 * time.Minute).Unix()
	assert.InDelta(t, expected, *inf.ExpiresAt, 2)

	got, err := store.Get(inf.ID)
	require.NoError(t, err)
	assert.Equal(t, inf, got)

	assert.Contains(t, client.memberRoles(42), testRoles.Muted)
	assert.Equal(t, 1, scheduler.Pending())
	assert.True(t, notifier.published("Infraction Created"))
	assert.NotEmpty(t, client.dms[42])
}

func TestCreatePermanentBan(t *testing.T) {
	client := newFakeClient()
	client.addMember(42)
	service, _, scheduler, _ := newTestService(t, client)

	inf, err := service.Create(CreateRequest{
		Kind:     model.KindBan,
		TargetID: 42,
		ActorID:  7,
		Reason:   "raid",
	})
	require.NoError(t, err)
	assert.Nil(t, inf.ExpiresAt)
	assert.True(t, client.isBanned(42))
	assert.Zero(t, scheduler.Pending())
}

func TestCreateRejectsZeroDuration(t *testing.T) {
	client := newFakeClient()
	client.addMember(42)
	service, store, _, _ := newTestService(t, client)

	_, err := service.Create(CreateRequest{
		Kind:     model.KindMute,
		TargetID: 42,
		ActorID:  7,
		Reason:   "spamming",
		Duration: durationPtr(0),
	})
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = service.Create(CreateRequest{
		Kind:     model.KindMute,
		TargetID: 42,
		ActorID:  7,
		Reason:   "spamming",
		Duration: durationPtr(-time.Minute),
	})
	assert.ErrorIs(t, err, ErrInvalidDuration)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateRejectsDurationOnNonExpirableKind(t *testing.T) {
	client := newFakeClient()
	client.addMember(42)
	service, _, _, _ := newTestService(t, client)

	_, err := service.Create(CreateRequest{
		Kind:     model.KindWarn,
		TargetID: 42,
		ActorID:  7,
		Reason:   "spamming",
		Duration: durationPtr(time.Hour),
	})
	assert.ErrorIs(t, err, ErrNotExpirable)
}

func TestKickRequiresPresence(t *testing.T) {
	client := newFakeClient()
	service, store, _, _ := newTestService(t, client)

	_, err := service.Create(CreateRequest{
		Kind:     model.KindKick,
		TargetID: 42,
		ActorID:  7,
		Reason:   "spamming",
	})
	assert.ErrorIs(t, err, ErrTargetAbsent)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateMuteForAbsentTargetSucceeds(t *testing.T) {
	client := newFakeClient()
	service, store, scheduler, _ := newTestService(t, client)

	// The role grant is a logical no-op; sync re-applies it on rejoin.
	inf, err := service.Create(CreateRequest{
		Kind:     model.KindMute,
		TargetID: 42,
		ActorID:  7,
		Reason:   "spamming",
		Duration: durationPtr(time.Hour),
	})
	require.NoError(t, err)

	got, err := store.Get(inf.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Equal(t, 1, scheduler.Pending())
}

func TestPardonRevertsAndCancelsTimer(t *testing.T) {
	client := newFakeClient()
	client.addMember(42)
	service, store, scheduler, notifier := newTestService(t, client)

	inf, err := service.Create(CreateRequest{
		Kind:     model.KindMute,
		TargetID: 42,
		ActorID:  7,
		Reason:   "spamming",
		Duration: durationPtr(time.Hour),
	})
	require.NoError(t, err)

	pardoned, err := service.Pardon(model.KindMute, 42, 8)
	require.NoError(t, err)
	require.Len(t, pardoned, 1)
	assert.Equal(t, inf.ID, pardoned[0].ID)

	got, err := store.Get(inf.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.NotContains(t, client.memberRoles(42), testRoles.Muted)
	assert.Zero(t, scheduler.Pending())
	assert.True(t, notifier.published("Infraction Pardoned"))

	// With the audit record retained, the end state matches never having
	// created the infraction.
	_, err = service.Pardon(model.KindMute, 42, 8)
	assert.ErrorIs(t, err, ErrNoActiveInfraction)
}

func TestPardonOnlyTouchesTheRequestedKind(t *testing.T) {
	client := newFakeClient()
	client.addMember(42)
	service, store, _, _ := newTestService(t, client)

	mute, err := service.Create(CreateRequest{Kind: model.KindMute, TargetID: 42, ActorID: 7, Reason: "a"})
	require.NoError(t, err)
	meta, err := service.Create(CreateRequest{Kind: model.KindMetaMute, TargetID: 42, ActorID: 7, Reason: "b"})
	require.NoError(t, err)

	_, err = service.Pardon(model.KindMute, 42, 8)
	require.NoError(t, err)

	got, err := store.Get(mute.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	got, err = store.Get(meta.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Contains(t, client.memberRoles(42), testRoles.NoMeta)
}

func TestPardonAndExpiryCommute(t *testing.T) {
	client := newFakeClient()
	client.addMember(42)
	service, store, scheduler, _ := newTestService(t, client)

	inf, err := service.Create(CreateRequest{
		Kind:     model.KindMute,
		TargetID: 42,
		ActorID:  7,
		Reason:   "spamming",
		Duration: durationPtr(20 * time.Millisecond),
	})
	require.NoError(t, err)

	// Let the natural expiry win the race, then pardon.
	require.Eventually(t, func() bool {
		got, err := store.Get(inf.ID)
		return err == nil && !got.Active
	}, waitFor, tick)

	_, err = service.Pardon(model.KindMute, 42, 8)
	assert.ErrorIs(t, err, ErrNoActiveInfraction)

	// Same final state either way.
	got, err := store.Get(inf.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.NotContains(t, client.memberRoles(42), testRoles.Muted)
	assert.Zero(t, scheduler.Pending())
}

func TestMuteLifecycleEndToEnd(t *testing.T) {
	client := newFakeClient()
	client.addMember(42)
	service, store, _, _ := newTestService(t, client)

	inf, err := service.Create(CreateRequest{
		Kind:     model.KindMute,
		TargetID: 42,
		ActorID:  7,
		Reason:   "spamming",
		Duration: durationPtr(30 * time.Millisecond),
	})
	require.NoError(t, err)
	assert.Contains(t, client.memberRoles(42), testRoles.Muted)

	require.Eventually(t, func() bool {
		got, err := store.Get(inf.ID)
		return err == nil && !got.Active
	}, waitFor, tick)
	assert.NotContains(t, client.memberRoles(42), testRoles.Muted)
}
