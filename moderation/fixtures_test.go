package moderation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"modbot/model"
	"modbot/platform"
	"modbot/utils/database"
	"modbot/utils/database/infractions"
)

var testRoles = model.MuteRoles{
	Muted:       100,
	NoMeta:      101,
	NoReactions: 102,
	NoRequests:  103,
	NoSupport:   104,
}

// fakeClient is an in-memory platform.Client tracking members, roles and
// bans.
type fakeClient struct {
	mu      sync.Mutex
	members map[int64]*platform.Member
	banned  map[int64]bool
	kicked  []int64
	dms     map[int64][]string
	roles   []platform.Role

	failRemoveRole error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		members: make(map[int64]*platform.Member),
		banned:  make(map[int64]bool),
		dms:     make(map[int64][]string),
	}
}

func (f *fakeClient) addMember(id int64, roleIDs ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[id] = &platform.Member{
		ID:            id,
		Username:      "user",
		Discriminator: "0001",
		AvatarURL:     "http://avatars/u.png",
		Roles:         append([]int64(nil), roleIDs...),
	}
}

func (f *fakeClient) memberRoles(id int64) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.members[id]; ok {
		return append([]int64(nil), m.Roles...)
	}
	return nil
}

func (f *fakeClient) isBanned(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.banned[id]
}

func (f *fakeClient) GetMember(userID int64) (*platform.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	copied := *m
	copied.Roles = append([]int64(nil), m.Roles...)
	return &copied, nil
}

func (f *fakeClient) AddRole(userID, roleID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	if !ok {
		return platform.ErrNotFound
	}
	for _, r := range m.Roles {
		if r == roleID {
			return nil
		}
	}
	m.Roles = append(m.Roles, roleID)
	return nil
}

func (f *fakeClient) RemoveRole(userID, roleID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRemoveRole != nil {
		return f.failRemoveRole
	}
	m, ok := f.members[userID]
	if !ok {
		return platform.ErrNotFound
	}
	kept := m.Roles[:0]
	for _, r := range m.Roles {
		if r != roleID {
			kept = append(kept, r)
		}
	}
	m.Roles = kept
	return nil
}

func (f *fakeClient) Ban(userID int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banned[userID] = true
	delete(f.members, userID)
	return nil
}

func (f *fakeClient) Unban(userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.banned[userID] {
		return platform.ErrNotFound
	}
	delete(f.banned, userID)
	return nil
}

func (f *fakeClient) Kick(userID int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.members[userID]; !ok {
		return platform.ErrNotFound
	}
	delete(f.members, userID)
	f.kicked = append(f.kicked, userID)
	return nil
}

func (f *fakeClient) ListMembers() ([]platform.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := make([]platform.Member, 0, len(f.members))
	for _, m := range f.members {
		copied := *m
		copied.Roles = append([]int64(nil), m.Roles...)
		members = append(members, copied)
	}
	return members, nil
}

func (f *fakeClient) ListRoles() ([]platform.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.Role(nil), f.roles...), nil
}

func (f *fakeClient) DirectMessage(userID int64, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.members[userID]; !ok {
		return platform.ErrNotFound
	}
	f.dms[userID] = append(f.dms[userID], content)
	return nil
}

// fakeNotifier records published audit events.
type fakeNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (f *fakeNotifier) Publish(title, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, title)
}

func (f *fakeNotifier) published(title string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.titles {
		if t == title {
			return true
		}
	}
	return false
}

func newTestStore(t *testing.T) *infractions.Store {
	t.Helper()
	db, err := database.Init(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return infractions.NewStore(db)
}
