package services

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"group-lab/domain/group"
	"group-lab/errors"
	"group-lab/mocks"
	"group-lab/narrator"
	"group-lab/repositories"
	"group-lab/resolver"
	"group-lab/search"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	service  *GroupService
	contacts *resolver.ContactResolver
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

// newFixtureWith lets a test wrap the badger group repository.
func newFixtureWith(t *testing.T, wrap func(repositories.IGroupRepository) repositories.IGroupRepository) fixture {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	req.NoError(err)
	t.Cleanup(func() { _ = writer.Close() })

	contacts, err := resolver.NewContactResolver(repositories.NewContactRepository(db), log, 32)
	req.NoError(err)
	for id, name := range map[string]string{"A": "Alice", "B": "Bob", "C": "Clara"} {
		req.NoError(contacts.StoreContact(repositories.Contact{ID: id, ProfileName: name}))
	}

	var groups repositories.IGroupRepository = repositories.NewGroupRepository(db, log)
	if wrap != nil {
		groups = wrap(groups)
	}
	service := NewGroupService(
		log,
		groups,
		repositories.NewUpdateRepository(db, log, nil),
		search.NewGroupIndex(writer, log),
		narrator.New(log, contacts),
	)
	tick := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return fixture{service: service, contacts: contacts}
}

func TestGroupService_Create(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	outcome, err := f.service.Create(ctx, group.CreateCommand{
		Name:      lo.ToPtr("Team"),
		MemberIDs: []string{"A", "B"},
		AdminIDs:  []string{"A"},
	})
	req.NoError(err)
	req.True(outcome.Applied)
	req.False(outcome.Current.ID().IsZero())
	req.Equal("In Team: Alice joined the group. Bob joined the group. Title is now 'Team'. Alice is now an admin.", outcome.Narrative)

	stored, err := f.service.Get(outcome.Current.ID())
	req.NoError(err)
	req.True(group.StrictEqual(outcome.Current, stored))

	history, cursor, err := f.service.History(outcome.Current.ID(), nil)
	req.NoError(err)
	req.Nil(cursor)
	req.Len(history, 1)
	req.Equal([]string{"member_joined", "member_joined", "name_changed", "admin_promoted"}, history[0].Kinds)
}

func TestGroupService_Create_RejectsInvalidGroup(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), group.CreateCommand{
		MemberIDs: []string{"A"},
		AdminIDs:  []string{"B"},
	})
	require.ErrorIs(t, err, errors.ErrAdminNotMember)
}

func TestGroupService_Update_Flow(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, group.CreateCommand{Name: lo.ToPtr("Team"), MemberIDs: []string{"A", "B"}})
	req.NoError(err)
	id := created.Current.ID()

	// material change
	outcome, err := f.service.Update(ctx, group.UpdateCommand{GroupID: id, Add: []string{"C"}, Name: lo.ToPtr("Team Two")})
	req.NoError(err)
	req.True(outcome.Applied)
	req.Equal([]string{"Clara joined the group.", "Title is now 'Team Two'."},
		lo.Map(outcome.Statements, func(s narrator.Statement, _ int) string { return s.Text }))

	// identical snapshot is dropped
	outcome, err = f.service.ApplyUpdate(ctx, outcome.Current)
	req.NoError(err)
	req.False(outcome.Applied)
	req.Empty(outcome.Statements)

	// permission-only change is kept
	outcome, err = f.service.Update(ctx, group.UpdateCommand{GroupID: id, Promote: []string{"B"}, CanOnlyWriteAdmin: lo.ToPtr(true)})
	req.NoError(err)
	req.True(outcome.Applied)
	req.True(group.Equal(outcome.Previous, outcome.Current))
	req.Equal("In Team Two: Bob is now an admin. Only admins can send messages.", outcome.Narrative)

	history, _, err := f.service.History(id, nil)
	req.NoError(err)
	req.Len(history, 3)
	req.Equal("In Team Two: Bob is now an admin. Only admins can send messages.", history[0].Narrative)
	req.Equal("In Team: Alice joined the group. Bob joined the group. Title is now 'Team'.", history[2].Narrative)

	stored, err := f.service.Get(id)
	req.NoError(err)
	req.True(stored.CanOnlyWriteAdmin())
	req.Equal([]string{"B"}, stored.AdminIDs())
}

func TestGroupService_Update_UnknownGroup(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Update(context.Background(), group.UpdateCommand{GroupID: group.NewID(), Add: []string{"C"}})
	require.ErrorIs(t, err, errors.ErrGroupNotFound)
}

func TestGroupService_Search(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	team, err := f.service.Create(ctx, group.CreateCommand{Name: lo.ToPtr("Climbing"), MemberIDs: []string{"A", "B"}})
	req.NoError(err)
	_, err = f.service.Create(ctx, group.CreateCommand{Name: lo.ToPtr("Family"), MemberIDs: []string{"A"}})
	req.NoError(err)

	found, err := f.service.Search(ctx, "bob", 10)
	req.NoError(err)
	req.Len(found, 1)
	req.Equal(team.Current.ID(), found[0].ID())

	// member names are indexed once resolved
	_, err = f.service.Update(ctx, group.UpdateCommand{GroupID: team.Current.ID(), Remove: []string{"B"}})
	req.NoError(err)
	found, err = f.service.Search(ctx, "bob", 10)
	req.NoError(err)
	req.Empty(found)

	count, err := f.service.Reindex()
	req.NoError(err)
	req.Equal(2, count)
	found, err = f.service.Search(ctx, "alice", 10)
	req.NoError(err)
	req.Len(found, 2)
}

func TestGroupService_ApplyUpdate_CancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := group.New(group.NewID(), nil, []string{"A"}, nil)
	require.NoError(t, err)
	_, err = f.service.ApplyUpdate(ctx, state)
	require.ErrorIs(t, err, context.Canceled)
}

func TestGroupService_WithMocks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	groups := mocks.NewMockIGroupRepository(ctrl)
	updates := mocks.NewMockIUpdateRepository(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	index := &recordingIndex{}
	svc := NewGroupService(log, groups, updates, index, narrator.New(log, nil))

	id := group.NewID()
	previous, err := group.New(id, lo.ToPtr("Team"), []string{"A", "B"}, nil)
	require.NoError(t, err)

	t.Run("should not store a reordered member list", func(t *testing.T) {
		req := require.New(t)
		reordered, err := group.New(id, lo.ToPtr("Team"), []string{"B", "A"}, nil)
		req.NoError(err)

		groups.EXPECT().Get(id).Return(previous, nil).Times(1)
		groups.EXPECT().Store(gomock.Any(), gomock.Any()).Times(0)

		outcome, err := svc.ApplyUpdate(context.Background(), reordered)
		req.NoError(err)
		req.False(outcome.Applied)
	})

	t.Run("should propagate store failures", func(t *testing.T) {
		req := require.New(t)
		next, err := group.New(id, lo.ToPtr("Team"), []string{"A", "B", "C"}, nil)
		req.NoError(err)

		groups.EXPECT().Get(id).Return(previous, nil).Times(1)
		groups.EXPECT().Store(gomock.Any(), gomock.Any()).Return(fmt.Errorf("disk full")).Times(1)

		_, err = svc.ApplyUpdate(context.Background(), next)
		req.ErrorContains(err, "disk full")
	})

	t.Run("should store the snapshot with the narrative of the update", func(t *testing.T) {
		req := require.New(t)
		next, err := group.New(id, lo.ToPtr("Team"), []string{"A", "B", "C"}, nil)
		req.NoError(err)

		var recorded *repositories.Update
		groups.EXPECT().Get(id).Return(previous, nil).Times(1)
		groups.EXPECT().Store(gomock.Any(), gomock.Any()).DoAndReturn(func(state group.State, u *repositories.Update) error {
			req.True(group.StrictEqual(next, state))
			recorded = u
			return nil
		}).Times(1)

		outcome, err := svc.ApplyUpdate(context.Background(), next)
		req.NoError(err)
		req.True(outcome.Applied)
		req.NotNil(recorded)
		req.Equal(id, recorded.GroupID)
		req.Equal([]string{"C joined the group."}, recorded.Statements)
		req.Equal("In Team: C joined the group.", recorded.Narrative)
		req.Equal([]string{"A", "B", "C"}, index.lastNames)
	})
}

type recordingIndex struct {
	lastNames []string
}

func (r *recordingIndex) Index(_ group.State, memberNames []string) error {
	r.lastNames = memberNames
	return nil
}

func (r *recordingIndex) Search(context.Context, string, int) ([]group.ID, error) {
	return nil, nil
}

// hookedGroups runs onGet once, right after the first snapshot read,
// and fails the first failStores writes.
type hookedGroups struct {
	repositories.IGroupRepository
	onGet      func()
	failStores int
}

func (h *hookedGroups) Get(id group.ID) (group.State, error) {
	state, err := h.IGroupRepository.Get(id)
	if hook := h.onGet; hook != nil {
		h.onGet = nil
		hook()
	}
	return state, err
}

func (h *hookedGroups) Store(state group.State, update *repositories.Update) error {
	if h.failStores > 0 {
		h.failStores--
		return fmt.Errorf("disk full")
	}
	return h.IGroupRepository.Store(state, update)
}

func TestGroupService_Update_Concurrent(t *testing.T) {
	req := require.New(t)
	hooked := &hookedGroups{}
	f := newFixtureWith(t, func(groups repositories.IGroupRepository) repositories.IGroupRepository {
		hooked.IGroupRepository = groups
		return hooked
	})
	ctx := context.Background()

	created, err := f.service.Create(ctx, group.CreateCommand{Name: lo.ToPtr("Team"), MemberIDs: []string{"A"}})
	req.NoError(err)
	id := created.Current.ID()

	done := make(chan error, 1)
	hooked.onGet = func() {
		go func() {
			_, err := f.service.Update(ctx, group.UpdateCommand{GroupID: id, Add: []string{"B"}})
			done <- err
		}()
		// give the concurrent update every chance to land between this read and its write
		select {
		case err := <-done:
			done <- err
		case <-time.After(100 * time.Millisecond):
		}
	}

	_, err = f.service.Update(ctx, group.UpdateCommand{GroupID: id, Add: []string{"C"}})
	req.NoError(err)
	req.NoError(<-done)

	stored, err := f.service.Get(id)
	req.NoError(err)
	req.ElementsMatch([]string{"A", "B", "C"}, stored.MemberIDs())

	history, _, err := f.service.History(id, nil)
	req.NoError(err)
	req.Len(history, 3)
	for _, update := range history {
		req.NotContains(update.Kinds, "member_left")
	}
}

func TestGroupService_Update_FailedWriteIsRetried(t *testing.T) {
	req := require.New(t)
	hooked := &hookedGroups{}
	f := newFixtureWith(t, func(groups repositories.IGroupRepository) repositories.IGroupRepository {
		hooked.IGroupRepository = groups
		return hooked
	})
	ctx := context.Background()

	created, err := f.service.Create(ctx, group.CreateCommand{Name: lo.ToPtr("Team"), MemberIDs: []string{"A"}})
	req.NoError(err)
	id := created.Current.ID()
	cmd := group.UpdateCommand{GroupID: id, Add: []string{"B"}}

	hooked.failStores = 1
	_, err = f.service.Update(ctx, cmd)
	req.ErrorContains(err, "disk full")

	stored, err := f.service.Get(id)
	req.NoError(err)
	req.Equal([]string{"A"}, stored.MemberIDs())
	history, _, err := f.service.History(id, nil)
	req.NoError(err)
	req.Len(history, 1)

	outcome, err := f.service.Update(ctx, cmd)
	req.NoError(err)
	req.True(outcome.Applied)
	history, _, err = f.service.History(id, nil)
	req.NoError(err)
	req.Len(history, 2)
	req.Equal("In Team: Bob joined the group.", history[0].Narrative)
}
