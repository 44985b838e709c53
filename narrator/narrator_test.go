package narrator

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"group-lab/domain/group"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

var names = map[string]string{
	"A": "Alice",
	"B": "Bob",
	"C": "Clara",
	"D": "Dan",
}

func phoneBook() Resolver {
	return ResolverFunc(func(id string) (string, error) {
		name, ok := names[id]
		if !ok {
			return "", fmt.Errorf("unknown contact %s", id)
		}
		return name, nil
	})
}

func snapshot(t *testing.T, p group.Params) group.State {
	t.Helper()
	state, err := group.FromParams(p)
	require.NoError(t, err)
	return state
}

func TestDescribeChanges_IdenticalSnapshotsAreSilent(t *testing.T) {
	id := group.NewID()
	states := []group.State{
		snapshot(t, group.Params{ID: id, MemberIDs: []string{"A"}}),
		snapshot(t, group.Params{ID: id, Name: lo.ToPtr("Team"), MemberIDs: []string{"A", "B"}, AdminIDs: []string{"A"}, CanOnlyWriteAdmin: true, Avatar: []byte("img")}),
		{},
	}
	for _, s := range states {
		require.Empty(t, DescribeChanges(s, s, phoneBook()))
	}
}

func TestDescribeChanges_MemberAdded(t *testing.T) {
	req := require.New(t)
	id := group.NewID()
	previous := snapshot(t, group.Params{ID: id, MemberIDs: []string{"A", "B"}})
	current := snapshot(t, group.Params{ID: id, MemberIDs: []string{"A", "B", "C"}})

	got := DescribeChanges(previous, current, phoneBook())

	req.Equal([]string{"Clara joined the group."}, got)
}

func TestDescribeChanges_MemberRemoved(t *testing.T) {
	req := require.New(t)
	id := group.NewID()
	previous := snapshot(t, group.Params{ID: id, MemberIDs: []string{"A", "B"}})
	current := snapshot(t, group.Params{ID: id, MemberIDs: []string{"A"}})

	got := DescribeChanges(previous, current, phoneBook())

	req.Equal([]string{"Bob left the group."}, got)
}

func TestDescribeChanges_NameChanged(t *testing.T) {
	req := require.New(t)
	id := group.NewID()
	previous := snapshot(t, group.Params{ID: id, Name: lo.ToPtr("Team"), MemberIDs: []string{"A"}})
	current := snapshot(t, group.Params{ID: id, Name: lo.ToPtr("Team Two"), MemberIDs: []string{"A"}})

	got := DescribeChanges(previous, current, phoneBook())

	req.Equal([]string{"Title is now 'Team Two'."}, got)
}

func TestDescribeChanges_NameRemoved(t *testing.T) {
	id := group.NewID()
	previous := snapshot(t, group.Params{ID: id, Name: lo.ToPtr("Team"), MemberIDs: []string{"A"}})
	current := snapshot(t, group.Params{ID: id, MemberIDs: []string{"A"}})

	require.Equal(t, []string{"Group name removed."}, DescribeChanges(previous, current, phoneBook()))
}

func TestDescribeChanges_EmptyNameIsANameChange(t *testing.T) {
	id := group.NewID()
	previous := snapshot(t, group.Params{ID: id, MemberIDs: []string{"A"}})
	current := snapshot(t, group.Params{ID: id, Name: lo.ToPtr(""), MemberIDs: []string{"A"}})

	require.Equal(t, []string{"Title is now ''."}, DescribeChanges(previous, current, phoneBook()))
}

func TestDescribeChanges_AvatarChanged(t *testing.T) {
	id := group.NewID()
	tests := []struct {
		name   string
		before []byte
		after  []byte
	}{
		{"set", nil, []byte("img")},
		{"replaced", []byte("img"), []byte("img2")},
		{"removed", []byte("img"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			previous := snapshot(t, group.Params{ID: id, MemberIDs: []string{"A"}, Avatar: tt.before})
			current := snapshot(t, group.Params{ID: id, MemberIDs: []string{"A"}, Avatar: tt.after})
			require.Equal(t, []string{"Avatar changed."}, DescribeChanges(previous, current, phoneBook()))
		})
	}
}

func TestDescribe_OrdersEveryFacet(t *testing.T) {
	req := require.New(t)
	id := group.NewID()
	previous := snapshot(t, group.Params{
		ID:        id,
		Name:      lo.ToPtr("Team"),
		MemberIDs: []string{"A", "B", "C"},
		AdminIDs:  []string{"A", "B", "C"},
	})
	current := snapshot(t, group.Params{
		ID:                id,
		Name:              lo.ToPtr("Team Two"),
		MemberIDs:         []string{"A", "B", "D", "E"},
		AdminIDs:          []string{"B", "D"},
		CanOnlyWriteAdmin: true,
		Avatar:            []byte("img"),
	})
	narrator := New(logs.GetLoggerFromLevel(slog.LevelDebug), phoneBook())

	statements := narrator.Describe(previous, current)

	req.Equal([]Kind{
		MemberJoined, MemberJoined, MemberLeft,
		NameChanged, AvatarChanged,
		AdminPromoted, AdminDemoted,
		WriteRestricted,
	}, lo.Map(statements, func(s Statement, _ int) Kind { return s.Kind }))
	req.Equal([]string{
		"Dan joined the group.",
		"E joined the group.",
		"Clara left the group.",
		"Title is now 'Team Two'.",
		"Avatar changed.",
		"Dan is now an admin.",
		"Alice is no longer an admin.",
		"Only admins can send messages.",
	}, lo.Map(statements, func(s Statement, _ int) string { return s.Text }))
	req.Equal("D", statements[0].Subject)
	req.Equal("Team Two", statements[3].Subject)
}

func TestDescribe_WriteOpened(t *testing.T) {
	id := group.NewID()
	previous := snapshot(t, group.Params{ID: id, MemberIDs: []string{"A"}, AdminIDs: []string{"A"}, CanOnlyWriteAdmin: true})
	current := snapshot(t, group.Params{ID: id, MemberIDs: []string{"A"}, AdminIDs: []string{"A"}})

	statements := New(nil, phoneBook()).Describe(previous, current)

	require.Len(t, statements, 1)
	require.Equal(t, WriteOpened, statements[0].Kind)
}

func TestDescribe_ReorderIsNotAChange(t *testing.T) {
	id := group.NewID()
	previous := snapshot(t, group.Params{ID: id, MemberIDs: []string{"A", "B"}, AdminIDs: []string{"A", "B"}})
	current := snapshot(t, group.Params{ID: id, MemberIDs: []string{"B", "A"}, AdminIDs: []string{"B", "A"}})

	require.Empty(t, New(nil, phoneBook()).Describe(previous, current))
}

func TestDescribe_IsDeterministic(t *testing.T) {
	id := group.NewID()
	previous := snapshot(t, group.Params{ID: id, MemberIDs: []string{"A", "B", "C"}})
	current := snapshot(t, group.Params{ID: id, MemberIDs: []string{"D", "A"}})
	narrator := New(nil, phoneBook())

	first := narrator.DescribeChanges(previous, current)
	for range 20 {
		require.Equal(t, first, narrator.DescribeChanges(previous, current))
	}
	require.Equal(t, []string{"Dan joined the group.", "Bob left the group.", "Clara left the group."}, first)
}

func TestDisplayName_FallsBackToIdentifier(t *testing.T) {
	req := require.New(t)
	blank := ResolverFunc(func(id string) (string, error) { return "  ", nil })

	req.Equal("Z", New(nil, phoneBook()).DisplayName("Z"))
	req.Equal("A", New(nil, blank).DisplayName("A"))
	req.Equal("A", New(nil, nil).DisplayName("A"))
	req.Equal("Alice", New(nil, phoneBook()).DisplayName("A"))
}

func TestDescribe_DoesNotMutateSnapshots(t *testing.T) {
	req := require.New(t)
	id := group.NewID()
	previous := snapshot(t, group.Params{ID: id, Name: lo.ToPtr("Team"), MemberIDs: []string{"A", "B"}, AdminIDs: []string{"A"}})
	current := snapshot(t, group.Params{ID: id, MemberIDs: []string{"B", "C"}, AdminIDs: []string{"C"}})
	previousCopy, err := group.FromParams(previous.Params())
	req.NoError(err)
	currentCopy, err := group.FromParams(current.Params())
	req.NoError(err)

	_ = New(nil, phoneBook()).Describe(previous, current)

	req.Equal(previousCopy, previous)
	req.Equal(currentCopy, current)
}

func TestDescribe_ConcurrentUse(t *testing.T) {
	id := group.NewID()
	previous := snapshot(t, group.Params{ID: id, MemberIDs: []string{"A"}})
	current := snapshot(t, group.Params{ID: id, MemberIDs: []string{"A", "B"}})
	narrator := New(nil, phoneBook())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, []string{"Bob joined the group."}, narrator.DescribeChanges(previous, current))
		}()
	}
	wg.Wait()
}

func TestRender(t *testing.T) {
	req := require.New(t)
	id := group.NewID()
	previous := snapshot(t, group.Params{ID: id, Name: lo.ToPtr("Team"), MemberIDs: []string{"A"}})
	current := snapshot(t, group.Params{ID: id, Name: lo.ToPtr("Team Two"), MemberIDs: []string{"A", "B"}})
	unnamed := snapshot(t, group.Params{ID: id, MemberIDs: []string{"A"}})
	narrator := New(nil, phoneBook())

	req.Equal("In Team Two: Bob joined the group. Title is now 'Team Two'.",
		narrator.Render(previous, current, narrator.Describe(previous, current)))
	req.Equal("In Team: Group name removed.",
		narrator.Render(previous, unnamed, narrator.Describe(previous, unnamed)))
	req.Equal("Bob joined the group.",
		narrator.Render(unnamed, snapshot(t, group.Params{ID: id, MemberIDs: []string{"A", "B"}}), []Statement{{Kind: MemberJoined, Subject: "B", Text: "Bob joined the group."}}))
	req.Empty(narrator.Render(previous, previous, nil))
	req.Equal("Group updated.", narrator.Fallback())
}

func TestWithLanguage_French(t *testing.T) {
	req := require.New(t)
	id := group.NewID()
	previous := snapshot(t, group.Params{ID: id, Name: lo.ToPtr("Équipe"), MemberIDs: []string{"A", "B"}})
	current := snapshot(t, group.Params{ID: id, Name: lo.ToPtr("Équipe"), MemberIDs: []string{"A", "C"}})
	narrator := New(nil, phoneBook(), WithLanguage(language.French))

	statements := narrator.Describe(previous, current)

	req.Equal([]string{"Clara a rejoint le groupe.", "Bob a quitté le groupe."},
		lo.Map(statements, func(s Statement, _ int) string { return s.Text }))
	req.Equal("Dans Équipe : Clara a rejoint le groupe. Bob a quitté le groupe.",
		narrator.Render(previous, current, statements))
	req.Equal("Groupe mis à jour.", narrator.Fallback())
}

func TestParseLocale(t *testing.T) {
	req := require.New(t)

	tag, err := ParseLocale("fr-CA")
	req.NoError(err)
	req.Equal(language.French, tag)

	tag, err = ParseLocale("en")
	req.NoError(err)
	req.Equal(language.English, tag)

	_, err = ParseLocale("ja")
	req.Error(err)
	_, err = ParseLocale("???")
	req.Error(err)
	req.Len(Languages(), 2)
}

func TestKind_String(t *testing.T) {
	require.Equal(t, "member_joined", MemberJoined.String())
	require.Equal(t, "write_opened", WriteOpened.String())
}
