package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"group-lab/domain/group"
	"group-lab/narrator"
	"group-lab/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IGroupService interface {
	Create(ctx context.Context, cmd group.CreateCommand) (Outcome, error)
	Update(ctx context.Context, cmd group.UpdateCommand) (Outcome, error)
	ApplyUpdate(ctx context.Context, next group.State) (Outcome, error)
	Get(id group.ID) (group.State, error)
	List() ([]group.State, error)
	History(id group.ID, cursor *string) ([]repositories.Update, *string, error)
	Search(ctx context.Context, terms string, limit int) ([]group.State, error)
	Reindex() (int, error)
}

// Indexer keeps the group search index in sync with accepted snapshots.
type Indexer interface {
	Index(state group.State, memberNames []string) error
	Search(ctx context.Context, terms string, limit int) ([]group.ID, error)
}

// Outcome is the result of one call on the update path.
// Applied is false when the update was redundant and nothing was stored.
type Outcome struct {
	Previous   group.State
	Current    group.State
	Statements []narrator.Statement
	Narrative  string
	Applied    bool
}

type GroupService struct {
	log      *slog.Logger
	groups   repositories.IGroupRepository
	updates  repositories.IUpdateRepository
	index    Indexer
	narrator *narrator.Narrator
	now      func() time.Time

	// mu serializes the update path so the stored snapshot is always
	// the last one accepted.
	mu sync.Mutex
}

func NewGroupService(
	log *slog.Logger,
	groups repositories.IGroupRepository,
	updates repositories.IUpdateRepository,
	index Indexer,
	narrator *narrator.Narrator,
) *GroupService {
	return &GroupService{
		log:      log,
		groups:   groups,
		updates:  updates,
		index:    index,
		narrator: narrator,
		now:      time.Now,
	}
}

// Create stores the first snapshot of a new group. Its history starts with
// the narrative of the group going from nothing to this snapshot.
func (s *GroupService) Create(ctx context.Context, cmd group.CreateCommand) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	state, err := cmd.Build(group.NewID())
	if err != nil {
		return Outcome{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	outcome := s.narrate(group.State{}, state)
	if err := s.groups.Create(state, s.updateOf(outcome)); err != nil {
		return Outcome{}, err
	}
	s.refreshIndex(state)
	s.log.Info("Group created", "group", state.ID(), "members", len(state.MemberIDs()))
	return outcome, nil
}

// Update applies cmd on the latest stored snapshot. The read and the write
// happen under the same lock so concurrent commands never build on a stale snapshot.
func (s *GroupService) Update(ctx context.Context, cmd group.UpdateCommand) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, err := s.groups.Get(cmd.GroupID)
	if err != nil {
		return Outcome{}, err
	}
	next, err := cmd.Apply(previous)
	if err != nil {
		return Outcome{}, err
	}
	return s.applyLocked(previous, next)
}

// ApplyUpdate replaces the stored snapshot of next's group.
// An update equal to the stored snapshot on every field is dropped.
// An update that only touches administrators or the write policy is
// materially the same conversation: it is stored and narrated all the same.
func (s *GroupService) ApplyUpdate(ctx context.Context, next group.State) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, err := s.groups.Get(next.ID())
	if err != nil {
		return Outcome{}, err
	}
	return s.applyLocked(previous, next)
}

// applyLocked must be called with s.mu held. The snapshot and its history
// entry are committed together, so a failed write leaves both untouched.
func (s *GroupService) applyLocked(previous, next group.State) (Outcome, error) {
	if group.Compare(previous, next, group.Strict) {
		s.log.Debug("Redundant group update dropped", "group", next.ID())
		return Outcome{Previous: previous, Current: previous}, nil
	}
	if group.Compare(previous, next, group.Material) {
		s.log.Debug("Permission-only group update", "group", next.ID())
	}

	outcome := s.narrate(previous, next)
	if err := s.groups.Store(next, s.updateOf(outcome)); err != nil {
		return Outcome{}, fmt.Errorf("failed to store group %s: %w", next.ID(), err)
	}
	s.refreshIndex(next)
	s.log.Info("Group updated", "group", next.ID(), "statements", len(outcome.Statements))
	return outcome, nil
}

func (s *GroupService) Get(id group.ID) (group.State, error) {
	return s.groups.Get(id)
}

func (s *GroupService) List() ([]group.State, error) {
	return s.groups.List()
}

func (s *GroupService) History(id group.ID, cursor *string) ([]repositories.Update, *string, error) {
	return s.updates.GetUpdates(id, cursor)
}

// Search resolves matching identities against the store.
// Groups missing from the store are skipped.
func (s *GroupService) Search(ctx context.Context, terms string, limit int) ([]group.State, error) {
	ids, err := s.index.Search(ctx, terms, limit)
	if err != nil {
		return nil, err
	}
	states := make([]group.State, 0, len(ids))
	for _, id := range ids {
		state, err := s.groups.Get(id)
		if err != nil {
			s.log.Warn("Indexed group not found in store", "group", id, "error", err)
			continue
		}
		states = append(states, state)
	}
	return states, nil
}

func (s *GroupService) narrate(previous, current group.State) Outcome {
	statements := s.narrator.Describe(previous, current)
	return Outcome{
		Previous:   previous,
		Current:    current,
		Statements: statements,
		Narrative:  s.narrator.Render(previous, current, statements),
		Applied:    true,
	}
}

// updateOf is the history entry of an outcome, nil when nothing was narrated.
func (s *GroupService) updateOf(outcome Outcome) *repositories.Update {
	if len(outcome.Statements) == 0 {
		return nil
	}
	return &repositories.Update{
		ID:      uuid.New(),
		GroupID: outcome.Current.ID(),
		At:      s.now().UTC(),
		Kinds: lo.Map(outcome.Statements, func(st narrator.Statement, _ int) string {
			return st.Kind.String()
		}),
		Statements: lo.Map(outcome.Statements, func(st narrator.Statement, _ int) string {
			return st.Text
		}),
		Narrative: outcome.Narrative,
	}
}

// refreshIndex logs failures: the index can be rebuilt from the store.
func (s *GroupService) refreshIndex(state group.State) {
	memberNames := lo.Map(state.MemberIDs(), func(id string, _ int) string {
		return s.narrator.DisplayName(id)
	})
	if err := s.index.Index(state, memberNames); err != nil {
		s.log.Error("Group search index not refreshed", "group", state.ID(), "error", err)
	}
}

// Reindex rebuilds the search index from every stored group.
func (s *GroupService) Reindex() (int, error) {
	states, err := s.groups.List()
	if err != nil {
		return 0, err
	}
	for _, state := range states {
		memberNames := lo.Map(state.MemberIDs(), func(id string, _ int) string {
			return s.narrator.DisplayName(id)
		})
		if err := s.index.Index(state, memberNames); err != nil {
			return 0, err
		}
	}
	return len(states), nil
}
