package group

import (
	"github.com/samber/lo"
)

// CreateCommand describes a new group. The identity is assigned by the caller of Build.
type CreateCommand struct {
	Name              *string
	MemberIDs         []string
	AdminIDs          []string
	CanOnlyWriteAdmin bool
	Avatar            []byte
}

func (c CreateCommand) Build(id ID) (State, error) {
	return FromParams(Params{
		ID:                id,
		Name:              c.Name,
		MemberIDs:         c.MemberIDs,
		AdminIDs:          c.AdminIDs,
		CanOnlyWriteAdmin: c.CanOnlyWriteAdmin,
		Avatar:            c.Avatar,
	})
}

// UpdateCommand lists the edits to apply on top of the latest snapshot.
// Zero values leave the matching facet untouched.
type UpdateCommand struct {
	GroupID           ID
	Name              *string
	ClearName         bool
	Add               []string
	Remove            []string
	Promote           []string
	Demote            []string
	CanOnlyWriteAdmin *bool
	Avatar            []byte
	ClearAvatar       bool
}

// Apply derives the next snapshot from previous. Removed members lose
// their admin rights, promoted identifiers must be members of the result.
func (c UpdateCommand) Apply(previous State) (State, error) {
	p := previous.Params()

	switch {
	case c.ClearName:
		p.Name = nil
	case c.Name != nil:
		p.Name = lo.ToPtr(*c.Name)
	}

	p.MemberIDs = lo.Without(p.MemberIDs, c.Remove...)
	p.MemberIDs = append(p.MemberIDs, lo.Without(lo.Uniq(c.Add), p.MemberIDs...)...)

	p.AdminIDs = lo.Without(p.AdminIDs, c.Remove...)
	p.AdminIDs = lo.Without(p.AdminIDs, c.Demote...)
	p.AdminIDs = append(p.AdminIDs, lo.Without(lo.Uniq(c.Promote), p.AdminIDs...)...)

	if c.CanOnlyWriteAdmin != nil {
		p.CanOnlyWriteAdmin = *c.CanOnlyWriteAdmin
	}

	switch {
	case c.ClearAvatar:
		p.Avatar = nil
	case len(c.Avatar) > 0:
		p.Avatar = c.Avatar
	}

	return FromParams(p)
}
