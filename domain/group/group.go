// Package group contains the snapshot model of a messaging group.
// A State is immutable: every update builds a new State from Params.
// No storage, network, or rendering logic should be added here.
package group

import (
	stderrors "errors"
	"fmt"
	"slices"
	"strings"

	"group-lab/errors"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/samber/lo"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	lo.Must0(v.RegisterValidation("notblank", validators.NotBlank))
	return v
}

// Params carries every field needed to build a State.
// Name and Avatar are optional: nil means absent. An empty Avatar is also
// absent, so it equals a nil Avatar and never an image.
type Params struct {
	ID                ID
	Name              *string
	MemberIDs         []string `validate:"unique,dive,notblank"`
	AdminIDs          []string `validate:"unique,dive,notblank"`
	CanOnlyWriteAdmin bool
	Avatar            []byte
}

// State is one snapshot of a group.
type State struct {
	id                ID
	name              *string
	memberIDs         []string
	adminIDs          []string
	canOnlyWriteAdmin bool
	avatar            []byte
}

// New builds a group without administrators.
func New(id ID, name *string, memberIDs []string, avatar []byte) (State, error) {
	return FromParams(Params{
		ID:        id,
		Name:      name,
		MemberIDs: memberIDs,
		Avatar:    avatar,
	})
}

// NewWithAdmins builds a group with an explicit administrator set.
// Every administrator must already be listed as a member.
func NewWithAdmins(id ID, name *string, memberIDs, adminIDs []string, avatar []byte) (State, error) {
	return FromParams(Params{
		ID:        id,
		Name:      name,
		MemberIDs: memberIDs,
		AdminIDs:  adminIDs,
		Avatar:    avatar,
	})
}

// FromParams validates p and returns the matching snapshot.
// Invalid input is rejected, never corrected.
func FromParams(p Params) (State, error) {
	if p.ID.IsZero() {
		return State{}, errors.ErrInvalidGroupID
	}
	if err := validate.Struct(p); err != nil {
		return State{}, fromValidationError(err)
	}
	if admin, found := lo.Find(p.AdminIDs, func(id string) bool {
		return !lo.Contains(p.MemberIDs, id)
	}); found {
		return State{}, fmt.Errorf("%w: %s", errors.ErrAdminNotMember, admin)
	}

	state := State{
		id:                p.ID,
		memberIDs:         detach(p.MemberIDs),
		adminIDs:          detach(p.AdminIDs),
		canOnlyWriteAdmin: p.CanOnlyWriteAdmin,
	}
	if p.Name != nil {
		state.name = lo.ToPtr(*p.Name)
	}
	if len(p.Avatar) > 0 {
		state.avatar = slices.Clone(p.Avatar)
	}
	return state, nil
}

// detach copies ids so the snapshot never shares memory with the caller.
// Empty lists are stored as nil.
func detach(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	return slices.Clone(ids)
}

var validationRules = []struct {
	field string
	tag   string
	err   error
}{
	{"MemberIDs", "notblank", errors.ErrEmptyMemberID},
	{"MemberIDs", "unique", errors.ErrDuplicateMember},
	{"AdminIDs", "notblank", errors.ErrEmptyMemberID},
	{"AdminIDs", "unique", errors.ErrDuplicateAdmin},
}

// fromValidationError maps validator failures onto the domain sentinels,
// in the priority order of validationRules.
func fromValidationError(err error) error {
	var fieldErrors validator.ValidationErrors
	if !stderrors.As(err, &fieldErrors) {
		return err
	}
	for _, rule := range validationRules {
		for _, fieldError := range fieldErrors {
			if strings.HasPrefix(fieldError.StructField(), rule.field) && fieldError.Tag() == rule.tag {
				return fmt.Errorf("%w: %s", rule.err, fieldError.Field())
			}
		}
	}
	return err
}

func (s State) ID() ID {
	return s.id
}

// Name returns the display name and whether one is set.
func (s State) Name() (string, bool) {
	if s.name == nil {
		return "", false
	}
	return *s.name, true
}

func (s State) MemberIDs() []string {
	return slices.Clone(s.memberIDs)
}

func (s State) AdminIDs() []string {
	return slices.Clone(s.adminIDs)
}

func (s State) CanOnlyWriteAdmin() bool {
	return s.canOnlyWriteAdmin
}

func (s State) Avatar() []byte {
	return slices.Clone(s.avatar)
}

func (s State) HasAvatar() bool {
	return s.avatar != nil
}

func (s State) IsMember(id string) bool {
	return lo.Contains(s.memberIDs, id)
}

func (s State) IsAdmin(id string) bool {
	return lo.Contains(s.adminIDs, id)
}

// CanWrite reports whether id may post messages to the group.
func (s State) CanWrite(id string) bool {
	if !s.IsMember(id) {
		return false
	}
	return !s.canOnlyWriteAdmin || s.IsAdmin(id)
}

// Params returns a detached copy of the snapshot fields,
// ready to be edited and passed back to FromParams.
func (s State) Params() Params {
	p := Params{
		ID:                s.id,
		MemberIDs:         s.MemberIDs(),
		AdminIDs:          s.AdminIDs(),
		CanOnlyWriteAdmin: s.canOnlyWriteAdmin,
		Avatar:            s.Avatar(),
	}
	if s.name != nil {
		p.Name = lo.ToPtr(*s.name)
	}
	return p
}
