// Package narrator turns two group snapshots into an ordered list of
// human-readable change statements.
// It never mutates its inputs and performs no I/O besides name resolution.
package narrator

import (
	"bytes"
	"log/slog"
	"strings"

	"group-lab/domain/group"

	"github.com/samber/lo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Kind int

const (
	MemberJoined Kind = iota
	MemberLeft
	NameChanged
	NameRemoved
	AvatarChanged
	AdminPromoted
	AdminDemoted
	WriteRestricted
	WriteOpened
)

func (k Kind) String() string {
	switch k {
	case MemberJoined:
		return "member_joined"
	case MemberLeft:
		return "member_left"
	case NameChanged:
		return "name_changed"
	case NameRemoved:
		return "name_removed"
	case AvatarChanged:
		return "avatar_changed"
	case AdminPromoted:
		return "admin_promoted"
	case AdminDemoted:
		return "admin_demoted"
	case WriteRestricted:
		return "write_restricted"
	case WriteOpened:
		return "write_opened"
	default:
		return "unknown"
	}
}

// Statement is one atomic change.
// Subject holds the member identifier for membership and admin changes,
// and the new name for NameChanged.
type Statement struct {
	Kind    Kind
	Subject string
	Text    string
}

// Resolver turns an opaque member identifier into a display name.
type Resolver interface {
	DisplayName(id string) (string, error)
}

type ResolverFunc func(id string) (string, error)

func (f ResolverFunc) DisplayName(id string) (string, error) {
	return f(id)
}

type Narrator struct {
	log      *slog.Logger
	resolver Resolver
	printer  *message.Printer
}

type Option func(*Narrator)

func WithLanguage(tag language.Tag) Option {
	return func(n *Narrator) {
		n.printer = newPrinter(tag)
	}
}

func New(log *slog.Logger, resolver Resolver, opts ...Option) *Narrator {
	if log == nil {
		log = slog.Default()
	}
	n := &Narrator{
		log:      log,
		resolver: resolver,
		printer:  newPrinter(language.English),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// DescribeChanges lists the English statements describing how previous became current.
func DescribeChanges(previous, current group.State, resolver Resolver) []string {
	return New(slog.New(slog.DiscardHandler), resolver).DescribeChanges(previous, current)
}

func (n *Narrator) DescribeChanges(previous, current group.State) []string {
	return lo.Map(n.Describe(previous, current), func(s Statement, _ int) string {
		return s.Text
	})
}

// Describe diffs two snapshots. Statements come in a fixed order:
// joins (current order), departures (previous order), name, avatar,
// promotions (current admin order), demotions (previous admin order), write policy.
// Identical snapshots yield no statement.
func (n *Narrator) Describe(previous, current group.State) []Statement {
	var statements []Statement
	statements = append(statements, n.membership(previous, current)...)
	statements = append(statements, n.name(previous, current)...)
	statements = append(statements, n.avatar(previous, current)...)
	statements = append(statements, n.admins(previous, current)...)
	statements = append(statements, n.writePolicy(previous, current)...)
	return statements
}

// Render joins statements behind the group name, current name first.
func (n *Narrator) Render(previous, current group.State, statements []Statement) string {
	if len(statements) == 0 {
		return ""
	}
	body := strings.Join(lo.Map(statements, func(s Statement, _ int) string {
		return s.Text
	}), " ")

	name, ok := current.Name()
	if !ok {
		name, ok = previous.Name()
	}
	if !ok || name == "" {
		return body
	}
	return n.printer.Sprintf(keyInGroup, name, body)
}

// Fallback is the text to show when a notification is wanted for an empty narrative.
func (n *Narrator) Fallback() string {
	return n.printer.Sprintf(keyGroupUpdated)
}

// DisplayName resolves id, falling back to id itself on any resolver failure.
func (n *Narrator) DisplayName(id string) string {
	if n.resolver == nil {
		return id
	}
	name, err := n.resolver.DisplayName(id)
	if err != nil {
		n.log.Debug("Display name not resolved, using identifier", "member", id, "error", err)
		return id
	}
	if strings.TrimSpace(name) == "" {
		return id
	}
	return name
}

func (n *Narrator) membership(previous, current group.State) []Statement {
	before := previous.MemberIDs()
	after := current.MemberIDs()

	joined := lo.Map(lo.Without(after, before...), func(id string, _ int) Statement {
		return n.statement(MemberJoined, id, keyMemberJoined, n.DisplayName(id))
	})
	left := lo.Map(lo.Without(before, after...), func(id string, _ int) Statement {
		return n.statement(MemberLeft, id, keyMemberLeft, n.DisplayName(id))
	})
	return append(joined, left...)
}

func (n *Narrator) name(previous, current group.State) []Statement {
	before, hadName := previous.Name()
	after, hasName := current.Name()
	switch {
	case hadName == hasName && before == after:
		return nil
	case !hasName:
		return []Statement{n.statement(NameRemoved, "", keyNameRemoved)}
	default:
		return []Statement{n.statement(NameChanged, after, keyNameChanged, after)}
	}
}

func (n *Narrator) avatar(previous, current group.State) []Statement {
	if previous.HasAvatar() == current.HasAvatar() && bytes.Equal(previous.Avatar(), current.Avatar()) {
		return nil
	}
	return []Statement{n.statement(AvatarChanged, "", keyAvatarChanged)}
}

// admins reports promotions, including of members who just joined.
// Demotions of members who left are already covered by their departure.
func (n *Narrator) admins(previous, current group.State) []Statement {
	before := previous.AdminIDs()
	after := current.AdminIDs()

	promoted := lo.Map(lo.Without(after, before...), func(id string, _ int) Statement {
		return n.statement(AdminPromoted, id, keyAdminPromoted, n.DisplayName(id))
	})
	demoted := lo.FilterMap(lo.Without(before, after...), func(id string, _ int) (Statement, bool) {
		if !current.IsMember(id) {
			return Statement{}, false
		}
		return n.statement(AdminDemoted, id, keyAdminDemoted, n.DisplayName(id)), true
	})
	return append(promoted, demoted...)
}

func (n *Narrator) writePolicy(previous, current group.State) []Statement {
	switch {
	case previous.CanOnlyWriteAdmin() == current.CanOnlyWriteAdmin():
		return nil
	case current.CanOnlyWriteAdmin():
		return []Statement{n.statement(WriteRestricted, "", keyWriteRestricted)}
	default:
		return []Statement{n.statement(WriteOpened, "", keyWriteOpened)}
	}
}

func (n *Narrator) statement(kind Kind, subject, key string, args ...any) Statement {
	return Statement{
		Kind:    kind,
		Subject: subject,
		Text:    n.printer.Sprintf(key, args...),
	}
}
