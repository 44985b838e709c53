package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"group-lab/domain/group"
	"group-lab/repositories"
	"group-lab/resolver"
	"group-lab/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type commands struct {
	service   services.IGroupService
	contacts  *resolver.ContactResolver
	db        *badger.DB
	log       *slog.Logger
	debugPort int
	out       io.Writer
}

func (c commands) dispatch(ctx context.Context, name string, args []string) error {
	switch name {
	case "create":
		return c.create(ctx, args)
	case "update":
		return c.update(ctx, args)
	case "show":
		return c.show(args)
	case "history":
		return c.history(args)
	case "search":
		return c.search(ctx, args)
	case "contact":
		return c.contact(args)
	case "reindex":
		return c.reindex()
	case "serve":
		return c.serve(ctx, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", name)
	}
}

// idList parses a comma separated flag value, ignoring blanks.
func idList(value string) []string {
	return lo.Compact(lo.Map(strings.Split(value, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}

// optionalBool lets a flag distinguish "not given" from false.
type optionalBool struct {
	value *bool
}

func (o *optionalBool) String() string {
	if o.value == nil {
		return ""
	}
	return strconv.FormatBool(*o.value)
}

func (o *optionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	o.value = &v
	return nil
}

func (o *optionalBool) IsBoolFlag() bool { return true }

func readAvatar(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	avatar, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read avatar: %w", err)
	}
	return avatar, nil
}

func (c commands) create(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	name := fs.String("name", "", "group name")
	members := fs.String("members", "", "comma separated member ids")
	admins := fs.String("admins", "", "comma separated admin ids")
	adminOnly := fs.Bool("admin-only", false, "only admins can send messages")
	avatarPath := fs.String("avatar", "", "path to the avatar image")
	if err := fs.Parse(args); err != nil {
		return err
	}

	avatar, err := readAvatar(*avatarPath)
	if err != nil {
		return err
	}
	cmd := group.CreateCommand{
		MemberIDs:         idList(*members),
		AdminIDs:          idList(*admins),
		CanOnlyWriteAdmin: *adminOnly,
		Avatar:            avatar,
	}
	if *name != "" {
		cmd.Name = name
	}

	outcome, err := c.service.Create(ctx, cmd)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, color.Green.Sprintf("Group %s created", outcome.Current.ID()))
	c.printNarrative(outcome)
	return nil
}

func (c commands) update(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	groupID := fs.String("group", "", "group id")
	name := fs.String("name", "", "new group name")
	clearName := fs.Bool("clear-name", false, "remove the group name")
	add := fs.String("add", "", "comma separated member ids to add")
	remove := fs.String("remove", "", "comma separated member ids to remove")
	promote := fs.String("promote", "", "comma separated member ids to promote")
	demote := fs.String("demote", "", "comma separated admin ids to demote")
	avatarPath := fs.String("avatar", "", "path to the new avatar image")
	clearAvatar := fs.Bool("clear-avatar", false, "remove the avatar")
	var adminOnly optionalBool
	fs.Var(&adminOnly, "admin-only", "only admins can send messages (true/false)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := group.ParseIDString(*groupID)
	if err != nil {
		return err
	}
	avatar, err := readAvatar(*avatarPath)
	if err != nil {
		return err
	}
	cmd := group.UpdateCommand{
		GroupID:           id,
		ClearName:         *clearName,
		Add:               idList(*add),
		Remove:            idList(*remove),
		Promote:           idList(*promote),
		Demote:            idList(*demote),
		CanOnlyWriteAdmin: adminOnly.value,
		Avatar:            avatar,
		ClearAvatar:       *clearAvatar,
	}
	if *name != "" {
		cmd.Name = name
	}

	outcome, err := c.service.Update(ctx, cmd)
	if err != nil {
		return err
	}
	if !outcome.Applied {
		fmt.Fprintln(c.out, color.Gray.Sprint("Nothing changed"))
		return nil
	}
	c.printNarrative(outcome)
	return nil
}

func (c commands) printNarrative(outcome services.Outcome) {
	fmt.Fprintln(c.out, color.Bold.Sprint(outcome.Narrative))
	for _, statement := range outcome.Statements {
		fmt.Fprintf(c.out, "  %s %s\n", color.Cyan.Sprintf("%-16s", statement.Kind), statement.Text)
	}
}

func (c commands) show(args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	groupID := fs.String("group", "", "group id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := group.ParseIDString(*groupID)
	if err != nil {
		return err
	}
	state, err := c.service.Get(id)
	if err != nil {
		return err
	}

	name, ok := state.Name()
	if !ok {
		name = color.Gray.Sprint("(no name)")
	}
	fmt.Fprintf(c.out, "%s %s\n", color.Bold.Sprint(name), color.Gray.Sprint(state.ID()))

	table := newTable(c.out, []string{"Member", "Name", "Admin", "Can write"})
	for _, member := range state.MemberIDs() {
		display, err := c.contacts.DisplayName(member)
		if err != nil {
			display = "-"
		}
		table.Append([]string{
			member,
			display,
			strconv.FormatBool(state.IsAdmin(member)),
			strconv.FormatBool(state.CanWrite(member)),
		})
	}
	table.Render()
	if state.HasAvatar() {
		fmt.Fprintf(c.out, "avatar: %d bytes\n", len(state.Avatar()))
	}
	return nil
}

func (c commands) history(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	groupID := fs.String("group", "", "group id")
	cursor := fs.String("cursor", "", "resume after this cursor")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := group.ParseIDString(*groupID)
	if err != nil {
		return err
	}

	updates, next, err := c.service.History(id, lo.EmptyableToPtr(*cursor))
	if err != nil {
		return err
	}
	table := newTable(c.out, []string{"At", "Changes", "Narrative"})
	for _, update := range updates {
		table.Append([]string{
			update.At.Format("2006-01-02 15:04:05"),
			strings.Join(update.Kinds, ","),
			update.Narrative,
		})
	}
	table.Render()
	if next != nil {
		fmt.Fprintln(c.out, color.Gray.Sprintf("more: -cursor %s", *next))
	}
	return nil
}

func (c commands) search(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	terms := fs.String("q", "", "search terms")
	limit := fs.Int("limit", 10, "maximum number of groups")
	if err := fs.Parse(args); err != nil {
		return err
	}

	states, err := c.service.Search(ctx, *terms, *limit)
	if err != nil {
		return err
	}
	table := newTable(c.out, []string{"Group", "Name", "Members"})
	for _, state := range states {
		name, _ := state.Name()
		table.Append([]string{state.ID().String(), name, strconv.Itoa(len(state.MemberIDs()))})
	}
	table.Render()
	return nil
}

func (c commands) contact(args []string) error {
	fs := flag.NewFlagSet("contact", flag.ContinueOnError)
	id := fs.String("id", "", "member id")
	name := fs.String("name", "", "name saved in the address book")
	profile := fs.String("profile", "", "name published by the member")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*id) == "" {
		return fmt.Errorf("-id is required")
	}
	contact := repositories.Contact{ID: *id, ContactName: *name, ProfileName: *profile}
	if err := c.contacts.StoreContact(contact); err != nil {
		return err
	}
	fmt.Fprintln(c.out, color.Green.Sprintf("Contact %s saved as %q", contact.ID, contact.DisplayName()))
	return nil
}

func (c commands) reindex() error {
	count, err := c.service.Reindex()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, color.Green.Sprintf("%d groups indexed", count))
	return nil
}

func newTable(out io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetCenterSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	return table
}
