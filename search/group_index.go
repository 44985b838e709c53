// Package search indexes group snapshots so conversations can be found
// by their name or by the display names of their members.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"group-lab/domain/group"

	"github.com/blugelabs/bluge"
)

const (
	fieldID      = "_id"
	fieldName    = "name"
	fieldMembers = "members"

	DefaultLimit = 10
)

type GroupIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewGroupIndex(writer *bluge.Writer, log *slog.Logger) *GroupIndex {
	return &GroupIndex{writer: writer, log: log}
}

// Index replaces the indexed document of the group with the given snapshot.
func (g *GroupIndex) Index(state group.State, memberNames []string) error {
	doc := bluge.NewDocument(state.ID().String())
	if name, ok := state.Name(); ok && name != "" {
		doc.AddField(bluge.NewTextField(fieldName, name))
	}
	for _, member := range memberNames {
		doc.AddField(bluge.NewTextField(fieldMembers, member))
	}
	if err := g.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("failed to index group %s: %w", state.ID(), err)
	}
	return nil
}

// Search returns the groups whose name or member names match terms, best match first.
func (g *GroupIndex) Search(ctx context.Context, terms string, limit int) ([]group.ID, error) {
	terms = strings.TrimSpace(terms)
	if terms == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	reader, err := g.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open index reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	query := bluge.NewBooleanQuery().
		AddShould(bluge.NewMatchQuery(terms).SetField(fieldName)).
		AddShould(bluge.NewMatchQuery(terms).SetField(fieldMembers)).
		SetMinShould(1)

	matches, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var ids []group.ID
	match, err := matches.Next()
	for err == nil && match != nil {
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			if field != fieldID {
				return true
			}
			id, parseErr := group.ParseIDString(string(value))
			if parseErr != nil {
				g.log.Warn("Ignoring unparsable indexed group", "id", string(value), "error", parseErr)
				return false
			}
			ids = append(ids, id)
			return false
		})
		if visitErr != nil {
			return nil, visitErr
		}
		match, err = matches.Next()
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}
