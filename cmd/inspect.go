package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"group-lab/internal"
	"group-lab/repositories"
)

// GroupMapper renders group snapshots and update records for the inspector.
func GroupMapper(key string, val []byte) internal.InspectRow {
	switch {
	case strings.HasPrefix(key, "group:"):
		var disk repositories.DiskGroup
		if err := json.Unmarshal(val, &disk); err != nil {
			return internal.DefaultMapper(key, val)
		}
		name := "-"
		if disk.Name != nil {
			name = *disk.Name
		}
		return internal.InspectRow{
			Key:       key,
			Type:      "GROUP",
			Timestamp: time.Unix(0, disk.StoredAt).UTC().Format("15:04:05"),
			EntityID:  disk.ID,
			Group:     name,
			Detail: fmt.Sprintf("members=%s admins=%s admin_only=%t avatar=%dB",
				strings.Join(disk.MemberIDs, ","),
				strings.Join(disk.AdminIDs, ","),
				disk.CanOnlyWriteAdmin,
				len(disk.Avatar)),
		}
	case strings.HasPrefix(key, "update:"):
		row := internal.DefaultMapper(key, val)
		var update struct {
			Narrative string `json:"narrative"`
		}
		if err := json.Unmarshal(val, &update); err == nil {
			row.Detail = update.Narrative
		}
		return row
	default:
		return internal.DefaultMapper(key, val)
	}
}

func (c commands) serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := fs.Int("port", c.debugPort, "port to listen on")
	if err := fs.Parse(args); err != nil {
		return err
	}

	stats := func() map[string]any {
		states, err := c.service.List()
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"groups": len(states)}
	}
	handler := internal.NewInspectHandler(c.db, GroupMapper, stats)
	return internal.StartDebugServer(ctx, c.log, *port, "/inspect", handler)
}
