package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/corey/treesync/internal/adapters/socket"
	"github.com/corey/treesync/internal/app"
	"github.com/corey/treesync/internal/domain/validator"
	"github.com/corey/treesync/internal/ports"
)

// ANSI color codes for terminal output.
const (
	colorReset   = "\033[0m"
	colorBold    = "\033[1m"
	colorCyan    = "\033[36m"
	colorMagenta = "\033[35m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorGray    = "\033[90m"
)

// formatResult formats a validation result for terminal display.
//
//	⚡ various_file_changes │ 2 changes
//	  created  /src/chromium/net/socket.cc  @/src/chromium
func formatResult(r validator.Result) string {
	var sb strings.Builder
	switch v := r.(type) {
	case validator.NoChanges:
		sb.WriteString(fmt.Sprintf("%s⚡ %s%s │ nothing to update\n", colorBold, v.Kind(), colorReset))
	case validator.UnknownChanges:
		sb.WriteString(fmt.Sprintf("%s⚡ %s%s │ %sproject definition changed, rescan required%s\n",
			colorBold, v.Kind(), colorReset, colorYellow, colorReset))
	case validator.FileModificationsOnly:
		sb.WriteString(fmt.Sprintf("%s⚡ %s%s │ %d files\n", colorBold, v.Kind(), colorReset, len(v.Files)))
		for _, f := range v.Files {
			sb.WriteString(fmt.Sprintf("  %s%s%s  %s@%s%s\n",
				colorCyan, f.RelativePath, colorReset, colorMagenta, f.ProjectRoot, colorReset))
		}
	case validator.VariousFileChanges:
		sb.WriteString(fmt.Sprintf("%s⚡ %s%s │ %d changes\n", colorBold, v.Kind(), colorReset, len(v.Changes)))
		for _, c := range v.Changes {
			sb.WriteString(fmt.Sprintf("  %-8s %s%s%s  %s@%s%s\n",
				c.Entry.Kind, colorCyan, c.Entry.Path, colorReset, colorMagenta, c.ProjectRoot, colorReset))
		}
	}
	return sb.String()
}

// formatHistory formats journal entries, newest first.
func formatHistory(entries []*ports.JournalEntry) string {
	if len(entries) == 0 {
		return "⚡ no history\n"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s⚡ %d batches%s\n", colorBold, len(entries), colorReset))
	for _, e := range entries {
		ts := time.UnixMilli(e.Time).Format("2006-01-02 15:04:05.000")
		sb.WriteString(fmt.Sprintf("  %s%s%s  %-24s %d/%d kept",
			colorGray, ts, colorReset, e.Result, e.Filtered, e.Received))
		if len(e.Paths) > 0 {
			sb.WriteString(fmt.Sprintf("  %s%s%s", colorCyan, e.Paths[0], colorReset))
			if len(e.Paths) > 1 {
				sb.WriteString(fmt.Sprintf(" +%d", len(e.Paths)-1))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatHealth formats a HealthResult for terminal display.
func formatHealth(h *socket.HealthResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s⚡ treesync daemon%s\n", colorBold, colorReset))
	sb.WriteString(fmt.Sprintf("  Status:   %s%s%s\n", colorGreen, h.Status, colorReset))
	sb.WriteString(fmt.Sprintf("  Roots:    %s\n", strings.Join(h.Roots, ", ")))
	sb.WriteString(fmt.Sprintf("  Batches:  %d\n", h.Batches))
	if h.LastResult != "" {
		sb.WriteString(fmt.Sprintf("  Last:     %s\n", h.LastResult))
	}
	sb.WriteString(fmt.Sprintf("  Uptime:   %s\n", h.Uptime))
	if h.HTTPPort != 0 {
		sb.WriteString(fmt.Sprintf("  Dashboard: http://127.0.0.1:%d\n", h.HTTPPort))
	}
	return sb.String()
}

// formatPathInfo formats one Describe answer.
func formatPathInfo(info app.PathInfo) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s%s%s\n", colorCyan, info.Path, colorReset))
	if info.ProjectRoot == "" {
		sb.WriteString(fmt.Sprintf("  %sno project%s\n", colorYellow, colorReset))
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("  Project:     %s\n", info.ProjectRoot))
	if info.RelativePath != "" {
		sb.WriteString(fmt.Sprintf("  Name:        %s\n", info.RelativePath))
	}
	sb.WriteString(fmt.Sprintf("  Excluded:    %t\n", info.Excluded))
	sb.WriteString(fmt.Sprintf("  Searchable:  %t\n", info.Searchable))
	return sb.String()
}
