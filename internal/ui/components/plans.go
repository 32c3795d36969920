// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/clarity-hq/clarity-tui/internal/model"
	"github.com/clarity-hq/clarity-tui/internal/ui/styles"
	"github.com/clarity-hq/clarity-tui/internal/util"
)

// RenderTasks renders a task list attached to a bot message or a dashboard
// plan. Done tasks get the success indicator, pending ones the empty box.
func RenderTasks(theme *styles.Theme, tasks []model.Task, width int) string {
	if len(tasks) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(theme.ListTitle.Render("Tasks"))
	for _, task := range tasks {
		line := task.Title
		if task.Duration != "" {
			line += " (" + task.Duration + ")"
		}
		line = util.TruncateWidth(line, width-8)

		b.WriteString("\n")
		if task.Done {
			b.WriteString(theme.TaskDone.Render(styles.StatusIndicators.Success + " " + line))
		} else {
			b.WriteString(theme.TaskPending.Render(styles.StatusIndicators.Pending + " " + line))
		}
		if task.Details != "" {
			b.WriteString("\n" + theme.ListMeta.Render("     "+util.TruncateWidth(task.Details, width-10)))
		}
	}
	return b.String()
}

// RenderResources renders a resource list with underlined URLs.
func RenderResources(theme *styles.Theme, resources []model.Resource, width int) string {
	if len(resources) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(theme.ListTitle.Render("Resources"))
	for _, res := range resources {
		title := res.Title
		if title == "" {
			title = res.URL
		}
		b.WriteString("\n  " + util.TruncateWidth(title, width-6))
		if res.URL != "" && res.Title != "" {
			b.WriteString("\n    " + theme.Resource.Render(util.TruncateWidth(res.URL, width-8)))
		}
	}
	return b.String()
}
