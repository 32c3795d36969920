// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"errors"
	"strings"
	"testing"

	"github.com/clarity-hq/clarity-tui/internal/api"
	"github.com/clarity-hq/clarity-tui/internal/model"
	"github.com/clarity-hq/clarity-tui/internal/ui/styles"
)

func TestParseCodeBlocks_FencedBlock(t *testing.T) {
	text := "before\n```go\nfmt.Println(\"hi\")\n```\nafter"
	out := ParseCodeBlocks(text, 80)

	if !strings.Contains(out, "before") || !strings.Contains(out, "after") {
		t.Error("surrounding text lost")
	}
	if strings.Contains(out, "```") {
		t.Error("fence markers leaked into output")
	}
	if !strings.Contains(out, "Println") {
		t.Error("code content lost")
	}
}

func TestParseCodeBlocks_UnclosedFence(t *testing.T) {
	out := ParseCodeBlocks("```python\nprint(1)", 80)
	if !strings.Contains(out, "print(1)") {
		t.Error("unclosed block content lost")
	}
}

func TestParseCodeBlocks_NoFences(t *testing.T) {
	text := "just plain text"
	if out := ParseCodeBlocks(text, 80); out != text {
		t.Errorf("plain text changed: %q", out)
	}
}

func TestRenderTasks(t *testing.T) {
	theme := styles.NewTheme()
	tasks := []model.Task{
		{Title: "Revise chapter 3", Duration: "1h", Done: true},
		{Title: "Practice problems", Details: "Odd-numbered only"},
	}
	out := RenderTasks(theme, tasks, 80)

	if !strings.Contains(out, "Revise chapter 3") {
		t.Error("task title missing")
	}
	if !strings.Contains(out, "[OK]") {
		t.Error("done indicator missing")
	}
	if !strings.Contains(out, "[ ]") {
		t.Error("pending indicator missing")
	}
	if !strings.Contains(out, "Odd-numbered only") {
		t.Error("task details missing")
	}
}

func TestRenderTasks_Empty(t *testing.T) {
	if out := RenderTasks(styles.NewTheme(), nil, 80); out != "" {
		t.Errorf("empty tasks rendered %q", out)
	}
}

func TestRenderResources(t *testing.T) {
	theme := styles.NewTheme()
	resources := []model.Resource{
		{Title: "Study guide", URL: "https://example.com/guide"},
		{URL: "https://example.com/bare"},
	}
	out := RenderResources(theme, resources, 100)

	if !strings.Contains(out, "Study guide") {
		t.Error("resource title missing")
	}
	if !strings.Contains(out, "example.com/guide") {
		t.Error("resource URL missing")
	}
	if !strings.Contains(out, "example.com/bare") {
		t.Error("title-less resource should fall back to URL")
	}
}

func TestErrorBanner_ValidationFields(t *testing.T) {
	theme := styles.NewTheme()
	err := &api.RequestError{
		Status:  422,
		Message: "invalid input",
		Fields:  map[string]string{"email": "not an email"},
	}
	banner := NewErrorBanner(theme, err)
	out := banner.View()

	if !strings.Contains(out, "Check your input") {
		t.Error("validation title missing")
	}
	if !strings.Contains(out, "not an email") {
		t.Error("field detail missing")
	}
}

func TestErrorBanner_NetworkError(t *testing.T) {
	banner := NewErrorBanner(styles.NewTheme(), &api.RequestError{Message: "dial tcp: refused"})
	if !strings.Contains(banner.View(), "Connection failed") {
		t.Error("network title missing")
	}
}

func TestErrorBanner_PlainError(t *testing.T) {
	banner := NewErrorBanner(styles.NewTheme(), errors.New("something odd"))
	if !strings.Contains(banner.View(), "something odd") {
		t.Error("plain error message missing")
	}
}

func TestErrorBanner_NilError(t *testing.T) {
	banner := NewErrorBanner(styles.NewTheme(), nil)
	if banner.View() != "" {
		t.Error("nil error rendered content")
	}
}
