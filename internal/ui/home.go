package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/abelbrown/postbook/internal/model"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// RenderList renders the post list with the cursor row highlighted.
// height is the number of lines available for rows.
func RenderList(posts []model.Post, cursor int, width, height int) string {
	if len(posts) == 0 {
		return HelpStyle.Render("No posts yet. Press 'n' to write one.")
	}
	if height < 1 {
		height = 1
	}

	offset := calcScrollOffset(len(posts), cursor, height)

	var b strings.Builder
	for i := offset; i < len(posts) && i < offset+height; i++ {
		b.WriteString(renderPostLine(posts[i], i == cursor, width))
		b.WriteString("\n")
	}
	return b.String()
}

// calcScrollOffset returns the first visible row that keeps cursor on screen.
func calcScrollOffset(total, cursor, height int) int {
	if total == 0 || cursor < 0 {
		return 0
	}
	if cursor >= total {
		cursor = total - 1
	}
	if cursor >= height {
		return cursor - height + 1
	}
	return 0
}

// renderPostLine renders "author  title" truncated to width.
func renderPostLine(p model.Post, selected bool, width int) string {
	badge := AuthorBadge.Render(truncateRunes(p.Author, 16))
	badgeWidth := lipgloss.Width(badge)

	titleWidth := width - badgeWidth - 4
	if titleWidth < 20 {
		titleWidth = 20
	}
	title := truncateRunes(p.Title, titleWidth)

	style := NormalItem
	if selected {
		style = SelectedItem
	}
	return fmt.Sprintf("%s %s", badge, style.Render(title))
}

// truncateRunes shortens s to at most n runes, marking the cut with "...".
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 3 {
		return string([]rune(s)[:n])
	}
	return string([]rune(s)[:n-3]) + "..."
}

// RenderStatusBar renders the bottom bar: position or notice on the left,
// key hints on the right.
func RenderStatusBar(left string, bindings []key.Binding, width int) string {
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, StatusBarKey.Render(h.Key)+StatusBarText.Render(":"+h.Desc))
	}
	keyHints := strings.Join(hints, " ")

	padding := width - lipgloss.Width(left) - lipgloss.Width(keyHints) - 2
	if padding < 0 {
		padding = 0
	}
	return StatusBar.Width(width).Render(left + strings.Repeat(" ", padding) + keyHints)
}
