package ui

import (
	"fmt"
	"strings"

	"github.com/abelbrown/postbook/internal/controller/controllers"
	"github.com/charmbracelet/lipgloss"
)

// RenderDetails renders one post as a card.
func RenderDetails(st controllers.DetailsState, width int) string {
	d := st.Details
	rows := []string{
		detailRow("Title", d.Title),
		detailRow("Description", d.Description),
		detailRow("Author", d.Author),
		detailRow("ID", fmt.Sprintf("%d", d.ID)),
	}
	if st.OutOfStock {
		rows = append(rows, "", ErrorStyle.Render("Out of stock"))
	}

	cardWidth := width - 4
	if cardWidth < 30 {
		cardWidth = 30
	}
	return Card.Width(cardWidth).Render(strings.Join(rows, "\n"))
}

func detailRow(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, DetailLabel.Render(label), DetailValue.Render(value))
}

// RenderConfirmDelete renders the delete confirmation dialog.
func RenderConfirmDelete(title string) string {
	body := fmt.Sprintf("Delete %q?\n\nThis cannot be undone.  y: delete  n: cancel", truncateRunes(title, 40))
	return Dialog.Render(body)
}
