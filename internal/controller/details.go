package controller

import (
	"strings"

	"github.com/abelbrown/postbook/internal/model"
)

// PostDetails is the form-friendly projection of a post.
type PostDetails struct {
	ID          int64
	Title       string
	Description string
	Author      string
}

// DetailsFromPost copies every field of p.
func DetailsFromPost(p model.Post) PostDetails {
	return PostDetails{ID: p.ID, Title: p.Title, Description: p.Description, Author: p.Author}
}

// Post converts d back to a storable record.
func (d PostDetails) Post() model.Post {
	return model.Post{ID: d.ID, Title: d.Title, Description: d.Description, Author: d.Author}
}

// Valid reports whether title, description and author are all non-blank.
func (d PostDetails) Valid() bool {
	return strings.TrimSpace(d.Title) != "" &&
		strings.TrimSpace(d.Description) != "" &&
		strings.TrimSpace(d.Author) != ""
}
