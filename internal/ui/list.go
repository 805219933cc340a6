package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/mediadesk/internal/models"
)

var _ list.Item = userItem{}

// userItem wraps [models.User] to implement [list.Item].
type userItem struct {
	user models.User
}

func (i userItem) FilterValue() string { return i.user.FullName() + " " + i.user.Email }
func (i userItem) Title() string       { return i.user.FullName() }
func (i userItem) Description() string {
	desc := i.user.Email
	if i.user.Role != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.user.Role)
	}
	if i.user.Status != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.user.Status)
	}
	return desc
}

func userItems(users []models.User) []list.Item {
	items := make([]list.Item, len(users))
	for i, u := range users {
		items[i] = userItem{user: u.Normalize()}
	}
	return items
}
