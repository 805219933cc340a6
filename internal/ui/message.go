package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/mediadesk/internal/gate"
	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgGateChecked MsgKind = iota
	MsgLoginFinished
	MsgUsersFetched
	MsgProgressUpdate
	MsgLoggedOut
)

type loginResult struct {
	result *models.LoginResult
	err    error
}

type usersResult struct {
	users []models.User
	err   error
}

// gateCheckedMsg is the constructor for [MsgGateChecked]
func gateCheckedMsg(d gate.Decision) Msg {
	return Msg{kind: MsgGateChecked, data: d}
}

// loginFinishedMsg is the constructor for [MsgLoginFinished]
func loginFinishedMsg(res *models.LoginResult, err error) Msg {
	return Msg{kind: MsgLoginFinished, data: loginResult{res, err}}
}

// usersFetchedMsg is the constructor for [MsgUsersFetched]
func usersFetchedMsg(users []models.User, err error) Msg {
	return Msg{kind: MsgUsersFetched, data: usersResult{users, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// loggedOutMsg is the constructor for [MsgLoggedOut]
func loggedOutMsg(err error) Msg {
	return Msg{kind: MsgLoggedOut, data: err}
}
