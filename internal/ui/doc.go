// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is a gated session workflow:
//  1. [CheckingView] : Run the auth gate while a spinner shows
//  2. [LoginView] : Collect email and password when the gate denies entry
//  3. [DashboardView] : Browse accounts while the session refresher runs
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Refresher progress flows through a channel, so a background logout returns the user to [LoginView] without polling.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, tab, r, L, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
