// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is a thin view over a [client.Controller]:
//  1. [SignedOutView] : Start the Google sign-in flow
//  2. [JobListView] : Browse saved jobs, reload, create or delete
//  3. [JobDetailView] : Inspect the selected job
//  4. [JobFormView] : Create or edit a job
//  5. [ConfirmDeleteView] : Confirm a deletion
//  6. [MainDataView] and [MainDataFormView] : Show and edit the main data record
//
// Controller operations run as tea.Cmds off the update loop and report back as [MsgOpDone].
// Controller events flow through a buffered channel and arrive as [MsgEvent]; each one refreshes the model
// from [client.Controller.Snapshot], so a dropped event only delays a redraw.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
