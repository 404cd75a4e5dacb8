package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/botanica/internal/client"
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
	MsgEvent MsgKind = iota
	MsgOpDone
)

// opName identifies the operation behind a [MsgOpDone].
type opName int

const (
	opSignIn opName = iota
	opSignOut
	opLoadAll
	opLoadList
	opLoadDetail
	opSaveJob
	opDeleteJob
	opLoadData
	opSaveData
)

type opResult struct {
	op  opName
	err error
}

// eventMsg is the constructor for [MsgEvent]
func eventMsg(e client.Event) Msg {
	return Msg{kind: MsgEvent, data: e}
}

// opDoneMsg is the constructor for [MsgOpDone]
func opDoneMsg(op opName, err error) Msg {
	return Msg{kind: MsgOpDone, data: opResult{op: op, err: err}}
}
