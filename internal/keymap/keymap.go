// Package keymap defines key bindings and action dispatch for the application.
package keymap

import "strings"

// Action represents a user-triggerable action.
type Action string

const (
	// Global actions
	ActionQuit   Action = "quit"
	ActionSearch Action = "search"
	ActionHelp   Action = "help"

	// Playback actions
	ActionPlayPause Action = "play_pause"
	ActionPause     Action = "pause"
	ActionStart     Action = "start"
	ActionStop      Action = "stop"

	// Catalog list actions
	ActionMoveUp    Action = "move_up"
	ActionMoveDown  Action = "move_down"
	ActionJumpStart Action = "jump_start"
	ActionJumpEnd   Action = "jump_end"
	ActionLoad      Action = "load"
)

// Binding maps keys to an action.
type Binding struct {
	Action      Action
	Keys        []string
	Description string
	Context     string // "global", "playback", "catalog"
}

// Bindings contains every key binding, in help order.
var Bindings = []Binding{
	{ActionQuit, []string{"q", "ctrl+c"}, "Quit", "global"},
	{ActionSearch, []string{"/"}, "Filter catalog", "global"},
	{ActionHelp, []string{"?"}, "Toggle help", "global"},

	{ActionPlayPause, []string{" "}, "Play/pause", "playback"},
	{ActionPause, []string{"p"}, "Pause", "playback"},
	{ActionStart, []string{"P"}, "Start", "playback"},
	{ActionStop, []string{"s"}, "Stop", "playback"},

	{ActionMoveUp, []string{"k", "up"}, "Move up", "catalog"},
	{ActionMoveDown, []string{"j", "down"}, "Move down", "catalog"},
	{ActionJumpStart, []string{"g", "home"}, "First track", "catalog"},
	{ActionJumpEnd, []string{"G", "end"}, "Last track", "catalog"},
	{ActionLoad, []string{"enter"}, "Load track", "catalog"},
}

// ByContext returns key bindings filtered by context.
func ByContext(context string) []Binding {
	var result []Binding
	for _, kb := range Bindings {
		if kb.Context == context {
			result = append(result, kb)
		}
	}
	return result
}

// HelpLine renders bindings as "key desc · key desc".
func HelpLine(bindings []Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, displayKey(b.Keys[0])+" "+strings.ToLower(b.Description))
	}
	return strings.Join(parts, " · ")
}

func displayKey(k string) string {
	if k == " " {
		return "space"
	}
	return k
}
