package tui

import (
	"slices"
	"testing"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// TestKeyMapHelpCoversBindings verifies every binding appears in full help exactly once.
func TestKeyMapHelpCoversBindings(t *testing.T) {
	k := newKeyMap()
	seen := map[string]int{}
	for _, group := range k.FullHelp() {
		for _, binding := range group {
			seen[binding.Help().Desc]++
		}
	}
	for _, desc := range []string{"grab card", "grab column", "drop", "cancel", "card info", "copy path", "hide column", "show hidden", "group by", "refresh", "quit"} {
		if seen[desc] != 1 {
			t.Fatalf("expected %q once in full help, got %d", desc, seen[desc])
		}
	}
	if len(k.ShortHelp()) == 0 {
		t.Fatal("expected short help bindings")
	}
}

// TestKeyMapMatchesBoardKeys verifies the board keys resolve to the expected bindings.
func TestKeyMapMatchesBoardKeys(t *testing.T) {
	k := newKeyMap()
	cases := []struct {
		name    string
		msg     tea.KeyPressMsg
		binding key.Binding
	}{
		{name: "space grabs", msg: tea.KeyPressMsg{Code: ' ', Text: " "}, binding: k.grabCard},
		{name: "m grabs column", msg: tea.KeyPressMsg{Code: 'm', Text: "m"}, binding: k.grabColumn},
		{name: "enter drops", msg: tea.KeyPressMsg{Code: tea.KeyEnter}, binding: k.drop},
		{name: "enter opens", msg: tea.KeyPressMsg{Code: tea.KeyEnter}, binding: k.cardInfo},
		{name: "esc cancels", msg: tea.KeyPressMsg{Code: tea.KeyEscape}, binding: k.cancel},
		{name: "arrow hovers", msg: tea.KeyPressMsg{Code: tea.KeyRight}, binding: k.moveRight},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !key.Matches(tc.msg, tc.binding) {
				t.Fatalf("expected %q to match %v", tc.msg.String(), tc.binding.Keys())
			}
		})
	}
}

// TestDragKeyMapRelabelsHover verifies drag help describes hovering without touching the base map.
func TestDragKeyMapRelabelsHover(t *testing.T) {
	k := newKeyMap()
	descs := []string{}
	for _, binding := range (dragKeyMap{keys: k}).ShortHelp() {
		descs = append(descs, binding.Help().Desc)
	}
	if !slices.Equal(descs, []string{"hover left", "hover right", "drop", "cancel"}) {
		t.Fatalf("unexpected drag help %v", descs)
	}
	if k.moveLeft.Help().Desc != "column left" {
		t.Fatalf("expected base binding unchanged, got %q", k.moveLeft.Help().Desc)
	}
}
