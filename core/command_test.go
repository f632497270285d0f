package core

import "testing"

func TestCommandRegistry(t *testing.T) {
	registry := NewCommandRegistry()

	var got []byte
	handler := func(payload []byte) error {
		got = payload
		return nil
	}

	registry.Register('X', "test_command", 2, true, handler)

	cmd, ok := registry.GetCommand('X')
	if !ok {
		t.Fatal("Failed to retrieve registered command")
	}
	if cmd.Name != "test_command" || cmd.PayloadLen != 2 || !cmd.RequiresInit {
		t.Errorf("unexpected command %+v", cmd)
	}

	if err := registry.Dispatch('X', []byte{1, 2}); err != nil {
		t.Errorf("Dispatch failed: %v", err)
	}
	if len(got) != 2 || got[1] != 2 {
		t.Errorf("handler got payload %v", got)
	}

	if err := registry.Dispatch('?', nil); err != ErrUnknownCommand {
		t.Errorf("Dispatch of unknown tag = %v, want ErrUnknownCommand", err)
	}
}

func TestCommandRegistryReplace(t *testing.T) {
	registry := NewCommandRegistry()

	registry.Register('A', "first", 0, false, func([]byte) error { return nil })
	registry.Register('B', "second", 4, true, func([]byte) error { return nil })
	registry.Register('A', "first_v2", 1, false, func([]byte) error { return ErrCommandTimeout })

	if registry.Count() != 2 {
		t.Errorf("Expected 2 commands, got %d", registry.Count())
	}
	if err := registry.Dispatch('A', []byte{0}); err != ErrCommandTimeout {
		t.Errorf("replacement handler not used: %v", err)
	}

	want := "A first_v2 len=1\nB second len=4\n"
	if got := registry.GetDictionary(); got != want {
		t.Errorf("GetDictionary() = %q, want %q", got, want)
	}
}
