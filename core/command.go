package core

// CommandHandler handles one decoded command. payload holds exactly
// PayloadLen bytes. Handlers write their own response frames.
type CommandHandler func(payload []byte) error

// Command describes one single-byte command tag
type Command struct {
	Tag          byte
	Name         string
	PayloadLen   int
	RequiresInit bool // rejected before the initialize command
	Handler      CommandHandler
}

// CommandRegistry maps command tags to handlers
type CommandRegistry struct {
	commands   map[byte]*Command
	order      []byte
	dictionary string // Human readable command list
}

// NewCommandRegistry creates an empty command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[byte]*Command),
	}
}

// Register adds a command. Registering a tag twice replaces the handler.
func (r *CommandRegistry) Register(tag byte, name string, payloadLen int, requiresInit bool, handler CommandHandler) {
	if _, exists := r.commands[tag]; !exists {
		r.order = append(r.order, tag)
	}

	r.commands[tag] = &Command{
		Tag:          tag,
		Name:         name,
		PayloadLen:   payloadLen,
		RequiresInit: requiresInit,
		Handler:      handler,
	}

	r.rebuildDictionary()
}

// GetCommand retrieves a command by tag
func (r *CommandRegistry) GetCommand(tag byte) (*Command, bool) {
	cmd, ok := r.commands[tag]
	return cmd, ok
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	return len(r.commands)
}

// Dispatch calls the handler registered for tag
func (r *CommandRegistry) Dispatch(tag byte, payload []byte) error {
	cmd, ok := r.GetCommand(tag)
	if !ok {
		return ErrUnknownCommand
	}

	return cmd.Handler(payload)
}

// GetDictionary returns one line per command in registration order
func (r *CommandRegistry) GetDictionary() string {
	return r.dictionary
}

func (r *CommandRegistry) rebuildDictionary() {
	dict := ""
	for _, tag := range r.order {
		cmd := r.commands[tag]
		dict += string(rune(cmd.Tag)) + " " + cmd.Name + " len=" + itoa(cmd.PayloadLen) + "\n"
	}
	r.dictionary = dict
}
