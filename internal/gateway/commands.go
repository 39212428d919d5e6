package gateway

// SlashCommand describes one registered bot command for /help output and for
// command registration with the chat platform.
type SlashCommand struct {
	Name        string
	Description string
	AdminOnly   bool
}

func SlashCommands() []SlashCommand {
	return []SlashCommand{
		{Name: "start", Description: "introduce yourself and confirm your record"},
		{Name: "menu", Description: "open the concierge menu"},
		{Name: "breakfast", Description: "morning plan template"},
		{Name: "lunch", Description: "interim report template"},
		{Name: "dinner", Description: "end of day report template"},
		{Name: "help", Description: "list available commands"},
		{Name: "broadcast", Description: "send a message to every registered user", AdminOnly: true},
		{Name: "broadcast_city", Description: "send a message to one city", AdminOnly: true},
		{Name: "broadcast_team", Description: "send a message to one team", AdminOnly: true},
	}
}

// PublicCommands filters out the admin family, for platform-side command
// menus visible to everyone.
func PublicCommands() []SlashCommand {
	all := SlashCommands()
	public := make([]SlashCommand, 0, len(all))
	for _, command := range all {
		if !command.AdminOnly {
			public = append(public, command)
		}
	}
	return public
}
