package discord

import "github.com/bwmarrin/discordgo"

// Slash command names.
const (
	commandBlend       = "blend"
	commandRandomBlend = "randomblend"
	commandQueueBlend  = "queueblend"
	commandForceBlend  = "forceblend"
	commandViewQueue   = "viewqueue"
	commandViewRandom  = "viewrandom"
	commandStatus      = "blendstatus"
)

// Option names.
const (
	optionLevel = "level"
	optionDate  = "date"
)

func levelOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        optionLevel,
		Description: description,
		Required:    true,
	}
}

// applicationCommands is the full command set, registered by bulk overwrite.
func applicationCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        commandBlend,
			Description: "Blends a level today",
			Options:     []*discordgo.ApplicationCommandOption{levelOption("Level to blend")},
		},
		{
			Name:        commandRandomBlend,
			Description: "Adds level to list of random blends",
			Options:     []*discordgo.ApplicationCommandOption{levelOption("Level to blend")},
		},
		{
			Name:        commandQueueBlend,
			Description: "Schedules level to blend on date",
			Options: []*discordgo.ApplicationCommandOption{
				levelOption("Level to blend"),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        optionDate,
					Description: "MM DD",
					Required:    true,
				},
			},
		},
		{
			Name:        commandForceBlend,
			Description: "Blends right now",
			Options:     []*discordgo.ApplicationCommandOption{levelOption("Level to blend")},
		},
		{
			Name:        commandViewQueue,
			Description: "View levels in queue",
		},
		{
			Name:        commandViewRandom,
			Description: "View levels in random",
		},
		{
			Name:        commandStatus,
			Description: "Shows what the next blend will be drawn from",
		},
	}
}

// requestFrom extracts a Request from an application command interaction.
func requestFrom(i *discordgo.Interaction) Request {
	data := i.ApplicationCommandData()

	req := Request{
		Command: data.Name,
		Options: make(map[string]string, len(data.Options)),
	}
	for _, opt := range data.Options {
		if opt.Type == discordgo.ApplicationCommandOptionString {
			req.Options[opt.Name] = opt.StringValue()
		}
	}

	// Member is nil for direct messages, which leaves Roles empty.
	if i.Member != nil {
		req.Roles = i.Member.Roles
		if i.Member.User != nil {
			req.User = i.Member.User.Username
		}
	} else if i.User != nil {
		req.User = i.User.Username
	}

	return req
}
