package gateway

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

const discordMessageLimit = 2000

type DiscordGateway struct {
	Session         *discordgo.Session
	Processor       QueryProcessor
	RequireApproval bool
}

func NewDiscordGateway(token string, p QueryProcessor, requireApproval bool) (*DiscordGateway, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session failed: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	dg := &DiscordGateway{
		Session:         session,
		Processor:       p,
		RequireApproval: requireApproval,
	}
	session.AddHandler(dg.onMessage)
	return dg, nil
}

// Start opens the websocket. Messages are handled on discordgo's goroutines.
func (dg *DiscordGateway) Start() error {
	if err := dg.Session.Open(); err != nil {
		return fmt.Errorf("discord connect failed: %w", err)
	}
	log.Printf("Discord connected as %s", dg.Session.State.User.Username)
	return nil
}

func (dg *DiscordGateway) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	log.Printf("[discord:%s] %s", m.Author.Username, m.Content)

	reply := Answer(context.Background(), dg.Processor, dg.RequireApproval, m.Content)
	if err := dg.Send(m.ChannelID, reply); err != nil {
		log.Printf("Error replying on discord: %v", err)
	}
}

func (dg *DiscordGateway) Send(chatID string, text string) error {
	if chatID == "" {
		return fmt.Errorf("invalid channel ID")
	}
	for _, part := range chunk(text, discordMessageLimit) {
		if _, err := dg.Session.ChannelMessageSend(chatID, part); err != nil {
			return err
		}
	}
	return nil
}

func (dg *DiscordGateway) Stop() error {
	return dg.Session.Close()
}
