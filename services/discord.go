package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"cropadvisor/models"

	"github.com/bwmarrin/discordgo"
)

// DefaultDiscordPrefix is used when no command prefix is configured
const DefaultDiscordPrefix = "!crop "

const (
	discordMessageLimit = 2000
	discordChunkSize    = 1900
	discordTurnTimeout  = 30 * time.Second
)

// DiscordService relays Discord channel messages into the chatbot
type DiscordService struct {
	session       *discordgo.Session
	chatbot       *Chatbot
	commandPrefix string
	language      models.Language
	enabled       bool
	startTime     time.Time
}

// NewDiscordService creates a new Discord service instance. An empty token
// leaves the service disabled.
func NewDiscordService(token, commandPrefix, language string, chatbot *Chatbot) *DiscordService {
	if commandPrefix == "" {
		commandPrefix = DefaultDiscordPrefix
	}

	service := &DiscordService{
		chatbot:       chatbot,
		commandPrefix: commandPrefix,
		language:      MatchLanguage(language),
		enabled:       false,
		startTime:     time.Now(),
	}

	if token == "" {
		log.Printf("Discord bot disabled: DISCORD_BOT_TOKEN not set")
		return service
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		log.Printf("Error creating Discord session: %v", err)
		return service
	}

	service.session = session

	session.AddHandler(func(s *discordgo.Session, event *discordgo.Ready) {
		log.Printf("Discord: online as %s in %d servers", event.User.Username, len(event.Guilds))
	})
	session.AddHandler(service.messageCreate)
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	service.enabled = true
	log.Printf("Discord service initialized with prefix: %q", commandPrefix)

	return service
}

// Start opens the gateway connection
func (d *DiscordService) Start() error {
	if !d.enabled {
		return errors.New("discord service not enabled (missing bot token)")
	}

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("error opening Discord connection: %w", err)
	}

	log.Printf("Discord bot started. Use '%s<message>' in Discord", d.commandPrefix)
	return nil
}

// Stop closes the Discord bot connection
func (d *DiscordService) Stop() error {
	if d.session != nil {
		return d.session.Close()
	}
	return nil
}

func (d *DiscordService) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	text, ok := d.extractCommand(m.Content)
	if !ok {
		return
	}
	sessionID := discordSessionID(m.Author.ID, m.ChannelID)

	switch strings.ToLower(text) {
	case "":
		d.sendMessage(s, m.ChannelID, fmt.Sprintf("Please provide a message after `%s`", strings.TrimSpace(d.commandPrefix)))
		return
	case "reset", "restart":
		d.chatbot.EndSession(sessionID)
		d.sendMessage(s, m.ChannelID, "Conversation reset. Say hello to start again.")
		return
	}

	if err := s.ChannelTyping(m.ChannelID); err != nil {
		log.Printf("Discord: typing indicator failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), discordTurnTimeout)
	defer cancel()

	resp, err := d.chatbot.ProcessMessage(ctx, models.ChatRequest{
		BaseRequest: models.BaseRequest{SessionID: sessionID, Timestamp: m.Timestamp},
		Message:     text,
		Language:    string(d.language),
	})
	if err != nil {
		log.Printf("Discord: chat turn for %s failed: %v", sessionID, err)
		d.sendMessage(s, m.ChannelID, discordErrorMessage(err))
		return
	}

	d.sendMessage(s, m.ChannelID, formatDiscordReply(resp))

	log.Printf("Discord chat: user %s (%s) in channel %s at stage %s",
		m.Author.Username, m.Author.ID, m.ChannelID, resp.Stage)
}

// extractCommand returns the text after the command prefix
func (d *DiscordService) extractCommand(content string) (string, bool) {
	if !strings.HasPrefix(content, d.commandPrefix) {
		return "", false
	}
	return strings.TrimSpace(content[len(d.commandPrefix):]), true
}

func discordSessionID(userID, channelID string) string {
	return fmt.Sprintf("discord_%s_%s", userID, channelID)
}

func discordErrorMessage(err error) string {
	var advErr *AdvisoryError
	if errors.As(err, &advErr) {
		return "Sorry, I couldn't finish your recommendation: " + advErr.Reason
	}
	return "Sorry, something went wrong. Please try again."
}

// formatDiscordReply renders a chat response as a single Discord message
func formatDiscordReply(resp *models.ChatResponse) string {
	var b strings.Builder
	b.WriteString(resp.Message)
	if resp.NextStep != "" {
		b.WriteString("\n\n")
		b.WriteString(resp.NextStep)
	}
	if len(resp.Options) > 0 {
		b.WriteString("\n")
		for _, opt := range resp.Options {
			b.WriteString("\n• ")
			b.WriteString(opt)
		}
	}
	for _, tip := range resp.Tips {
		b.WriteString("\n\n_Source: ")
		b.WriteString(tip.Source)
		b.WriteString("_")
	}
	return b.String()
}

// sendMessage sends a message to Discord, handling length limits
func (d *DiscordService) sendMessage(s *discordgo.Session, channelID, message string) {
	if len(message) <= discordMessageLimit {
		if _, err := s.ChannelMessageSend(channelID, message); err != nil {
			log.Printf("Error sending Discord message: %v", err)
		}
		return
	}

	chunks := splitMessage(message, discordChunkSize)
	for i, chunk := range chunks {
		if i > 0 {
			chunk = fmt.Sprintf("...continued:\n%s", chunk)
		}
		if i < len(chunks)-1 {
			chunk = chunk + "\n..."
		}

		if _, err := s.ChannelMessageSend(channelID, chunk); err != nil {
			log.Printf("Error sending Discord message chunk: %v", err)
		}

		// rate limit
		time.Sleep(200 * time.Millisecond)
	}
}

// splitMessage splits a message into chunks respecting word boundaries.
// A chunk never ends inside a multi-byte character.
func splitMessage(message string, maxLength int) []string {
	if len(message) <= maxLength {
		return []string{message}
	}

	var chunks []string
	for len(message) > maxLength {
		splitIndex := maxLength
		if spaceIndex := strings.LastIndex(message[:maxLength], " "); spaceIndex > maxLength/2 {
			splitIndex = spaceIndex
		}
		for splitIndex > 0 && !utf8.RuneStart(message[splitIndex]) {
			splitIndex--
		}
		if splitIndex == 0 {
			_, splitIndex = utf8.DecodeRuneInString(message)
		}

		chunks = append(chunks, message[:splitIndex])
		message = strings.TrimPrefix(message[splitIndex:], " ")
	}

	if len(message) > 0 {
		chunks = append(chunks, message)
	}

	return chunks
}

// IsEnabled returns whether the Discord service is enabled
func (d *DiscordService) IsEnabled() bool {
	return d.enabled
}

// GetStatus returns the current status of the Discord service
func (d *DiscordService) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"enabled":        d.enabled,
		"command_prefix": d.commandPrefix,
		"language":       d.language,
		"uptime":         time.Since(d.startTime).String(),
	}

	switch {
	case d.enabled && d.session != nil && d.session.State != nil && d.session.State.User != nil:
		status["status"] = "connected"
		status["user"] = map[string]interface{}{
			"id":       d.session.State.User.ID,
			"username": d.session.State.User.Username,
		}
		status["guilds"] = len(d.session.State.Guilds)
	case d.enabled:
		status["status"] = "initialized_not_started"
	default:
		status["status"] = "disabled"
		status["note"] = "Set DISCORD_BOT_TOKEN to enable"
	}

	return status
}
