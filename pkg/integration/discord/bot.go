package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/gophertribe/voxnote/pkg/session"
)

// Bot wraps the Discord session and dependencies. Audio attachments are fed
// through the processing pipeline; each channel gets its own session.
type Bot struct {
	Session   *discordgo.Session
	Processor *session.Processor
	Sessions  *session.Manager

	mu       sync.Mutex
	channels map[string]string // channel ID -> session ID
}

// NewBot creates a new Discord bot
func NewBot(token string, processor *session.Processor, sessions *session.Manager) (*Bot, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	bot := &Bot{
		Session:   dg,
		Processor: processor,
		Sessions:  sessions,
		channels:  make(map[string]string),
	}

	dg.AddHandler(bot.messageCreate)

	return bot, nil
}

// Start opens the websocket connection
func (b *Bot) Start() error {
	return b.Session.Open()
}

// Stop closes the websocket connection
func (b *Bot) Stop() error {
	return b.Session.Close()
}

func (b *Bot) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore messages from self
	if m.Author.ID == s.State.User.ID {
		return
	}

	if att := audioAttachment(m.Attachments); att != nil {
		b.handleRecording(s, m, att)
		return
	}

	switch m.Content {
	case "!reset":
		b.sessionFor(m.ChannelID).Reset()
		s.ChannelMessageSend(m.ChannelID, "Session cleared. Next recording starts fresh.")
	case "!status":
		snap := b.sessionFor(m.ChannelID).Snapshot()
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Session %s: %d recordings, %d tasks, %d events, %d notes",
			snap.State, snap.Recordings, len(snap.Extraction.Tasks), len(snap.Extraction.Events), len(snap.Extraction.Notes)))
	}
}

func (b *Bot) handleRecording(s *discordgo.Session, m *discordgo.MessageCreate, att *discordgo.MessageAttachment) {
	sess := b.sessionFor(m.ChannelID)
	audio := session.Audio{URL: att.URL, MimeType: att.ContentType}

	out, err := b.Processor.ProcessStructured(context.Background(), sess, audio, nil)
	if err != nil {
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Processing failed: %v", err))
		return
	}

	reply := fmt.Sprintf("Heard: %q\nNow tracking %d tasks, %d events, %d notes.",
		out.Transcript, len(out.Extraction.Tasks), len(out.Extraction.Events), len(out.Extraction.Notes))
	if out.UsedFallback {
		reply += "\n(AI unavailable, used basic extraction)"
	}
	s.ChannelMessageSend(m.ChannelID, reply)
}

// sessionFor returns the channel's session, creating one on first use.
func (b *Bot) sessionFor(channelID string) *session.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id, ok := b.channels[channelID]; ok {
		if sess, ok := b.Sessions.Get(id); ok {
			return sess
		}
	}
	sess := b.Sessions.Create(session.ModeStructured)
	b.channels[channelID] = sess.ID()
	return sess
}

// audioAttachment returns the first attachment carrying audio, if any.
func audioAttachment(atts []*discordgo.MessageAttachment) *discordgo.MessageAttachment {
	for _, att := range atts {
		if strings.HasPrefix(att.ContentType, "audio/") || strings.HasPrefix(att.ContentType, "video/ogg") {
			return att
		}
	}
	return nil
}
