package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gophertribe/voxnote/pkg/session"
)

// Bot wraps the Telegram bot API and dependencies. Voice and audio messages
// are fed through the processing pipeline; each chat gets its own session so
// consecutive recordings merge into one state.
type Bot struct {
	API       *tgbotapi.BotAPI
	Processor *session.Processor
	Sessions  *session.Manager

	mu       sync.Mutex
	chats    map[int64]string // chat ID -> session ID
	stopCh   chan struct{}
}

// NewBot creates a new Telegram bot
func NewBot(token string, processor *session.Processor, sessions *session.Manager) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("error creating Telegram bot: %w", err)
	}

	return &Bot{
		API:       api,
		Processor: processor,
		Sessions:  sessions,
		chats:     make(map[int64]string),
		stopCh:    make(chan struct{}),
	}, nil
}

// Start begins polling for updates in a goroutine
func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.API.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-b.stopCh:
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil {
					b.handleMessage(update.Message)
				}
			}
		}
	}()

	return nil
}

// Stop stops polling for updates
func (b *Bot) Stop() {
	close(b.stopCh)
	b.API.StopReceivingUpdates()
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	switch {
	case msg.Voice != nil:
		b.handleRecording(msg, msg.Voice.FileID, msg.Voice.MimeType)
	case msg.Audio != nil:
		b.handleRecording(msg, msg.Audio.FileID, msg.Audio.MimeType)
	case msg.Text == "/reset":
		b.handleReset(msg)
	case msg.Text == "/status":
		b.handleStatus(msg)
	}
}

func (b *Bot) handleRecording(msg *tgbotapi.Message, fileID, mimeType string) {
	fileURL, err := b.API.GetFileDirectURL(fileID)
	if err != nil {
		b.reply(msg, fmt.Sprintf("Could not fetch recording: %v", err))
		return
	}

	sess := b.sessionFor(msg.Chat.ID)
	audio := session.Audio{URL: fileURL, MimeType: mimeType}

	out, err := b.Processor.ProcessStructured(context.Background(), sess, audio, nil)
	if err != nil {
		b.reply(msg, fmt.Sprintf("Processing failed: %v", err))
		return
	}

	b.reply(msg, formatOutcome(out))
}

func (b *Bot) handleReset(msg *tgbotapi.Message) {
	b.sessionFor(msg.Chat.ID).Reset()
	b.reply(msg, "Session cleared. Next recording starts fresh.")
}

func (b *Bot) handleStatus(msg *tgbotapi.Message) {
	snap := b.sessionFor(msg.Chat.ID).Snapshot()
	b.reply(msg, fmt.Sprintf("Session %s: %d recordings, %d tasks, %d events, %d notes",
		snap.State, snap.Recordings, len(snap.Extraction.Tasks), len(snap.Extraction.Events), len(snap.Extraction.Notes)))
}

// sessionFor returns the chat's session, creating one on first use.
func (b *Bot) sessionFor(chatID int64) *session.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id, ok := b.chats[chatID]; ok {
		if sess, ok := b.Sessions.Get(id); ok {
			return sess
		}
	}
	sess := b.Sessions.Create(session.ModeStructured)
	b.chats[chatID] = sess.ID()
	return sess
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	if _, err := b.API.Send(reply); err != nil {
		log.Printf("Failed to send Telegram reply: %v", err)
	}
}

// formatOutcome renders a processed recording as a chat reply.
func formatOutcome(out *session.Outcome) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Heard: %q\n", out.Transcript)
	fmt.Fprintf(&sb, "Now tracking %d tasks, %d events, %d notes.",
		len(out.Extraction.Tasks), len(out.Extraction.Events), len(out.Extraction.Notes))
	if out.UsedFallback {
		sb.WriteString("\n(AI unavailable, used basic extraction)")
	}
	for _, link := range out.CalendarLinks {
		sb.WriteString("\n" + link)
	}
	return sb.String()
}
