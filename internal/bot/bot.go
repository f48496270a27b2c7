package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/p-shah256/resume-tailor/internal/export"
	"github.com/p-shah256/resume-tailor/internal/helper"
	"github.com/p-shah256/resume-tailor/internal/jobprocessor"
	"github.com/p-shah256/resume-tailor/pkg/types"
)

const defaultMaxUpload = 10 << 20

var urlPattern = regexp.MustCompile(`https?://[^\s<>]+`)

// Pipeline is the part of the job processor the bot drives.
type Pipeline interface {
	ParseResume(ctx context.Context, filename string, pdf []byte, apiKey string) (types.ResumeData, error)
	TailorResume(ctx context.Context, resume types.ResumeData, apiKey, jobURL string) (jobprocessor.TailorResult, error)
}

type Config struct {
	Token     string
	GeminiKey string
	VLMKey    string
	MaxUpload int64
	Timeout   time.Duration
}

type session interface {
	helper.Reactor
	MessageReactionsRemoveAll(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelFileSend(channelID, name string, r io.Reader, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Bot struct {
	session  *discordgo.Session
	pipeline Pipeline
	cfg      Config
	http     *http.Client
}

func New(cfg Config, pipeline Pipeline) (*Bot, error) {
	if cfg.GeminiKey == "" || cfg.VLMKey == "" {
		return nil, errors.New("discord bot needs both a Gemini and a VLM API key")
	}
	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = defaultMaxUpload
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	bot := &Bot{
		session:  session,
		pipeline: pipeline,
		cfg:      cfg,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
	session.AddHandler(bot.onMessageCreate)
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	return bot, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("error opening Discord session: %w", err)
	}
	slog.Info("Bot is running...")
	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}
	att, jobURL, ok := request(m)
	if !ok {
		return
	}
	slog.Info("Received tailoring request", "author", m.Author.Username, "url", jobURL)
	go b.process(s, s.State.User.ID, m, att, jobURL)
}

// request picks the resume attachment and job URL out of m.
func request(m *discordgo.MessageCreate) (*discordgo.MessageAttachment, string, bool) {
	att := resumeAttachment(m.Attachments)
	jobURL := findJobURL(m.Content)
	return att, jobURL, att != nil && jobURL != ""
}

func resumeAttachment(atts []*discordgo.MessageAttachment) *discordgo.MessageAttachment {
	for _, att := range atts {
		if strings.EqualFold(filepath.Ext(att.Filename), ".pdf") {
			return att
		}
	}
	return nil
}

func findJobURL(content string) string {
	u := urlPattern.FindString(content)
	return strings.TrimRight(u, ".,;:!?)]}'\"")
}

func (b *Bot) process(s session, botUserID string, m *discordgo.MessageCreate, att *discordgo.MessageAttachment, jobURL string) {
	logger := slog.With("component", "bot", "operation", "process", "message_id", m.ID)
	start := time.Now()
	s.MessageReactionAdd(m.ChannelID, m.ID, "⏳")

	ctx := context.Background()
	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	pdf, err := helper.DownloadFile(ctx, b.http, att.URL, b.cfg.MaxUpload)
	if err != nil {
		helper.HandleError(s, m, botUserID, err)
		return
	}

	resume, err := b.pipeline.ParseResume(ctx, att.Filename, pdf, b.cfg.VLMKey)
	if err != nil {
		helper.HandleError(s, m, botUserID, err)
		return
	}

	result, err := b.pipeline.TailorResume(ctx, resume, b.cfg.GeminiKey, jobURL)
	if err != nil {
		helper.HandleError(s, m, botUserID, err)
		return
	}

	out, err := export.Render(result.Resume, export.FormatJSON)
	if err != nil {
		helper.HandleError(s, m, botUserID, fmt.Errorf("failed to encode tailored resume: %w", err))
		return
	}
	if _, err := s.ChannelFileSend(m.ChannelID, export.FormatJSON.Filename(), bytes.NewReader(out)); err != nil {
		helper.HandleError(s, m, botUserID, fmt.Errorf("failed to send tailored resume: %w", err))
		return
	}

	s.MessageReactionsRemoveAll(m.ChannelID, m.ID)
	s.MessageReactionAdd(m.ChannelID, m.ID, "✅")
	logger.Info("Done processing!", "duration_ms", time.Since(start).Milliseconds())
}
