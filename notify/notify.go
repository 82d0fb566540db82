package notify

import (
	"github.com/bwmarrin/discordgo"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"go.uber.org/zap"
)

type TelegramConf struct {
	Token  string
	ChatId int64 `json:"chatId"`
}

type DiscordConf struct {
	Token    string
	Channels []string `json:"channels"`
}

// Notifier fans a text message out to the configured chat channels. An empty
// token disables that channel; a fully unconfigured notifier is a no-op.
// Send failures are logged and dropped, never fatal to the caller.
type Notifier struct {
	sugar *zap.SugaredLogger

	tg     *tgbotapi.BotAPI
	chatId int64

	discord  *discordgo.Session
	channels []string
}

func New(tg TelegramConf, dc DiscordConf, sugar *zap.SugaredLogger) (*Notifier, error) {
	n := &Notifier{sugar: sugar}
	if tg.Token != "" {
		bot, err := tgbotapi.NewBotAPI(tg.Token)
		if err != nil {
			return nil, err
		}
		n.tg = bot
		n.chatId = tg.ChatId
		sugar.Info("Telegram bot initialized")
	}
	if dc.Token != "" {
		session, err := discordgo.New("Bot " + dc.Token)
		if err != nil {
			return nil, err
		}
		n.discord = session
		n.channels = dc.Channels
		sugar.Info("Discord session initialized")
	}
	return n, nil
}

func (n *Notifier) Send(content string) {
	if n == nil || content == "" {
		return
	}
	if n.tg != nil {
		msg := tgbotapi.NewMessage(n.chatId, content)
		if _, err := n.tg.Send(msg); err != nil {
			n.sugar.Errorf("send message error: %s", err)
		}
	}
	if n.discord != nil {
		for _, ch := range n.channels {
			if _, err := n.discord.ChannelMessageSend(ch, content); err != nil {
				n.sugar.Errorf("discord send error: %s", err)
			}
		}
	}
}
