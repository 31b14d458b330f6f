package gateway

import (
	"context"
	"fmt"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const telegramMessageLimit = 4096

type TelegramGateway struct {
	Bot             *tgbotapi.BotAPI
	Processor       QueryProcessor
	RequireApproval bool
}

func NewTelegramGateway(token string, p QueryProcessor, requireApproval bool) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login failed: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	return &TelegramGateway{
		Bot:             bot,
		Processor:       p,
		RequireApproval: requireApproval,
	}, nil
}

func (tg *TelegramGateway) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}

		log.Printf("[telegram:%s] %s", update.Message.From.UserName, update.Message.Text)

		reply := Answer(context.Background(), tg.Processor, tg.RequireApproval, update.Message.Text)
		if err := tg.Send(strconv.FormatInt(update.Message.Chat.ID, 10), reply); err != nil {
			log.Printf("Error replying on telegram: %v", err)
		}
	}
	return nil
}

func (tg *TelegramGateway) Send(chatID string, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid chat ID: %s", chatID)
	}

	for _, part := range chunk(text, telegramMessageLimit) {
		if _, err := tg.Bot.Send(tgbotapi.NewMessage(id, part)); err != nil {
			return err
		}
	}
	return nil
}

func (tg *TelegramGateway) Stop() error {
	tg.Bot.StopReceivingUpdates()
	return nil
}
