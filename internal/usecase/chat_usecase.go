package usecase

import (
	"context"
	"errors"
	"strings"

	"tutorinminutes-backend/internal/chatwidget"
	"tutorinminutes-backend/internal/delivery/dto"

	"github.com/sirupsen/logrus"
)

var ErrEmptyChatMessage = errors.New("message is empty")

type ChatUsecase interface {
	Reply(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
}

type chatUsecase struct {
	log   *logrus.Logger
	agent chatwidget.Agent
}

func NewChatUsecase(log *logrus.Logger, agent chatwidget.Agent) ChatUsecase {
	return &chatUsecase{log: log, agent: agent}
}

// Reply forwards one message to the support agent. Agent failures are not
// errors: the caller gets the fallback text with Fallback set.
func (u *chatUsecase) Reply(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, ErrEmptyChatMessage
	}

	reply, err := u.agent.Reply(ctx, text)
	if err != nil {
		u.log.Warnf("Failed to reach support agent: %+v", err)
		return &dto.ChatResponse{Reply: chatwidget.FallbackMessage, Fallback: true}, nil
	}
	return &dto.ChatResponse{Reply: reply}, nil
}
