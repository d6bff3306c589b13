package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/yourusername/testcenter-api/internal/domain/entity"
)

// EmailService отправляет транзакционные письма.
type EmailService interface {
	SendQuizInvitation(toEmail string, session *entity.QuizSession) error
}

// NoopEmailService используется, когда отправка почты отключена.
type NoopEmailService struct{}

func (s *NoopEmailService) SendQuizInvitation(toEmail string, session *entity.QuizSession) error {
	log.Printf("[EmailService] noop quiz invitation to=%s session=%d", toEmail, session.ID)
	return nil
}

// ResendEmailService отправляет письма через Resend REST API.
type ResendEmailService struct {
	from   string
	client *resend.Client
}

func NewResendEmailService(apiKey, from string) (*ResendEmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendEmailService{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

func (s *ResendEmailService) SendQuizInvitation(toEmail string, session *entity.QuizSession) error {
	if toEmail == "" {
		return fmt.Errorf("toEmail is required")
	}

	starts := session.StartsAt.Format("02.01.2006 15:04")
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: "Приглашение на зачёт",
		Text: fmt.Sprintf("Вы зачислены на зачёт №%d. Начало: %s. Лимит времени: %d мин.",
			session.ID, starts, session.TimeLimitMinutes),
		Html: fmt.Sprintf("<p>Вы зачислены на зачёт <strong>№%d</strong>.</p><p>Начало: %s. Лимит времени: %d мин.</p>",
			session.ID, starts, session.TimeLimitMinutes),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := s.client.Emails.SendWithContext(ctx, params)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}
