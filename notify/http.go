package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HTTPProvider posts jobs to an Expo style push endpoint.
type HTTPProvider struct {
	URL   string
	Token string
}

type pushMessage struct {
	To    string  `json:"to"`
	Title string  `json:"title"`
	Body  string  `json:"body"`
	Sound string  `json:"sound,omitempty"`
	Data  Payload `json:"data"`
}

type pushTicket struct {
	Data struct {
		Status  string `json:"status"`
		ID      string `json:"id"`
		Message string `json:"message"`
	} `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func NewHTTPProvider(url, token string) *HTTPProvider {
	return &HTTPProvider{URL: url, Token: token}
}

func (p *HTTPProvider) Send(ctx context.Context, job Job) error {
	if job.DeviceToken == "" {
		return errors.New("empty device token")
	}

	timeout := 5 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return ctx.Err()
		}
	}

	agent := fiber.Post(p.URL).
		JSON(pushMessage{
			To:    job.DeviceToken,
			Title: job.Title,
			Body:  job.Body,
			Sound: "default",
			Data:  job.Payload,
		}).
		Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON).
		Timeout(timeout)
	if p.Token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+p.Token)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("push request: %w", errors.Join(errs...))
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return fmt.Errorf("push request: unexpected status %d", code)
	}

	var ticket pushTicket
	if err := json.Unmarshal(body, &ticket); err != nil {
		return fmt.Errorf("push response: %w", err)
	}
	if len(ticket.Errors) > 0 {
		return fmt.Errorf("push rejected: %s: %s", ticket.Errors[0].Code, ticket.Errors[0].Message)
	}
	if ticket.Data.Status == "error" {
		return fmt.Errorf("push rejected: %s", ticket.Data.Message)
	}
	return nil
}
