package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/roundbuy/notification-api/pkg/push"
)

// maxTokensPerCall is FCM's limit for one multicast request.
const maxTokensPerCall = 500

type Config struct {
	ProjectID       string
	CredentialsFile string
}

// messageSender is the slice of *messaging.Client the gateway uses.
type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type Gateway struct {
	client messageSender
}

func NewGateway(ctx context.Context, cfg Config) (*Gateway, error) {
	opts := []option.ClientOption{}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize messaging client: %w", err)
	}

	return &Gateway{client: client}, nil
}

func (g *Gateway) SendOne(ctx context.Context, token string, payload *push.Payload) (*push.Result, error) {
	msg := &messaging.Message{
		Token:        token,
		Notification: toNotification(payload),
		Data:         payload.Data,
	}

	id, err := g.client.Send(ctx, msg)
	if err != nil {
		return &push.Result{
			Token:   token,
			Invalid: isInvalidToken(err),
			Err:     err,
		}, nil
	}

	return &push.Result{Token: token, Success: true, MessageID: id}, nil
}

// SendBatch chunks tokens to the provider limit and aggregates results. A
// transport failure on one chunk marks that chunk's tokens failed and moves
// on to the next chunk.
func (g *Gateway) SendBatch(ctx context.Context, tokens []string, payload *push.Payload) (*push.BatchResult, error) {
	out := &push.BatchResult{}

	for _, chunk := range push.ChunkTokens(tokens, maxTokensPerCall) {
		msg := &messaging.MulticastMessage{
			Tokens:       chunk,
			Notification: toNotification(payload),
			Data:         payload.Data,
		}

		resp, err := g.client.SendEachForMulticast(ctx, msg)
		if err != nil {
			out.FailedCount += len(chunk)
			for _, token := range chunk {
				out.Results = append(out.Results, push.Result{Token: token, Err: err})
			}
			continue
		}

		for i, r := range resp.Responses {
			token := chunk[i]
			if r.Success {
				out.SentCount++
				out.Results = append(out.Results, push.Result{
					Token:     token,
					Success:   true,
					MessageID: r.MessageID,
				})
				continue
			}

			out.FailedCount++
			invalid := isInvalidToken(r.Error)
			if invalid {
				out.InvalidTokens = append(out.InvalidTokens, token)
			}
			out.Results = append(out.Results, push.Result{
				Token:   token,
				Invalid: invalid,
				Err:     r.Error,
			})
		}
	}

	return out, nil
}

func toNotification(payload *push.Payload) *messaging.Notification {
	return &messaging.Notification{
		Title:    payload.Title,
		Body:     payload.Body,
		ImageURL: payload.ImageURL,
	}
}

// isInvalidToken classifies the provider errors that mean the registration is
// gone for good, as opposed to transient delivery failures.
func isInvalidToken(err error) bool {
	if err == nil {
		return false
	}
	return messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err)
}
