package fcm

import (
	"context"
	"fmt"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roundbuy/notification-api/pkg/push"
)

type fakeSender struct {
	multicastCalls []*messaging.MulticastMessage
	// failChunks holds zero-based call indexes that should fail at the
	// transport level.
	failChunks map[int]error
	respond    func(msg *messaging.MulticastMessage) *messaging.BatchResponse
}

func (f *fakeSender) Send(ctx context.Context, msg *messaging.Message) (string, error) {
	return "msg-1", nil
}

func (f *fakeSender) SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	call := len(f.multicastCalls)
	f.multicastCalls = append(f.multicastCalls, msg)
	if err, ok := f.failChunks[call]; ok {
		return nil, err
	}
	if f.respond != nil {
		return f.respond(msg), nil
	}
	return allSuccess(msg), nil
}

func allSuccess(msg *messaging.MulticastMessage) *messaging.BatchResponse {
	resp := &messaging.BatchResponse{SuccessCount: len(msg.Tokens)}
	for i := range msg.Tokens {
		resp.Responses = append(resp.Responses, &messaging.SendResponse{
			Success:   true,
			MessageID: fmt.Sprintf("msg-%d", i),
		})
	}
	return resp
}

func tokens(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("token-%d", i)
	}
	return out
}

func TestSendBatchChunksAtProviderLimit(t *testing.T) {
	sender := &fakeSender{}
	g := &Gateway{client: sender}

	result, err := g.SendBatch(context.Background(), tokens(501), &push.Payload{Title: "Sale", Body: "50% off"})

	require.NoError(t, err)
	require.Len(t, sender.multicastCalls, 2)
	assert.Len(t, sender.multicastCalls[0].Tokens, 500)
	assert.Len(t, sender.multicastCalls[1].Tokens, 1)
	assert.Equal(t, 501, result.SentCount)
	assert.Zero(t, result.FailedCount)
}

func TestSendBatchChunkFailureDoesNotAbortSiblings(t *testing.T) {
	sender := &fakeSender{failChunks: map[int]error{0: fmt.Errorf("transport down")}}
	g := &Gateway{client: sender}

	result, err := g.SendBatch(context.Background(), tokens(501), &push.Payload{Title: "Sale", Body: "50% off"})

	require.NoError(t, err)
	require.Len(t, sender.multicastCalls, 2)
	assert.Equal(t, 500, result.FailedCount)
	assert.Equal(t, 1, result.SentCount)
}

func TestSendBatchMapsPerTokenFailures(t *testing.T) {
	sender := &fakeSender{
		respond: func(msg *messaging.MulticastMessage) *messaging.BatchResponse {
			resp := &messaging.BatchResponse{}
			for i := range msg.Tokens {
				r := &messaging.SendResponse{Success: true, MessageID: fmt.Sprintf("msg-%d", i)}
				if i == 1 {
					r = &messaging.SendResponse{Error: fmt.Errorf("delivery failed")}
				}
				resp.Responses = append(resp.Responses, r)
			}
			return resp
		},
	}
	g := &Gateway{client: sender}

	result, err := g.SendBatch(context.Background(), tokens(3), &push.Payload{Title: "Hi", Body: "There"})

	require.NoError(t, err)
	assert.Equal(t, 2, result.SentCount)
	assert.Equal(t, 1, result.FailedCount)
	// A transient delivery failure is not an invalid registration.
	assert.Empty(t, result.InvalidTokens)
	require.Len(t, result.Results, 3)
	assert.Equal(t, "token-1", result.Results[1].Token)
	assert.False(t, result.Results[1].Success)
}

func TestSendOne(t *testing.T) {
	g := &Gateway{client: &fakeSender{}}

	result, err := g.SendOne(context.Background(), "token-0", &push.Payload{Title: "Hi", Body: "There"})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "msg-1", result.MessageID)
}

func TestIsInvalidTokenNilError(t *testing.T) {
	assert.False(t, isInvalidToken(nil))
}
