package listener

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"chat-gateway/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRelay struct {
	mock.Mock
}

func (m *mockRelay) Publish(topic, event string, payload any) (int, error) {
	args := m.Called(topic, event, payload)
	return args.Int(0), args.Error(1)
}

func TestTopicRelaysUntilChannelCloses(t *testing.T) {
	relay := new(mockRelay)
	relay.On("Publish", "forum-3", "new_post", map[string]any{"id": float64(9)}).Return(2, nil).Once()
	relay.On("Publish", "", "new_post", nil).Return(0, errors.New("topic is required")).Once()

	channel := make(chan event.EventChannelData, 3)
	channel <- event.EventChannelData{Action: "new_post", Data: []byte(`{"topic":"forum-3","payload":{"id":9}}`)}
	channel <- event.EventChannelData{Action: "new_post", Data: []byte(`not json`)}
	channel <- event.EventChannelData{Action: "new_post", Data: []byte(`{}`)}
	close(channel)

	Topic(channel, relay, slog.New(slog.NewTextHandler(io.Discard, nil)))

	relay.AssertExpectations(t)
	assert.Len(t, relay.Calls, 2)
}
