package router

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chat-gateway/database"
	"chat-gateway/gateway"
	"chat-gateway/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordingConn struct {
	id string

	mu     sync.Mutex
	events []string
}

func (c *recordingConn) ID() string { return c.id }

func (c *recordingConn) Emit(event string, _ any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *recordingConn) count(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e == event {
			n++
		}
	}
	return n
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

type socketFixture struct {
	gw    *gateway.Gateway
	alice *socketHandler
	bob   *socketHandler
	aConn *recordingConn
	bConn *recordingConn
}

func newSocketFixture(t *testing.T) *socketFixture {
	t.Helper()

	db := setupTestDB(t)
	alice := &model.User{Username: "alice", DisplayName: "Alice"}
	bob := &model.User{Username: "bob", DisplayName: "Bob"}
	require.NoError(t, db.Create(alice).Error)
	require.NoError(t, db.Create(bob).Error)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := gateway.New(database.NewStore(db, nil), nil, log, gateway.Options{})

	f := &socketFixture{gw: gw, aConn: &recordingConn{id: "a"}, bConn: &recordingConn{id: "b"}}
	f.alice = newSocketHandler(gw, gateway.NewSession(f.aConn, &gateway.Identity{ID: alice.ID, Name: "Alice"}), log)
	f.bob = newSocketHandler(gw, gateway.NewSession(f.bConn, &gateway.Identity{ID: bob.ID, Name: "Bob"}), log)
	t.Cleanup(f.alice.close)
	t.Cleanup(f.bob.close)
	return f
}

// call runs an action the way a Socket.IO event with an ack would.
func call(h *socketHandler, run action, args ...any) Response {
	var response Response
	ack := func(data []any, _ error) { response = data[0].(Response) }
	h.handle(run)(append(args, ack)...)
	return response
}

func TestSocketChatFlow(t *testing.T) {
	f := newSocketFixture(t)
	bobID := float64(f.bob.session.Identity.ID)
	aliceID := float64(f.alice.session.Identity.ID)

	opened := call(f.alice, f.alice.openChat, bobID)
	require.Equal(t, "success", opened.Status, opened.Message)
	chat := opened.Data.(map[string]any)["chat"].(*model.Chat)

	reopened := call(f.bob, f.bob.openChat, map[string]any{"userId": aliceID})
	require.Equal(t, "success", reopened.Status)
	assert.Equal(t, chat.ID, reopened.Data.(map[string]any)["chat"].(*model.Chat).ID)

	sent := call(f.alice, f.alice.sendMessage, map[string]any{"chatId": float64(chat.ID), "body": "Hello"})
	require.Equal(t, "success", sent.Status, sent.Message)
	message := sent.Data.(map[string]any)["message"].(*model.ChatMessage)
	assert.Equal(t, "Hello", message.Body)
	assert.False(t, message.Read)
	assert.Equal(t, 1, f.bConn.count(gateway.EventNewMessage))
	assert.Equal(t, 1, f.aConn.count(gateway.EventNewMessage))

	read := call(f.bob, f.bob.markRead, float64(chat.ID))
	require.Equal(t, "success", read.Status)
	assert.Equal(t, int64(1), read.Data.(map[string]any)["updated"])
	assert.Equal(t, 1, f.aConn.count(gateway.EventMessagesRead))

	history := call(f.bob, f.bob.fetchMessages, map[string]any{"chatId": fmt.Sprint(chat.ID), "limit": float64(10)})
	require.Equal(t, "success", history.Status)
	messages := history.Data.([]model.ChatMessage)
	require.Len(t, messages, 1)
	assert.True(t, messages[0].Read)
}

func TestSocketErrorsComeBackInAck(t *testing.T) {
	f := newSocketFixture(t)

	self := call(f.alice, f.alice.openChat, float64(f.alice.session.Identity.ID))
	assert.Equal(t, "error", self.Status)
	assert.Equal(t, gateway.CodeValidation, self.Code)

	missing := call(f.alice, f.alice.sendMessage, float64(404), "hi")
	assert.Equal(t, "error", missing.Status)
	assert.Equal(t, gateway.CodeNotFound, missing.Code)

	noArgs := call(f.alice, f.alice.joinChat)
	assert.Equal(t, gateway.CodeValidation, noArgs.Code)

	badRoom := call(f.alice, f.alice.joinChat, "lobby")
	assert.Equal(t, gateway.CodeValidation, badRoom.Code)
}

func TestSocketTopicRooms(t *testing.T) {
	f := newSocketFixture(t)

	joined := call(f.alice, f.alice.joinChat, "topic:forum-1")
	require.Equal(t, "success", joined.Status)

	delivered, err := f.gw.Publish("forum-1", "new_post", map[string]any{"id": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, f.aConn.count("new_post"))

	left := call(f.alice, f.alice.leaveRoom, map[string]any{"room": "topic:forum-1"})
	require.Equal(t, "success", left.Status)
	assert.Empty(t, f.gw.Rooms().RoomsOf(f.aConn))
}

func TestSocketNonMemberCannotJoinChat(t *testing.T) {
	f := newSocketFixture(t)
	chat, err := f.gw.Resolve(context.Background(), f.bob.session.Identity.ID, 9999)
	require.NoError(t, err)

	denied := call(f.alice, f.alice.joinChat, float64(chat.ID))
	assert.Equal(t, gateway.CodeNotAMember, denied.Code)
}

func TestHandleWithoutAck(t *testing.T) {
	f := newSocketFixture(t)
	assert.NotPanics(t, func() {
		f.alice.handle(f.alice.markRead)(float64(1))
	})
}

func TestDispatchRunsConnectionEventsOneAtATimeInOrder(t *testing.T) {
	f := newSocketFixture(t)
	h := f.alice

	var (
		mu       sync.Mutex
		order    []string
		inFlight atomic.Int32
		overlap  atomic.Bool
	)
	record := func(name string, pause time.Duration) action {
		return func(context.Context, []any) (any, error) {
			if inFlight.Add(1) > 1 {
				overlap.Store(true)
			}
			defer inFlight.Add(-1)

			time.Sleep(pause)
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return name, nil
		}
	}
	h.actions["slow"] = record("slow", 50*time.Millisecond)
	h.actions["quick"] = record("quick", 0)

	acks := make(chan string, 4)
	ack := func(data []any, _ error) { acks <- data[0].(Response).Data.(string) }

	h.dispatch("slow", ack)
	h.dispatch("quick", ack)
	h.dispatch("slow", ack)
	h.dispatch("quick", ack)

	for _, want := range []string{"slow", "quick", "slow", "quick"} {
		select {
		case got := <-acks:
			assert.Equal(t, want, got)
		case <-time.After(5 * time.Second):
			t.Fatal("event was not acknowledged")
		}
	}
	assert.False(t, overlap.Load(), "two events of one connection overlapped")
	mu.Lock()
	assert.Equal(t, []string{"slow", "quick", "slow", "quick"}, order)
	mu.Unlock()
}

func TestDispatchedMessagesAreStoredInSendOrder(t *testing.T) {
	f := newSocketFixture(t)
	opened := call(f.alice, f.alice.openChat, float64(f.bob.session.Identity.ID))
	require.Equal(t, "success", opened.Status, opened.Message)
	chatID := float64(opened.Data.(map[string]any)["chat"].(*model.Chat).ID)

	bodies := []string{"m1", "m2", "m3", "m4", "m5"}
	var wg sync.WaitGroup
	wg.Add(len(bodies))
	ack := func([]any, error) { wg.Done() }
	for _, body := range bodies {
		f.alice.dispatch(EventSendMessage, map[string]any{"chatId": chatID, "body": body}, ack)
	}
	wg.Wait()

	history := call(f.alice, f.alice.fetchMessages, chatID)
	require.Equal(t, "success", history.Status)
	messages := history.Data.([]model.ChatMessage)
	require.Len(t, messages, len(bodies))

	sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
	got := make([]string, 0, len(messages))
	for _, m := range messages {
		got = append(got, m.Body)
	}
	assert.Equal(t, bodies, got)
}

func TestDisconnectRunsAfterQueuedEvents(t *testing.T) {
	f := newSocketFixture(t)
	h := f.alice

	acked := make(chan Response, 2)
	ack := func(data []any, _ error) { acked <- data[0].(Response) }

	h.dispatch(EventOpenChat, float64(f.bob.session.Identity.ID), ack)
	h.dispatch(EventJoinChat, "topic:forum", ack)
	h.close()
	h.queue.wait()

	require.Len(t, acked, 2)
	for i := 0; i < 2; i++ {
		assert.Equal(t, "success", (<-acked).Status)
	}
	assert.True(t, h.session.Closed())
	assert.Empty(t, f.gw.Rooms().RoomsOf(f.aConn))

	h.dispatch(EventJoinChat, "topic:forum", ack)
	assert.Empty(t, acked)
	assert.Empty(t, f.gw.Rooms().RoomsOf(f.aConn))
}

func TestDispatchIgnoresUnknownEvents(t *testing.T) {
	f := newSocketFixture(t)
	assert.NotPanics(t, func() {
		f.alice.dispatch()
		f.alice.dispatch("shout", "hi")
		f.alice.dispatch(42)
	})
}
