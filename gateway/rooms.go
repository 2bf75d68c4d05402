package gateway

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const (
	chatRoomPrefix  = "chat:"
	topicRoomPrefix = "topic:"
)

// Conn is the transport side of a connection.
type Conn interface {
	ID() string
	Emit(event string, payload any) error
}

// ChatRoom returns the room key of a chat.
func ChatRoom(chatID uint) string {
	return chatRoomPrefix + strconv.FormatUint(uint64(chatID), 10)
}

// TopicRoom returns the room key of a topic.
func TopicRoom(topic string) string {
	return topicRoomPrefix + topic
}

// ParseChatRoom extracts the chat id from a "chat:<id>" key.
func ParseChatRoom(key string) (uint, bool) {
	raw, ok := strings.CutPrefix(key, chatRoomPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ParseTopicRoom extracts the topic id from a "topic:<id>" key.
func ParseTopicRoom(key string) (string, bool) {
	topic, ok := strings.CutPrefix(key, topicRoomPrefix)
	if !ok || topic == "" {
		return "", false
	}
	return topic, true
}

// Rooms is the in-process registry of room memberships.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[string]Conn
	joined  map[string]map[string]struct{}
	logger  *slog.Logger
}

func NewRooms(logger *slog.Logger) *Rooms {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rooms{
		members: make(map[string]map[string]Conn),
		joined:  make(map[string]map[string]struct{}),
		logger:  logger,
	}
}

// Join adds conn to room. Joining twice is a no-op.
func (r *Rooms) Join(conn Conn, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.members[room]
	if !ok {
		members = make(map[string]Conn)
		r.members[room] = members
	}
	members[conn.ID()] = conn

	rooms, ok := r.joined[conn.ID()]
	if !ok {
		rooms = make(map[string]struct{})
		r.joined[conn.ID()] = rooms
	}
	rooms[room] = struct{}{}
}

// Leave removes conn from room, dropping the room once empty.
func (r *Rooms) Leave(conn Conn, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leave(conn.ID(), room)
}

// LeaveAll removes conn from every room it joined. Called on disconnect.
func (r *Rooms) LeaveAll(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.joined[conn.ID()] {
		r.leave(conn.ID(), room)
	}
	delete(r.joined, conn.ID())
}

func (r *Rooms) leave(connID, room string) {
	if members, ok := r.members[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.members, room)
		}
	}
	if rooms, ok := r.joined[connID]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.joined, connID)
		}
	}
}

// Broadcast emits event to every member of room, the sender included when
// it joined the room. Clients drop their own echo by sender id.
// It returns the number of connections the event was handed to.
func (r *Rooms) Broadcast(room, event string, payload any) int {
	r.mu.RLock()
	targets := make([]Conn, 0, len(r.members[room]))
	for _, conn := range r.members[room] {
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if err := conn.Emit(event, payload); err != nil {
			r.logger.Warn("room emit failed", "room", room, "event", event, "conn", conn.ID(), "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// Members returns the connection ids in room, sorted.
func (r *Rooms) Members(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.members[room]))
	for id := range r.members[room] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RoomsOf returns the rooms conn has joined, sorted.
func (r *Rooms) RoomsOf(conn Conn) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.joined[conn.ID()]))
	for key := range r.joined[conn.ID()] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of non-empty rooms.
func (r *Rooms) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}
