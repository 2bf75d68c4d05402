package router

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"chat-gateway/gateway"
)

// splitAck separates the trailing ack callback from the event arguments.
// The returned ack is a no-op when the client did not ask for one.
func splitAck(raw []any) ([]any, func(Response)) {
	if len(raw) == 0 {
		return raw, func(Response) {}
	}

	switch fn := raw[len(raw)-1].(type) {
	case func([]any, error):
		return raw[:len(raw)-1], func(r Response) { fn([]any{r}, nil) }
	case func(...any):
		return raw[:len(raw)-1], func(r Response) { fn(r) }
	}
	return raw, func(Response) {}
}

// arg returns the named field when the first argument is an object,
// otherwise the positional argument.
func arg(args []any, position int, name string) any {
	if len(args) > 0 {
		if object, ok := args[0].(map[string]any); ok {
			return object[name]
		}
	}
	if position < len(args) {
		return args[position]
	}
	return nil
}

func uintArg(v any) (uint, bool) {
	switch n := v.(type) {
	case float64:
		if n <= 0 || n > math.MaxUint32 || n != math.Trunc(n) {
			return 0, false
		}
		return uint(n), true
	case int:
		if n <= 0 {
			return 0, false
		}
		return uint(n), true
	case uint:
		return n, n > 0
	case json.Number:
		return uintArg(string(n))
	case string:
		id, err := strconv.ParseUint(strings.TrimSpace(n), 10, 32)
		if err != nil || id == 0 {
			return 0, false
		}
		return uint(id), true
	}
	return 0, false
}

// roomArg accepts a chat id, "chat:<id>" or "topic:<id>".
func roomArg(v any) (string, bool) {
	if id, ok := uintArg(v); ok {
		return gateway.ChatRoom(id), true
	}
	room, ok := v.(string)
	if !ok {
		return "", false
	}
	room = strings.TrimSpace(room)
	if _, ok := gateway.ParseChatRoom(room); ok {
		return room, true
	}
	if _, ok := gateway.ParseTopicRoom(room); ok {
		return room, true
	}
	return "", false
}
