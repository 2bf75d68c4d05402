package socketio

import (
	"time"

	"chat-gateway/gateway"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/zishang520/engine.io/v2/log"
	"github.com/zishang520/socket.io/v2/socket"
)

type Options struct {
	// ConnectTimeout bounds the handshake; unauthenticated sockets are dropped after it.
	ConnectTimeout time.Duration
	Debug          bool
}

const defaultConnectTimeout = 3 * time.Second

// Init mounts a Socket.IO server on app. Every connection must authenticate
// during the handshake; the verified identity is stored as the socket data.
func Init(app *fiber.App, authenticator *gateway.Authenticator, opts Options) *socket.Server {
	log.DEBUG = opts.Debug

	options := serverOptions(opts)
	// The connect timeout is a server setting, read only at construction.
	server := socket.NewServer(nil, options)
	server.Use(authenticate(authenticator, credentials))

	handler := adaptor.HTTPHandler(server.ServeHandler(options))
	app.Get("/socket.io/", handler)
	app.Post("/socket.io/", handler)

	return server
}

func serverOptions(opts Options) *socket.ServerOptions {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}

	options := socket.DefaultServerOptions()
	options.SetServeClient(false)
	options.SetAllowEIO3(true)
	options.SetPingInterval(25 * time.Second)
	options.SetPingTimeout(20 * time.Second)
	options.SetMaxHttpBufferSize(1000000)
	options.SetConnectTimeout(opts.ConnectTimeout)
	return options
}

// authenticate is the handshake middleware. A refused handshake carries
// {code, message} as the connect_error data.
func authenticate(authenticator *gateway.Authenticator, extract func(*socket.Socket) gateway.Credentials) func(*socket.Socket, func(*socket.ExtendedError)) {
	return func(client *socket.Socket, next func(*socket.ExtendedError)) {
		identity, err := authenticator.Authenticate(extract(client))
		if err != nil {
			next(socket.NewExtendedError("unauthenticated", map[string]any{
				"code":    gateway.CodeUnauthenticated,
				"message": gateway.MessageOf(err),
			}))
			return
		}

		client.SetData(identity)
		next(nil)
	}
}

// Identity returns the identity bound to client by the handshake middleware.
func Identity(client *socket.Socket) (*gateway.Identity, bool) {
	identity, ok := client.Data().(*gateway.Identity)
	return identity, ok && identity != nil
}

func credentials(client *socket.Socket) gateway.Credentials {
	creds := gateway.Credentials{}

	if handshake := client.Handshake(); handshake != nil {
		creds.Auth = authObject(any(handshake.Auth))
	}

	request := client.Conn().Request()
	if header, ok := request.Headers().Get("Authorization"); ok {
		creds.Header = header
	} else if header, ok := request.Headers().Get("authorization"); ok {
		creds.Header = header
	}
	creds.Query, _ = request.Query().Get("token")

	return creds
}

func authObject(raw any) map[string]any {
	switch auth := raw.(type) {
	case map[string]any:
		return auth
	case map[string]string:
		converted := make(map[string]any, len(auth))
		for k, v := range auth {
			converted[k] = v
		}
		return converted
	}
	return nil
}
