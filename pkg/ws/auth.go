// Package ws provides the asynchronous transport adapter: websocket
// connections are authenticated from the upgrade handshake's query string
// with the same token scheme the HTTP transport uses, so both transports
// reach identical authorization decisions for the same key.
package ws

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/theschoolhq/gatekeeper/pkg/auth"
	"github.com/theschoolhq/gatekeeper/pkg/contextkeys"
	"github.com/theschoolhq/gatekeeper/pkg/observability"
)

// AuthorizationParam is the handshake query parameter carrying the
// credential, URL-encoded: Authorization=Token%20<key>.
const AuthorizationParam = "Authorization"

// CredentialFromQuery returns the raw Authorization credential from an
// upgrade request's query string: the first value when the parameter
// repeats, an empty byte slice when absent. Broken percent-encodings are
// tolerated; whatever parsed is used.
func CredentialFromQuery(rawQuery string) []byte {
	values, _ := url.ParseQuery(rawQuery)
	list := values[AuthorizationParam]
	if len(list) == 0 {
		return []byte{}
	}
	return []byte(list[0])
}

// ConnectFunc handles an established connection. The context carries the
// authenticated identity and token (absent for anonymous connections) and
// is canceled when the server shuts down.
type ConnectFunc func(ctx context.Context, conn *websocket.Conn)

// Gateway upgrades websocket connections after authenticating them.
//
// The authentication decision is made on the accept path before the
// upgrade; the store lookup is the only blocking call and no
// connection-level state exists yet to lock across it. Authentication
// failures fail open to an anonymous connection.
type Gateway struct {
	authenticator *auth.TokenAuthenticator
	onConnect     ConnectFunc
	upgrader      websocket.Upgrader
	logger        *observability.Logger
	metrics       *observability.Metrics
}

// NewGateway creates a websocket gateway that calls onConnect for every
// accepted connection.
func NewGateway(authenticator *auth.TokenAuthenticator, onConnect ConnectFunc, logger *observability.Logger, metrics *observability.Metrics) *Gateway {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Gateway{
		authenticator: authenticator,
		onConnect:     onConnect,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// ServeHTTP authenticates and upgrades one connection.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := CredentialFromQuery(r.URL.RawQuery)
	identity, token, err := g.authenticator.Authenticate(ctx, raw)
	if err != nil {
		if !auth.IsAuthFailure(err) {
			g.logger.WithError(err).Error("websocket authentication backend error")
			http.Error(w, "authentication backend unavailable", http.StatusInternalServerError)
			return
		}
		// Fail open: the connection proceeds anonymously.
		g.logger.WithError(err).Debug("websocket authentication failed, continuing as anonymous")
		identity, token = nil, nil
		if g.metrics != nil {
			g.metrics.TokenValidationsTotal.WithLabelValues("websocket", "failure").Inc()
		}
	}

	result := "anonymous"
	if identity != nil {
		ctx = contextkeys.WithIdentity(ctx, identity)
		ctx = contextkeys.WithToken(ctx, token)
		result = "authenticated"
		if g.metrics != nil {
			g.metrics.TokenValidationsTotal.WithLabelValues("websocket", "success").Inc()
		}
	}
	if g.metrics != nil {
		g.metrics.WebsocketConnectsTotal.WithLabelValues(result).Inc()
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		g.logger.WithError(err).Debug("websocket upgrade failed")
		return
	}

	if g.onConnect != nil {
		g.onConnect(ctx, conn)
		return
	}
	conn.Close()
}
