package transport

import (
	"context"
	"net"
	"time"
)

// dialer applies a distinct connect timeout (default 20s per spec.md §5)
// independent of the overall request timeout on the http.Client.
type dialer struct {
	connectTimeout time.Duration
}

func (d *dialer) dialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	nd := net.Dialer{Timeout: d.connectTimeout}
	return nd.DialContext(ctx, network, addr)
}
