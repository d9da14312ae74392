package httpx

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	netproxy "golang.org/x/net/proxy"
)

func ProxyFuncFromString(raw string) (func(*http.Request) (*url.URL, error), error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	switch strings.ToLower(raw) {
	case "0", "false", "off", "no", "none", "direct":
		return nil, nil
	case "env":
		return http.ProxyFromEnvironment, nil
	default:
		u, err := ParseProxyURL(raw)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "socks5" {
			return nil, fmt.Errorf("socks5 proxy %q must be dialed, not used as an http proxy", u.Host)
		}
		return http.ProxyURL(u), nil
	}
}

func ParseProxyURL(raw string) (*url.URL, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("empty proxy url")
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return nil, fmt.Errorf("unsupported scheme %q (only http/https/socks5)", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return nil, fmt.Errorf("missing host")
	}
	return u, nil
}

// applyProxy configures transport for raw. SOCKS5 proxies replace the dialer,
// everything else goes through transport.Proxy.
func applyProxy(transport *http.Transport, raw string) error {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(raw)), "socks5://") {
		proxyFunc, err := ProxyFuncFromString(raw)
		if err != nil {
			return fmt.Errorf("invalid proxy: %w", err)
		}
		transport.Proxy = proxyFunc
		return nil
	}

	u, err := ParseProxyURL(raw)
	if err != nil {
		return fmt.Errorf("invalid proxy: %w", err)
	}
	var auth *netproxy.Auth
	if u.User != nil {
		pass, _ := u.User.Password()
		auth = &netproxy.Auth{User: u.User.Username(), Password: pass}
	}
	dialer, err := netproxy.SOCKS5("tcp", u.Host, auth, &net.Dialer{Timeout: 10 * time.Second})
	if err != nil {
		return fmt.Errorf("invalid proxy: %w", err)
	}
	transport.Proxy = nil
	if cd, ok := dialer.(netproxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
		return nil
	}
	transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}
	return nil
}
