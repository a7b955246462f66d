// Package transport 为上游图像服务与 Telegram 客户端构造统一的 HTTP 传输层。
// 安全加固：TLS 1.2+，仅 AEAD 密码套件；可选 SOCKS5 或 HTTP(S) 代理，SOCKS5 优先。
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// Options 传输层选项
type Options struct {
	Timeout    time.Duration // 整个请求的超时，0 表示不限
	HTTPSProxy string        // http:// 或 https:// 代理地址
	SOCKSProxy string        // socks5:// 或 socks5h:// 代理地址
}

// DefaultTLSConfig returns a hardened TLS configuration.
// MinVersion TLS 1.2, AEAD-only cipher suites.
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}
}

// NewTransport 创建带 TLS 加固与代理设置的 http.Transport。
// 不读取环境变量中的代理，代理只来自 Options。
func NewTransport(opts Options) (*http.Transport, error) {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	tr := &http.Transport{
		TLSClientConfig:       DefaultTLSConfig(),
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	switch {
	case strings.TrimSpace(opts.SOCKSProxy) != "":
		u, err := parseProxyURL(opts.SOCKSProxy)
		if err != nil {
			return nil, fmt.Errorf("socks proxy: %w", err)
		}
		d, err := proxy.FromURL(u, dialer)
		if err != nil {
			return nil, fmt.Errorf("socks proxy %s: %w", u.Redacted(), err)
		}
		tr.DialContext = contextDialer(d)
	case strings.TrimSpace(opts.HTTPSProxy) != "":
		u, err := parseProxyURL(opts.HTTPSProxy)
		if err != nil {
			return nil, fmt.Errorf("https proxy: %w", err)
		}
		tr.Proxy = http.ProxyURL(u)
	}
	return tr, nil
}

// NewHTTPClient 创建 HTTP 客户端
func NewHTTPClient(opts Options) (*http.Client, error) {
	tr, err := NewTransport(opts)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: tr,
	}, nil
}

// Describe 返回用于日志的代理描述，凭据已脱敏
func Describe(opts Options) string {
	if s := strings.TrimSpace(opts.SOCKSProxy); s != "" {
		if u, err := parseProxyURL(s); err == nil {
			return "socks " + u.Redacted()
		}
		return "socks (invalid)"
	}
	if s := strings.TrimSpace(opts.HTTPSProxy); s != "" {
		if u, err := parseProxyURL(s); err == nil {
			return "https " + u.Redacted()
		}
		return "https (invalid)"
	}
	return "direct"
}

func parseProxyURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy url %q", raw)
	}
	return u, nil
}

func contextDialer(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return d.Dial(network, addr)
	}
}
