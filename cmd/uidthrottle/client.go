package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"mercator-hq/uidthrottle/pkg/cli"
	"mercator-hq/uidthrottle/pkg/config"
	"mercator-hq/uidthrottle/pkg/control"
	"mercator-hq/uidthrottle/pkg/server"
)

const clientTimeout = 10 * time.Second

// controlClient talks to the control endpoint of a running daemon.
type controlClient struct {
	url  string
	http *http.Client
}

// newControlClient creates a client for url. A nil tlsCfg uses the default
// transport.
func newControlClient(url string, tlsCfg *tls.Config) *controlClient {
	client := &http.Client{Timeout: clientTimeout}
	if tlsCfg != nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = tlsCfg
		client.Transport = transport
	}
	return &controlClient{url: url, http: client}
}

// dialControl builds a client for the daemon named by --server or the
// configuration file.
func dialControl() (*controlClient, error) {
	url, tlsCfg, err := resolveControlURL()
	if err != nil {
		return nil, err
	}
	return newControlClient(url, tlsCfg), nil
}

// resolveControlURL returns --server, or the control endpoint of the
// configured listen address together with the client TLS configuration
// when server.tls is enabled.
func resolveControlURL() (string, *tls.Config, error) {
	if serverURL != "" {
		return serverURL, nil, nil
	}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return "", nil, cli.NewConfigError("config", fmt.Sprintf("failed to load config: %v", err))
	}
	if !cfg.Control.HTTP.Enabled {
		return "", nil, cli.NewConfigError("control.http.enabled", "control endpoint is disabled; pass --server")
	}

	host, port, err := net.SplitHostPort(cfg.Server.ListenAddress)
	if err != nil {
		return "", nil, cli.NewConfigError("server.listen_address", err.Error())
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	scheme := "http://"
	var tlsCfg *tls.Config
	if cfg.Server.TLS.Enabled {
		scheme = "https://"
		tlsCfg, err = server.ClientTLSConfig(&cfg.Server.TLS)
		if err != nil {
			return "", nil, cli.NewConfigError("server.tls.ca_file", err.Error())
		}
	}
	return scheme + net.JoinHostPort(host, port) + cfg.Control.HTTP.Path, tlsCfg, nil
}

// Send posts one "<uid> <rate>" command.
func (c *controlClient) Send(ctx context.Context, command string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(command+"\n"))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

// List fetches the rate limit table.
func (c *controlClient) List(ctx context.Context) (*control.ListResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?format=json", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var list control.ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}
	return &list, nil
}

func (c *controlClient) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", cli.ErrUnavailable, err)
		}
		return nil, err
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	msg := strings.TrimSpace(string(body))

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", cli.ErrUnavailable, msg)
	case resp.StatusCode == http.StatusBadRequest:
		return cli.NewConfigError("command", msg)
	default:
		return fmt.Errorf("daemon returned %s: %s", resp.Status, msg)
	}
}
