package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Proxy holds the settings of the project/service listing proxy.
type Proxy struct {
	// Port is the TCP port the proxy listens on.
	Port uint16
	// FrontendURL is the only origin allowed by CORS.
	FrontendURL string
	// RailwayAPIURL is the GraphQL endpoint requests are forwarded to.
	RailwayAPIURL string
}

// Proxy defaults.
const (
	DefaultProxyPort   uint16 = 4000
	DefaultFrontendURL        = "http://localhost:5173"
)

const (
	envPort        = "PORT"
	envFrontendURL = "FRONTEND_URL"
)

// LoadProxy reads the proxy settings from the process environment.
func LoadProxy() (*Proxy, error) {
	return LoadProxyWith(os.LookupEnv)
}

// LoadProxyWith reads the proxy settings through the given lookup.
func LoadProxyWith(lookup LookupFunc) (*Proxy, error) {
	cfg := &Proxy{
		Port:          DefaultProxyPort,
		FrontendURL:   DefaultFrontendURL,
		RailwayAPIURL: DefaultRailwayAPIURL,
	}

	if value, ok := lookup(envPort); ok {
		port, err := strconv.ParseUint(strings.TrimSpace(value), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrInvalidSetting, envPort, err)
		}

		cfg.Port = uint16(port)
	}

	if value, ok := lookup(envFrontendURL); ok && value != "" {
		cfg.FrontendURL = value
	}

	if value, ok := lookup(envRailwayAPIURL); ok && value != "" {
		cfg.RailwayAPIURL = value
	}

	for name, value := range map[string]string{envFrontendURL: cfg.FrontendURL, envRailwayAPIURL: cfg.RailwayAPIURL} {
		if _, err := url.ParseRequestURI(value); err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrInvalidSetting, name, err)
		}
	}

	return cfg, nil
}
