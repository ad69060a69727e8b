package utils

import (
	"net"
	"net/url"
	"strings"
)

// privateNetworks are the ranges a browser origin may come from when the
// backend is reached over the LAN: RFC1918, loopback, and link-local, for
// both address families.
var privateNetworks = func() []*net.IPNet {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, network, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, network)
	}
	return nets
}()

// IsAllowedOrigin reports whether an Origin header value should be reflected
// in CORS responses. The player UI is served from the same box or another
// machine on the LAN, so localhost, private and link-local IPs, .local mDNS
// names, and bare single-label hostnames are trusted; anything that resolves
// to the public internet is not.
func IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	hostname := parsed.Hostname()

	if ip := net.ParseIP(hostname); ip != nil {
		for _, network := range privateNetworks {
			if network.Contains(ip) {
				return true
			}
		}
		return false
	}

	switch {
	case hostname == "localhost":
		return true
	case strings.HasSuffix(hostname, ".local"):
		return true
	case !strings.Contains(hostname, "."):
		// Single-label names only resolve on the local network.
		return true
	}
	return false
}
