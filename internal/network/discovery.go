package network

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultProbeTimeout bounds one host probe.
	DefaultProbeTimeout = 800 * time.Millisecond

	// DefaultScanConcurrency is the number of hosts probed at once.
	DefaultScanConcurrency = 64

	authCheckPath = "/api/auth/check"
)

// Address sources for resolveSubnet, replaced in tests.
var (
	primaryIP    = GetLocalIP
	interfaceIPs = GetLocalIPs
)

// DiscoveredHost is a kvmd appliance found on the network
type DiscoveredHost struct {
	IP     string `json:"ip"`
	Scheme string `json:"scheme"`
	Status int    `json:"status"`
}

// ScanOptions tunes ScanLAN
type ScanOptions struct {
	// Subnet is the /24 prefix to scan, e.g. "192.168.1". Empty means the
	// subnet of the primary local address.
	Subnet string

	// Scheme is "https" (default) or "http"
	Scheme string

	// Port overrides the scheme's default port
	Port int

	Timeout     time.Duration
	Concurrency int

	// Client replaces the probing HTTP client
	Client *http.Client
}

// GetLocalIP returns the primary local IP address
func GetLocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}

// GetLocalIPs returns the IPv4 addresses of every interface that is up,
// private addresses first. Loopback and link-local addresses are left out.
func GetLocalIPs() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var private, public []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			prefix, err := netip.ParsePrefix(addr.String())
			if err != nil {
				continue
			}
			ip := prefix.Addr().Unmap()
			if !ip.Is4() || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
				continue
			}
			if ip.IsPrivate() {
				private = append(private, ip.String())
			} else {
				public = append(public, ip.String())
			}
		}
	}
	return append(private, public...), nil
}

// ScanLAN probes every host of a /24 subnet for kvmd's auth endpoint. Any
// host answering 200, 401 or 403 there is reported. Results are sorted by
// address.
func ScanLAN(ctx context.Context, opts ScanOptions, log zerolog.Logger) ([]DiscoveredHost, error) {
	log = log.With().Str("component", "discovery").Logger()

	localIP, subnet, err := resolveSubnet(opts.Subnet)
	if err != nil {
		return nil, err
	}
	if opts.Scheme == "" {
		opts.Scheme = "https"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultProbeTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultScanConcurrency
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}

	log.Info().Str("subnet", subnet+".0/24").Str("scheme", opts.Scheme).Msg("scanning for kvmd")

	var (
		mu    sync.Mutex
		hosts []DiscoveredHost
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i := 1; i <= 254; i++ {
		ip := fmt.Sprintf("%s.%d", subnet, i)
		if ip == localIP {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if host, ok := probeHost(gctx, client, opts, ip); ok {
				log.Debug().Str("ip", ip).Int("status", host.Status).Msg("kvmd found")
				mu.Lock()
				hosts = append(hosts, host)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan %s.0/24: %w", subnet, err)
	}

	sort.Slice(hosts, func(i, j int) bool {
		return ipLess(hosts[i].IP, hosts[j].IP)
	})
	return hosts, nil
}

// resolveSubnet returns the local address (may be empty) and the /24 prefix.
// Without an explicit subnet the routed address is used, falling back to the
// first interface address when no route is available.
func resolveSubnet(subnet string) (string, string, error) {
	if subnet != "" {
		return "", strings.TrimSuffix(subnet, "."), nil
	}
	localIP, err := primaryIP()
	if err != nil {
		ips, ierr := interfaceIPs()
		if ierr != nil || len(ips) == 0 {
			return "", "", fmt.Errorf("%w: %w", ErrNoSubnet, errors.Join(err, ierr))
		}
		localIP = ips[0]
	}
	parts := strings.Split(localIP, ".")
	if len(parts) != 4 {
		return "", "", fmt.Errorf("%w: %s", ErrNoSubnet, localIP)
	}
	return localIP, strings.Join(parts[:3], "."), nil
}

// probeHost checks whether ip serves kvmd's auth endpoint
func probeHost(ctx context.Context, client *http.Client, opts ScanOptions, ip string) (DiscoveredHost, bool) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	host := ip
	if opts.Port > 0 {
		host = net.JoinHostPort(ip, fmt.Sprint(opts.Port))
	}
	u := fmt.Sprintf("%s://%s%s", opts.Scheme, host, authCheckPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return DiscoveredHost{}, false
	}
	resp, err := client.Do(req)
	if err != nil {
		return DiscoveredHost{}, false
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusUnauthorized, http.StatusForbidden:
		return DiscoveredHost{IP: ip, Scheme: opts.Scheme, Status: resp.StatusCode}, true
	}
	return DiscoveredHost{}, false
}

func ipLess(a, b string) bool {
	ia, ib := net.ParseIP(a).To4(), net.ParseIP(b).To4()
	if ia == nil || ib == nil {
		return a < b
	}
	for i := range ia {
		if ia[i] != ib[i] {
			return ia[i] < ib[i]
		}
	}
	return false
}
