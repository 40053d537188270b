// Package nas maintains the server's IP→shared-secret NAS registry
// (spec.md §3 NasEntry, §4.3, §9 "NAS DNS refresh").
package nas

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/miekg/dns"

	"github.com/raddaemon/raddaemon/internal/metrics"
)

// Entry is a configured NAS device. Invariant: at least one of
// StaticAddress or HostName is set (spec.md §3).
type Entry struct {
	StaticAddress net.IP
	HostName      string
	SharedSecret  string

	mu                sync.RWMutex
	resolvedAddresses []net.IP
}

// ResolvedAddresses returns the entry's most recently refreshed address set.
func (e *Entry) ResolvedAddresses() []net.IP {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]net.IP, len(e.resolvedAddresses))
	copy(out, e.resolvedAddresses)
	return out
}

func (e *Entry) setResolvedAddresses(addrs []net.IP) {
	e.mu.Lock()
	e.resolvedAddresses = addrs
	e.mu.Unlock()
}

// Registry resolves a source IP to the NAS entry it belongs to. Reads
// (Lookup, from the receive path) never block on writes (DNS refresh):
// the index is an atomically-swapped snapshot, rebuilt wholesale after
// each refresh so readers always see a consistent map (spec.md §5, §9).
type Registry struct {
	mu            sync.Mutex // guards entries (the authoritative list) and registration
	entries       []*Entry
	index         atomic.Pointer[map[string]*Entry]
	defaultSecret string
	resolver      *dns.Client
	nameserver    string
	logger        *slog.Logger
}

// NewRegistry creates an empty registry. nameserver is the resolver used
// for hostName refresh (host:port); an empty string falls back to the
// system resolver configuration in /etc/resolv.conf.
func NewRegistry(defaultSecret, nameserver string, logger *slog.Logger) *Registry {
	r := &Registry{
		defaultSecret: defaultSecret,
		resolver:      &dns.Client{Timeout: 5 * time.Second},
		nameserver:    nameserver,
		logger:        logger,
	}
	empty := map[string]*Entry{}
	r.index.Store(&empty)
	return r
}

// Register adds a NAS entry and synchronously rebuilds the lookup index.
func (r *Registry) Register(e *Entry) error {
	if e.StaticAddress == nil && e.HostName == "" {
		return fmt.Errorf("nas: entry must have a static address or a host name")
	}
	r.mu.Lock()
	r.entries = append(r.entries, e)
	entries := append([]*Entry(nil), r.entries...)
	r.mu.Unlock()

	r.rebuildIndex(entries)
	metrics.NasRegistrySize.Set(float64(len(entries)))
	return nil
}

// Lookup resolves ip to a NAS entry, first-match rules per spec.md §4.3:
// static addresses win over DNS-resolved addresses; if neither matches and
// a default secret is configured, an ephemeral entry is synthesized.
func (r *Registry) Lookup(ip net.IP) (*Entry, bool) {
	idx := *r.index.Load()
	if e, ok := idx[ip.String()]; ok {
		return e, true
	}
	if r.defaultSecret != "" {
		return &Entry{StaticAddress: ip, SharedSecret: r.defaultSecret}, true
	}
	return nil, false
}

// rebuildIndex constructs a fresh snapshot: static addresses are indexed
// first (first entry wins on duplicates), then resolved addresses fill in
// any IP not already claimed by a static entry.
func (r *Registry) rebuildIndex(entries []*Entry) {
	idx := make(map[string]*Entry, len(entries))

	for _, e := range entries {
		if e.StaticAddress == nil {
			continue
		}
		key := e.StaticAddress.String()
		if _, exists := idx[key]; !exists {
			idx[key] = e
		}
	}
	for _, e := range entries {
		for _, addr := range e.ResolvedAddresses() {
			key := addr.String()
			if _, exists := idx[key]; !exists {
				idx[key] = e
			}
		}
	}

	r.index.Store(&idx)
}

// RefreshDNS re-resolves every entry's HostName and rebuilds the index.
// Individual lookup failures are logged and leave that entry's previous
// resolvedAddresses in place rather than clearing it (a transient DNS
// outage should not evict a NAS that was previously reachable).
func (r *Registry) RefreshDNS() {
	r.mu.Lock()
	entries := append([]*Entry(nil), r.entries...)
	r.mu.Unlock()

	changed := false
	for _, e := range entries {
		if e.HostName == "" {
			continue
		}
		addrs, err := r.resolveHost(e.HostName)
		if err != nil {
			metrics.NasDNSRefreshes.WithLabelValues("error").Inc()
			r.logger.Warn("nas dns refresh failed", "host", e.HostName, "error", err)
			continue
		}
		metrics.NasDNSRefreshes.WithLabelValues("ok").Inc()
		e.setResolvedAddresses(addrs)
		changed = true
	}

	if changed {
		r.rebuildIndex(entries)
	}
}

func (r *Registry) resolveHost(host string) ([]net.IP, error) {
	nameserver := r.nameserver
	if nameserver == "" {
		cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil || len(cfg.Servers) == 0 {
			return nil, fmt.Errorf("no nameserver configured and /etc/resolv.conf unavailable: %w", err)
		}
		nameserver = net.JoinHostPort(cfg.Servers[0], cfg.Port)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)

	resp, _, err := r.resolver.Exchange(msg, nameserver)
	if err != nil {
		return nil, fmt.Errorf("querying %s for %s: %w", nameserver, host, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("resolving %s: %s", host, dns.RcodeToString[resp.Rcode])
	}

	var addrs []net.IP
	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok {
			addrs = append(addrs, a.A)
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no A records for %s", host)
	}
	return addrs, nil
}

// StartDNSRefresh runs RefreshDNS on a ticker until stop is closed.
// Grounded on the teacher's lease manager gcLoop ticker pattern.
func (r *Registry) StartDNSRefresh(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.RefreshDNS()
		case <-stop:
			return
		}
	}
}
