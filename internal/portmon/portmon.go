// Package portmon discovers listening TCP ports by reading /proc/net/tcp
// and /proc/net/tcp6, grounded on original_source/monitor/port.rs — the
// only ground truth for this component; no Go implementation of it exists
// anywhere in the retrieved example pack.
package portmon

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// PortInfo describes one listening TCP port discovered in /proc/net/tcp{,6}.
type PortInfo struct {
	LocalPort int    `json:"localPort"`
	Inode     string `json:"inode,omitempty"`
}

const (
	wildcardV4 = "00000000"
	wildcardV6 = "00000000000000000000000000000000"

	defaultCacheTTL = 2 * time.Second
	pollInterval    = 250 * time.Millisecond
)

// Monitor caches the set of wildcard-bound listening ports, refreshing on
// a TTL via double-checked locking, and supports "port opened" callbacks
// scoped to a PID (used by the process engine's waitForPorts).
type Monitor struct {
	cacheTTL time.Duration

	mu          sync.Mutex
	lastFetch   time.Time
	cachedPorts []PortInfo

	cbMu      sync.Mutex
	callbacks map[int]chan struct{} // pid -> stop channel
}

// New returns a Monitor with the default cache TTL.
func New() *Monitor {
	return &Monitor{
		cacheTTL:  defaultCacheTTL,
		callbacks: make(map[int]chan struct{}),
	}
}

// GetPorts returns every currently listening wildcard-bound port,
// refreshing the cache if it has gone stale.
func (m *Monitor) GetPorts() ([]PortInfo, error) {
	m.mu.Lock()
	if time.Since(m.lastFetch) < m.cacheTTL && m.cachedPorts != nil {
		ports := m.cachedPorts
		m.mu.Unlock()
		return ports, nil
	}
	m.mu.Unlock()

	ports, err := pollPorts()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	// Double-checked: another goroutine may have refreshed first.
	if time.Since(m.lastFetch) < m.cacheTTL && m.cachedPorts != nil {
		cached := m.cachedPorts
		m.mu.Unlock()
		return cached, nil
	}
	m.cachedPorts = ports
	m.lastFetch = time.Now()
	m.mu.Unlock()

	return ports, nil
}

// GetPortsForPID returns the ports owned by pid. Matching sockets to a pid
// requires walking /proc/[pid]/fd for socket inodes; this cross-references
// the wildcard-bound port set against that pid's open socket inodes.
func (m *Monitor) GetPortsForPID(pid int) ([]PortInfo, error) {
	all, err := pollPortsWithInodes()
	if err != nil {
		return nil, err
	}
	inodes, err := socketInodesForPID(pid)
	if err != nil {
		return nil, err
	}
	var out []PortInfo
	for _, p := range all {
		if inodes[p.Inode] {
			out = append(out, PortInfo{LocalPort: p.LocalPort})
		}
	}
	return out, nil
}

// RegisterPortOpenCallback polls pid's open ports and invokes cb(pid, port)
// once for each port that appears after registration (ports already open
// at registration are not reported). Polling continues until
// UnregisterPortOpenCallback is called for pid. Registering again for the
// same pid replaces the previous watch.
func (m *Monitor) RegisterPortOpenCallback(pid int, cb func(pid, port int)) {
	m.UnregisterPortOpenCallback(pid)

	stop := make(chan struct{})
	m.cbMu.Lock()
	m.callbacks[pid] = stop
	m.cbMu.Unlock()

	go func() {
		seen := make(map[int]bool)
		if existing, err := m.GetPortsForPID(pid); err == nil {
			for _, p := range existing {
				seen[p.LocalPort] = true
			}
		}
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ports, err := m.GetPortsForPID(pid)
				if err != nil {
					continue
				}
				for _, p := range ports {
					if !seen[p.LocalPort] {
						seen[p.LocalPort] = true
						cb(pid, p.LocalPort)
					}
				}
			}
		}
	}()
}

// UnregisterPortOpenCallback stops any watch registered for pid.
func (m *Monitor) UnregisterPortOpenCallback(pid int) {
	m.cbMu.Lock()
	stop, ok := m.callbacks[pid]
	delete(m.callbacks, pid)
	m.cbMu.Unlock()
	if ok {
		close(stop)
	}
}

func pollPorts() ([]PortInfo, error) {
	withInodes, err := pollPortsWithInodes()
	if err != nil {
		return nil, err
	}
	out := make([]PortInfo, len(withInodes))
	for i, p := range withInodes {
		out[i] = PortInfo{LocalPort: p.LocalPort}
	}
	return out, nil
}

func pollPortsWithInodes() ([]PortInfo, error) {
	v4, err := parseProcNetTCP("/proc/net/tcp", wildcardV4)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	v6, err := parseProcNetTCP("/proc/net/tcp6", wildcardV6)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return append(v4, v6...), nil
}

// parseProcNetTCP reads a /proc/net/tcp{,6}-format file and returns every
// entry bound to the wildcard address.
func parseProcNetTCP(path, wildcardIP string) ([]PortInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var out []PortInfo
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue // header line
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 10 {
			continue
		}
		localAddr := fields[1] // "<ip_hex>:<port_hex>"
		inode := fields[9]
		parts := strings.SplitN(localAddr, ":", 2)
		if len(parts) != 2 {
			continue
		}
		ipHex, portHex := parts[0], parts[1]
		if ipHex != wildcardIP {
			continue
		}
		port, err := strconv.ParseUint(portHex, 16, 16)
		if err != nil {
			continue
		}
		out = append(out, PortInfo{LocalPort: int(port), Inode: inode})
	}
	return out, scanner.Err()
}

// socketInodesForPID lists the socket inodes held open by pid, by scanning
// /proc/[pid]/fd symlinks for the "socket:[N]" form.
func socketInodesForPID(pid int) (map[string]bool, error) {
	dir := "/proc/" + strconv.Itoa(pid) + "/fd"
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	inodes := make(map[string]bool)
	for _, e := range entries {
		link, err := os.Readlink(dir + "/" + e.Name())
		if err != nil {
			continue
		}
		if strings.HasPrefix(link, "socket:[") && strings.HasSuffix(link, "]") {
			inode := link[len("socket:[") : len(link)-1]
			inodes[inode] = true
		}
	}
	return inodes, nil
}
