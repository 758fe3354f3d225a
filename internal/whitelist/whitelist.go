package whitelist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker matches sender addresses against the user's pinned-sender list.
// Entries may be full addresses ("boss@corp.com") or bare domains
// ("corp.com"); pinned senders get a floor on their sender score so they
// never sink below it regardless of observed behavior.
type Checker struct {
	addresses map[string]struct{}
	domains   map[string]struct{}
	logger    *zap.Logger
}

// NewChecker creates a pinned-sender checker from raw config entries.
func NewChecker(entries []string, logger *zap.Logger) *Checker {
	c := &Checker{
		addresses: make(map[string]struct{}),
		domains:   make(map[string]struct{}),
		logger:    logger,
	}
	for _, entry := range entries {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "@") {
			c.addresses[entry] = struct{}{}
		} else {
			c.domains[strings.TrimPrefix(entry, "@")] = struct{}{}
		}
	}
	if (len(c.addresses) > 0 || len(c.domains) > 0) && logger != nil {
		logger.Info("Initialized pinned-sender list",
			zap.Int("addresses", len(c.addresses)),
			zap.Int("domains", len(c.domains)))
	}
	return c
}

// Contains reports whether the address (or its domain) is pinned.
func (c *Checker) Contains(address string) bool {
	if c == nil {
		return false
	}
	addr := strings.ToLower(strings.TrimSpace(address))
	if addr == "" {
		return false
	}
	if _, ok := c.addresses[addr]; ok {
		c.debug("Sender is pinned", addr)
		return true
	}
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return false
	}
	if _, ok := c.domains[addr[at+1:]]; ok {
		c.debug("Sender domain is pinned", addr)
		return true
	}
	return false
}

func (c *Checker) debug(msg, addr string) {
	if c.logger != nil {
		c.logger.Debug(msg, zap.String("address", addr))
	}
}
