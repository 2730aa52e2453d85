package fetcher

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"
)

// RobotsChecker fetches, caches and enforces robots.txt for article links.
type RobotsChecker struct {
	enabled bool
	agent   string
	fetcher *HTTPFetcher

	mu    sync.RWMutex
	cache map[string]*robotsData
}

type robotsData struct {
	disallowed []string
	allowed    []string
}

// NewRobotsChecker creates a RobotsChecker. When disabled every URL is allowed.
func NewRobotsChecker(enabled bool, agent string, f *HTTPFetcher) *RobotsChecker {
	return &RobotsChecker{
		enabled: enabled,
		agent:   strings.ToLower(agent),
		fetcher: f,
		cache:   make(map[string]*robotsData),
	}
}

// Allowed reports whether rawURL may be fetched. Unreachable robots.txt allows everything.
func (rc *RobotsChecker) Allowed(ctx context.Context, rawURL string) bool {
	if rc == nil || !rc.enabled {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	data := rc.rules(ctx, u.Scheme+"://"+u.Host)
	if data == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	for _, pattern := range data.allowed {
		if matchRobotsPattern(pattern, path) {
			return true
		}
	}
	for _, pattern := range data.disallowed {
		if matchRobotsPattern(pattern, path) {
			return false
		}
	}
	return true
}

func (rc *RobotsChecker) rules(ctx context.Context, origin string) *robotsData {
	rc.mu.RLock()
	data, ok := rc.cache[origin]
	rc.mu.RUnlock()
	if ok {
		return data
	}

	if rc.fetcher != nil {
		resp, err := rc.fetcher.Get(ctx, origin+"/robots.txt", "robots", 10*time.Second)
		if err == nil && resp.IsSuccess() {
			data = parseRobotsTxt(string(resp.Body), rc.agent)
		}
	}

	rc.mu.Lock()
	rc.cache[origin] = data
	rc.mu.Unlock()
	return data
}

// parseRobotsTxt collects the rules addressed to "*" or to agent.
func parseRobotsTxt(content, agent string) *robotsData {
	data := &robotsData{}
	inSection := false

	for _, line := range strings.Split(content, "\n") {
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			ua := strings.ToLower(value)
			inSection = ua == "*" || (agent != "" && strings.Contains(ua, agent))
		case "disallow":
			if inSection && value != "" {
				data.disallowed = append(data.disallowed, value)
			}
		case "allow":
			if inSection && value != "" {
				data.allowed = append(data.allowed, value)
			}
		}
	}
	return data
}

// matchRobotsPattern supports the * and $ wildcards.
func matchRobotsPattern(pattern, path string) bool {
	if pattern == "" {
		return false
	}
	anchored := strings.HasSuffix(pattern, "$")
	if anchored {
		pattern = strings.TrimSuffix(pattern, "$")
	}
	if !strings.Contains(pattern, "*") {
		if anchored {
			return path == pattern
		}
		return strings.HasPrefix(path, pattern)
	}

	parts := strings.Split(pattern, "*")
	pos := 0
	for i, part := range parts {
		if part == "" {
			continue
		}
		idx := strings.Index(path[pos:], part)
		if idx < 0 || (i == 0 && idx != 0) {
			return false
		}
		pos += idx + len(part)
	}
	if anchored {
		return pos == len(path) || strings.HasSuffix(pattern, "*")
	}
	return true
}
