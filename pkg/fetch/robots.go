package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"

	"github.com/Sriram-PR/md-navbar/pkg/utils"
)

// RobotsChecker fetches, caches and evaluates robots.txt per host.
// Hosts whose robots.txt cannot be obtained are treated as allowing everything.
type RobotsChecker struct {
	fetcher   *Fetcher
	limiter   *RateLimiter
	userAgent string
	delay     time.Duration
	cache     map[string]*robotstxt.RobotsData // host -> parsed data (nil when unavailable)
	mu        sync.Mutex
	log       *logrus.Entry
}

// NewRobotsChecker creates a checker that fetches robots.txt with userAgent, spaced by delay
func NewRobotsChecker(fetcher *Fetcher, limiter *RateLimiter, userAgent string, delay time.Duration, log *logrus.Entry) *RobotsChecker {
	return &RobotsChecker{
		fetcher:   fetcher,
		limiter:   limiter,
		userAgent: userAgent,
		delay:     delay,
		cache:     make(map[string]*robotstxt.RobotsData),
		log:       log,
	}
}

func (rc *RobotsChecker) store(host string, data *robotstxt.RobotsData) *robotstxt.RobotsData {
	rc.mu.Lock()
	rc.cache[host] = data
	rc.mu.Unlock()
	return data
}

// robotsData returns cached rules for the host of target, fetching them on first use
func (rc *RobotsChecker) robotsData(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	host := target.Host
	rc.mu.Lock()
	data, found := rc.cache[host]
	rc.mu.Unlock()
	if found {
		return data
	}

	scheme := target.Scheme
	if scheme != "http" && scheme != "https" {
		scheme = "https"
	}
	robotsURL := (&url.URL{Scheme: scheme, Host: host, Path: "/robots.txt"}).String()
	robotsLog := rc.log.WithField("robots_url", robotsURL)
	robotsLog.Debug("Fetching robots.txt...")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		robotsLog.Errorf("Error creating request: %v", err)
		return rc.store(host, nil)
	}
	req.Header.Set("User-Agent", rc.userAgent)

	if rc.limiter != nil {
		rc.limiter.ApplyDelay(ctx, target.Hostname(), rc.delay)
	}
	resp, err := rc.fetcher.FetchWithRetry(ctx, req)
	if rc.limiter != nil {
		rc.limiter.UpdateLastRequestTime(target.Hostname())
	}
	if err != nil {
		drain(resp)
		robotsLog.Debugf("robots.txt unavailable, allowing all: %v", err)
		return rc.store(host, nil)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		robotsLog.Errorf("Error reading body: %v", err)
		return rc.store(host, nil)
	}
	data, err = robotstxt.FromBytes(body)
	if err != nil {
		robotsLog.Errorf("Error parsing content: %v", err)
		return rc.store(host, nil)
	}
	robotsLog.Info("Fetched and parsed robots.txt")
	return rc.store(host, data)
}

// Check returns ErrRobotsDisallowed when robots.txt forbids userAgent from fetching target
func (rc *RobotsChecker) Check(ctx context.Context, target *url.URL, userAgent string) error {
	data := rc.robotsData(ctx, target)
	if data == nil {
		return nil
	}
	if !data.TestAgent(target.RequestURI(), userAgent) {
		return fmt.Errorf("%w: %s", utils.ErrRobotsDisallowed, target.String())
	}
	return nil
}
