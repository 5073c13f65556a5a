// Package source loads documents from local files or http(s) URLs and normalizes
// them to markdown for outline extraction.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/md-navbar/pkg/config"
	"github.com/Sriram-PR/md-navbar/pkg/detect"
	"github.com/Sriram-PR/md-navbar/pkg/fetch"
	"github.com/Sriram-PR/md-navbar/pkg/utils"
)

// Document is a loaded source ready for extraction
type Document struct {
	Key         string
	Location    string
	Format      string // Format of the original source; Markdown is always markdown
	Title       string // <title> of HTML sources, empty for markdown
	Markdown    string
	ContentHash string
	LoadedAt    time.Time
}

// Loader reads documents, applying robots, rate limiting and per-host concurrency to remote ones
type Loader struct {
	appCfg   config.AppConfig
	fetcher  *fetch.Fetcher
	limiter  *fetch.RateLimiter
	robots   *fetch.RobotsChecker
	hosts    *fetch.HostPermits
	detector *detect.Detector
	log      *logrus.Entry
}

// NewLoader creates a Loader with an HTTP client built from appCfg.HTTPClientSettings
func NewLoader(appCfg config.AppConfig, log *logrus.Entry) *Loader {
	return NewLoaderWithClient(appCfg, fetch.NewClient(appCfg.HTTPClientSettings, log), log)
}

// NewLoaderWithClient creates a Loader that uses client for every remote request
func NewLoaderWithClient(appCfg config.AppConfig, client *http.Client, log *logrus.Entry) *Loader {
	fetcher := fetch.NewFetcher(client, fetch.RetryPolicyFromConfig(&appCfg), log)
	limiter := fetch.NewRateLimiter(appCfg.DefaultDelayPerHost, log)
	return &Loader{
		appCfg:   appCfg,
		fetcher:  fetcher,
		limiter:  limiter,
		robots:   fetch.NewRobotsChecker(fetcher, limiter, appCfg.DefaultUserAgent, appCfg.DefaultDelayPerHost, log),
		hosts:    fetch.NewHostPermits(appCfg.MaxRequestsPerHost, 0, log),
		detector: detect.NewDetector(log),
		log:      log,
	}
}

// Extractor names the outline extractor configured for docCfg
func (l *Loader) Extractor(docCfg config.DocumentConfig) string {
	return config.GetEffectiveExtractor(docCfg, l.appCfg)
}

// LoadLocation loads an ad-hoc location using global settings only
func (l *Loader) LoadLocation(ctx context.Context, location string) (*Document, error) {
	docCfg := config.DocumentConfig{Location: location}
	if _, err := docCfg.Validate(); err != nil {
		return nil, err
	}
	return l.Load(ctx, utils.DocKeyFromLocation(location), docCfg)
}

// Load reads the document described by docCfg. docCfg must already be validated.
func (l *Loader) Load(ctx context.Context, key string, docCfg config.DocumentConfig) (*Document, error) {
	docLog := l.log.WithFields(logrus.Fields{"doc": key, "location": docCfg.Location})

	var raw []byte
	var err error
	if config.IsRemote(docCfg.Location) {
		raw, err = l.loadRemote(ctx, docCfg, docLog)
	} else {
		raw, err = l.loadFile(docCfg.Location)
	}
	if err != nil {
		docLog.WithField("error_type", utils.CategorizeError(err)).Warnf("Loading source failed: %v", err)
		return nil, err
	}

	doc := &Document{
		Key:      key,
		Location: docCfg.Location,
		Format:   docCfg.Format,
		LoadedAt: time.Now(),
	}
	if docCfg.Format == config.FormatHTML {
		selector := config.GetEffectiveContentSelector(docCfg, l.appCfg)
		doc.Markdown, doc.Title, err = HTMLToMarkdown(string(raw), selector, l.detector, hostOf(docCfg.Location))
		if err != nil {
			docLog.Warnf("HTML conversion failed: %v", err)
			return nil, err
		}
	} else {
		doc.Markdown = string(raw)
	}
	doc.ContentHash = utils.CalculateStringSHA256(doc.Markdown)
	docLog.WithField("bytes", len(raw)).Debug("Source loaded")
	return doc, nil
}

func (l *Loader) tooLarge(size int64) bool {
	return l.appCfg.MaxSourceBytes > 0 && size > l.appCfg.MaxSourceBytes
}

func (l *Loader) loadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrFilesystem, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", utils.ErrFilesystem, path)
	}
	if l.tooLarge(info.Size()) {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", utils.ErrSourceTooLarge, path, info.Size(), l.appCfg.MaxSourceBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrFilesystem, err)
	}
	return data, nil
}

func (l *Loader) loadRemote(ctx context.Context, docCfg config.DocumentConfig, docLog *logrus.Entry) ([]byte, error) {
	target, err := url.Parse(docCfg.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: URL %q: %w", utils.ErrParsing, docCfg.Location, err)
	}
	userAgent := config.GetEffectiveUserAgent(docCfg, l.appCfg)

	if config.GetEffectiveRespectRobots(docCfg, l.appCfg) {
		if err := l.robots.Check(ctx, target, userAgent); err != nil {
			return nil, err
		}
	}

	host := target.Hostname()
	acquireCtx := ctx
	if l.appCfg.SemaphoreAcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, l.appCfg.SemaphoreAcquireTimeout)
		defer cancel()
	}
	release, err := l.hosts.Acquire(acquireCtx, host)
	if err != nil {
		return nil, fmt.Errorf("waiting for host slot %s: %w", host, err)
	}
	defer release()

	l.limiter.ApplyDelay(ctx, host, config.GetEffectiveDelayPerHost(docCfg, l.appCfg))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", utils.ErrParsing, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := l.fetcher.FetchWithRetry(ctx, req)
	l.limiter.UpdateLastRequestTime(host)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	defer resp.Body.Close()

	if l.tooLarge(resp.ContentLength) {
		return nil, fmt.Errorf("%w: %s declares %d bytes (limit %d)", utils.ErrSourceTooLarge, target, resp.ContentLength, l.appCfg.MaxSourceBytes)
	}
	var body io.Reader = resp.Body
	if l.appCfg.MaxSourceBytes > 0 {
		body = io.LimitReader(resp.Body, l.appCfg.MaxSourceBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", target, err)
	}
	if l.tooLarge(int64(len(data))) {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", utils.ErrSourceTooLarge, target, l.appCfg.MaxSourceBytes)
	}
	docLog.WithField("status_code", resp.StatusCode).Debug("Fetched remote source")
	return data, nil
}

func hostOf(location string) string {
	if !config.IsRemote(location) {
		return ""
	}
	if u, err := url.Parse(location); err == nil {
		return u.Hostname()
	}
	return ""
}

// HTMLToMarkdown converts the content element of html to markdown. selector is either "auto",
// which lets detector (required) recognise the site generator of host, or a comma-separated list of
// selectors tried in order. Headings come out in ATX style so the pattern extractor sees them.
func HTMLToMarkdown(html, selector string, detector *detect.Detector, host string) (markdown, title string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("%w: HTML: %w", utils.ErrParsing, err)
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())

	content, _, ok := detector.Resolve(doc, selector, host).Select(doc)
	if !ok {
		return "", title, fmt.Errorf("%w: selector '%s'", utils.ErrContentSelector, selector)
	}

	raw, err := goquery.OuterHtml(content)
	if err != nil {
		return "", title, fmt.Errorf("%w: HTML: %w", utils.ErrParsing, err)
	}
	converter := md.NewConverter("", true, &md.Options{HeadingStyle: "atx"})
	markdown, err = converter.ConvertString(raw)
	if err != nil {
		return "", title, fmt.Errorf("%w: %w", utils.ErrMarkdownConversion, err)
	}
	return markdown, title, nil
}
