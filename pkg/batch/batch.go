// Package batch extracts outlines from many documents with bounded concurrency.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/Sriram-PR/md-navbar/pkg/config"
	"github.com/Sriram-PR/md-navbar/pkg/models"
	"github.com/Sriram-PR/md-navbar/pkg/outline"
	"github.com/Sriram-PR/md-navbar/pkg/parse"
	"github.com/Sriram-PR/md-navbar/pkg/source"
	"github.com/Sriram-PR/md-navbar/pkg/storage"
	"github.com/Sriram-PR/md-navbar/pkg/utils"
)

// Job names one document to outline
type Job struct {
	Key string
	Doc config.DocumentConfig
}

// Runner loads documents in parallel, bounded by max_concurrent_sources
type Runner struct {
	appCfg *config.AppConfig
	loader *source.Loader
	cache  storage.OutlineCache // Optional
	sem    *semaphore.Weighted
	log    *logrus.Entry
}

// NewRunner creates a Runner. cache may be nil to always extract.
func NewRunner(appCfg *config.AppConfig, loader *source.Loader, cache storage.OutlineCache, log *logrus.Entry) *Runner {
	limit := int64(appCfg.MaxConcurrentSources)
	if limit <= 0 {
		limit = 1
	}
	return &Runner{
		appCfg: appCfg,
		loader: loader,
		cache:  cache,
		sem:    semaphore.NewWeighted(limit),
		log:    log,
	}
}

// Run outlines every job and returns results in job order
func (r *Runner) Run(ctx context.Context, jobs []Job) models.OutlineReport {
	start := time.Now()
	r.log.Infof("Outlining %d document(s)", len(jobs))

	results := make([]models.SourceResult, len(jobs))
	for i, job := range jobs {
		results[i] = models.SourceResult{DocKey: job.Key, Location: job.Doc.Location, Status: models.SourceStatusPending}
	}

	var wg sync.WaitGroup
	for i, job := range jobs {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			results[i] = failed(results[i], err)
			continue
		}
		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()
			defer r.sem.Release(1)
			results[i] = r.Outline(ctx, job)
		}(i, job)
	}
	wg.Wait()

	report := models.OutlineReport{GeneratedAt: time.Now(), Documents: results}
	r.logSummary(report, time.Since(start))
	return report
}

// Outline loads and outlines a single document
func (r *Runner) Outline(ctx context.Context, job Job) models.SourceResult {
	start := time.Now()
	extractor := config.GetEffectiveExtractor(job.Doc, *r.appCfg)
	result := models.SourceResult{DocKey: job.Key, Location: job.Doc.Location, Extractor: extractor}
	jobLog := r.log.WithFields(logrus.Fields{"doc": job.Key, "extractor": extractor})

	doc, err := r.loader.Load(ctx, job.Key, job.Doc)
	if err != nil {
		result = failed(result, err)
		result.Duration = time.Since(start)
		return result
	}
	result.ContentHash = doc.ContentHash

	if r.cache != nil {
		entry, found, err := r.cache.GetOutline(doc.ContentHash, extractor)
		if err != nil {
			jobLog.Warnf("Outline cache lookup failed: %v", err)
		} else if found {
			result.Headings = entry.Headings
			result.Cached = true
		}
	}
	if !result.Cached {
		result.Headings = outline.ExtractorByName(extractor)(doc.Markdown)
		if r.cache != nil {
			entry := &models.OutlineEntry{ContentHash: doc.ContentHash, Extractor: extractor, Headings: result.Headings}
			if err := r.cache.PutOutline(entry); err != nil {
				jobLog.Warnf("Caching outline failed: %v", err)
			}
		}
	}
	if result.Headings == nil {
		result.Headings = []outline.Heading{}
	}

	result.Status = models.SourceStatusSuccess
	result.Duration = time.Since(start)
	jobLog.WithFields(logrus.Fields{"headings": len(result.Headings), "cached": result.Cached}).Debug("Outline extracted")
	return result
}

// failed records err on result. Policy refusals count as skipped, not failed.
func failed(result models.SourceResult, err error) models.SourceResult {
	result.Status = models.SourceStatusFailure
	if errors.Is(err, utils.ErrRobotsDisallowed) || errors.Is(err, utils.ErrSourceTooLarge) {
		result.Status = models.SourceStatusSkipped
	}
	result.ErrorType = utils.CategorizeError(err)
	result.Error = err.Error()
	return result
}

func (r *Runner) logSummary(report models.OutlineReport, total time.Duration) {
	counts := report.Counts()
	for _, d := range report.Documents {
		entry := r.log.WithFields(logrus.Fields{"doc": d.DocKey, "status": d.Status.String(), "duration": d.Duration})
		if d.Error != "" {
			entry.WithField("error_type", d.ErrorType).Warn(d.Error)
			continue
		}
		entry.Infof("%d heading(s)", len(d.Headings))
	}
	r.log.Infof("Outlined %d document(s) in %v (%d success, %d skipped, %d failed)",
		len(report.Documents), total,
		counts[models.SourceStatusSuccess], counts[models.SourceStatusSkipped], counts[models.SourceStatusFailure])
}

// JobsFromConfig builds jobs for the named documents, or every configured document when keys is empty
func JobsFromConfig(appCfg *config.AppConfig, keys []string) ([]Job, error) {
	if len(keys) == 0 {
		keys = DocumentKeys(appCfg)
	}
	jobs := make([]Job, 0, len(keys))
	for _, key := range keys {
		docCfg, exists := appCfg.Documents[key]
		if !exists {
			return nil, fmt.Errorf("document '%s' not found. Available documents: %v", key, DocumentKeys(appCfg))
		}
		if _, err := docCfg.Validate(); err != nil {
			return nil, utils.WrapErrorf(err, "document '%s'", key)
		}
		jobs = append(jobs, Job{Key: key, Doc: docCfg})
	}
	return jobs, nil
}

// JobsFromLocations builds jobs for ad-hoc files or URLs keyed by their derived document key.
// Locations that normalize to the same source are outlined once.
func JobsFromLocations(locations []string) ([]Job, error) {
	jobs := make([]Job, 0, len(locations))
	seen := make(map[string]bool, len(locations))
	for _, location := range locations {
		normalized := parse.NormalizeLocation(location)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		docCfg := config.DocumentConfig{Location: normalized}
		if _, err := docCfg.Validate(); err != nil {
			return nil, err
		}
		jobs = append(jobs, Job{Key: utils.DocKeyFromLocation(docCfg.Location), Doc: docCfg})
	}
	return jobs, nil
}

// DocumentKeys returns the configured document keys in sorted order
func DocumentKeys(appCfg *config.AppConfig) []string {
	keys := make([]string, 0, len(appCfg.Documents))
	for k := range appCfg.Documents {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
