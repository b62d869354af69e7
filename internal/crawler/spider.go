package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// Page is what a Fetcher extracts from one downloaded document.
type Page struct {
	// Links are the raw attribute values in document order, unresolved.
	Links []string

	// Base is the href of the document's <base> element, or "".
	Base string
}

// Fetcher downloads a page and returns the raw URL strings it links to.
// A nil Page means the document carried no links.
type Fetcher interface {
	FetchLinks(ctx context.Context, rawURL string) (*Page, error)
}

// Entry is one item of the frontier queue.
type Entry struct {
	URL   string
	Depth int
}

// Phase is the lifecycle state of a crawl.
type Phase int

const (
	// PhaseRunning means the frontier has entries waiting for dispatch.
	PhaseRunning Phase = iota
	// PhaseDraining means the frontier is empty but workers are still busy.
	// A result that admits new links moves the crawl back to PhaseRunning.
	PhaseDraining
	// PhaseDone means the frontier and the worker pool are both empty.
	PhaseDone
	// PhaseInterrupted means the context was cancelled before PhaseDone.
	PhaseInterrupted
)

// String returns the lower-case name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseDraining:
		return "draining"
	case PhaseDone:
		return "done"
	case PhaseInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// CrawlResult is what a finished or interrupted crawl hands to the report
// assembler.
type CrawlResult struct {
	// Seed is the normalized seed URL.
	Seed string

	// Snapshot is the scan state at completion or at the instant of
	// cancellation.
	Snapshot Snapshot

	Phase Phase

	// Drops counts admission decisions by outcome, Admitted included.
	Drops map[Admission]int

	// Probes is the number of reachability probes sent.
	Probes int64

	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the crawl ran.
func (r *CrawlResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// paginationPattern matches the page number of a "/page/<N>" path segment.
var paginationPattern = regexp.MustCompile(`/page/(\d+)(?:/|$)`)

// Spider is the crawl engine. One Spider may run any number of crawls, one
// after another or concurrently; each call to Crawl has its own state.
type Spider struct {
	fetcher Fetcher
	prober  Prober

	// maxDepth bounds the BFS distance from the seed. 0 crawls the seed only.
	maxDepth int

	// maxPagesPerSection bounds N in "/page/<N>" pagination URLs.
	maxPagesPerSection int

	excludePaths  []string
	concurrency   int
	trustShortcut bool

	// delayMin and delayMax bound the random pause a worker takes after
	// each entry.
	delayMin time.Duration
	delayMax time.Duration

	logger      *slog.Logger
	onAdmission func(Decision)
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seed, 1 = the seed plus the pages it links to, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPagesPerSection sets the highest pagination number that is fetched.
func WithMaxPagesPerSection(n int) SpiderOption {
	return func(s *Spider) {
		s.maxPagesPerSection = n
	}
}

// WithExcludePaths replaces the exclude path substrings.
func WithExcludePaths(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.excludePaths = append([]string(nil), patterns...)
	}
}

// WithConcurrency sets the number of workers. Values below 1 are ignored.
func WithConcurrency(n int) SpiderOption {
	return func(s *Spider) {
		if n >= 1 {
			s.concurrency = n
		}
	}
}

// WithTrustShortcut enables or disables the category and pagination
// trust shortcut of the status cache.
func WithTrustShortcut(enabled bool) SpiderOption {
	return func(s *Spider) {
		s.trustShortcut = enabled
	}
}

// WithDelay sets the bounds of the random pause between two entries handled
// by the same worker. Zero disables the pause.
func WithDelay(minDelay, maxDelay time.Duration) SpiderOption {
	return func(s *Spider) {
		if maxDelay < minDelay {
			maxDelay = minDelay
		}
		s.delayMin = minDelay
		s.delayMax = maxDelay
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithAdmissionHook registers a function called for every admission
// decision. The hook runs on the coordinator goroutine and must not block.
func WithAdmissionHook(hook func(Decision)) SpiderOption {
	return func(s *Spider) {
		s.onAdmission = hook
	}
}

// NewSpider creates a Spider that downloads pages with fetcher and checks
// reachability with prober.
func NewSpider(fetcher Fetcher, prober Prober, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:            fetcher,
		prober:             prober,
		maxDepth:           2,
		maxPagesPerSection: 20,
		excludePaths:       append([]string(nil), DefaultExcludePaths...),
		concurrency:        3,
		trustShortcut:      true,
		delayMin:           1 * time.Second,
		delayMax:           3 * time.Second,
		logger:             slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Crawl runs a breadth-first crawl from seed.
//
// An invalid seed returns ErrInvalidURL and a nil result. Otherwise the
// result is always non-nil. When ctx is cancelled, dispatch stops at once,
// in-flight work is abandoned, and the result carries the state at that
// instant together with ctx.Err().
func (s *Spider) Crawl(ctx context.Context, seed string) (*CrawlResult, error) {
	start, err := Normalize(seed, "")
	if err != nil {
		return nil, err
	}

	state := NewScanState()
	cache := NewStatusCache(s.prober,
		WithTrustShortcutRule(s.trustShortcut),
		WithStatusLogger(s.logger),
	)

	r := &run{
		spider:        s,
		state:         state,
		cache:         cache,
		drops:         make(map[Admission]int),
		checkFailures: make(map[string]struct{}),
		inFlight:      make(map[int]int),
		result:        &CrawlResult{Seed: start, StartedAt: time.Now()},
	}

	state.TryVisit(start)
	state.SetDepth(start, 0)
	r.decide(Decision{URL: start, Depth: 0, Admission: Admitted})
	r.queue = append(r.queue, Entry{URL: start, Depth: 0})

	s.logger.Info("crawl started", "seed", start, "max_depth", s.maxDepth, "concurrency", s.concurrency)

	err = r.loop(ctx)

	r.result.FinishedAt = time.Now()
	r.result.Drops = r.drops
	r.result.Probes = cache.Probes()

	s.logger.Info("crawl finished",
		"seed", start,
		"phase", r.result.Phase.String(),
		"visited", len(r.result.Snapshot.Visited),
		"valid", len(r.result.Snapshot.Valid),
		"invalid", len(r.result.Snapshot.Invalid),
		"errors", len(r.result.Snapshot.Errors),
	)

	return r.result, err
}

// run holds the per-crawl state owned by the coordinator goroutine.
type run struct {
	spider *Spider
	state  *ScanState
	cache  *StatusCache
	queue  []Entry
	drops  map[Admission]int
	result *CrawlResult

	// checkFailures holds the URLs whose failed check is already logged.
	checkFailures map[string]struct{}

	// inFlight counts dispatched entries per depth that have not reported back.
	inFlight map[int]int
}

// discovery is a link found by a worker together with its resolved status.
type discovery struct {
	url    string
	status Status
}

// checkFailure is a reachability check that failed in transport.
type checkFailure struct {
	url string
	err error
}

// pageResult is what a worker sends back to the coordinator for one entry.
type pageResult struct {
	entry         Entry
	status        Status
	discoveries   []discovery
	drops         []Decision
	errs          []string
	checkFailures []checkFailure

	// aborted is set when the context was cancelled while the entry was
	// being processed; such results are discarded.
	aborted bool
}

// loop is the coordinator. It is the only goroutine that touches r.queue
// and the only one that classifies URLs in r.state.
func (r *run) loop(ctx context.Context) error {
	s := r.spider

	jobs := make(chan Entry)
	results := make(chan pageResult, s.concurrency)

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var wg sync.WaitGroup
	for range s.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.work(workerCtx, jobs, results)
		}()
	}

	inFlight := 0
	r.result.Phase = PhaseRunning

	interrupt := func() error {
		r.result.Phase = PhaseInterrupted
		r.result.Snapshot = r.state.Snapshot()
		close(jobs)
		s.logger.Warn("crawl interrupted", "queued", len(r.queue), "in_flight", inFlight)
		return ctx.Err()
	}

	for {
		if ctx.Err() != nil {
			return interrupt()
		}
		r.dropPaginated()

		var (
			next Entry
			out  chan<- Entry
		)
		switch {
		case len(r.queue) > 0:
			next = r.queue[0]
			// The head waits while shallower entries are still in flight,
			// so a URL is always first discovered at its BFS distance.
			// A nil out leaves only results and ctx to select on.
			if !r.shallowerInFlight(next.Depth) {
				out = jobs
			}
			r.result.Phase = PhaseRunning
		case inFlight > 0:
			r.result.Phase = PhaseDraining
		default:
			r.result.Phase = PhaseDone
			r.result.Snapshot = r.state.Snapshot()
			close(jobs)
			cancelWorkers()
			wg.Wait()
			return nil
		}

		select {
		case <-ctx.Done():
			return interrupt()
		case out <- next:
			r.queue = r.queue[1:]
			inFlight++
			r.inFlight[next.Depth]++
		case res := <-results:
			inFlight--
			r.inFlight[res.entry.Depth]--
			if !res.aborted && ctx.Err() == nil {
				r.apply(res)
			}
		}
	}
}

// shallowerInFlight reports whether an entry shallower than depth is still
// being processed.
func (r *run) shallowerInFlight(depth int) bool {
	for d, n := range r.inFlight {
		if d < depth && n > 0 {
			return true
		}
	}
	return false
}

// dropPaginated discards entries at the head of the queue whose pagination
// number exceeds the per-section limit.
func (r *run) dropPaginated() {
	for len(r.queue) > 0 {
		head := r.queue[0]
		if !r.spider.beyondPageLimit(head.URL) {
			return
		}
		r.queue = r.queue[1:]
		r.decide(Decision{URL: head.URL, Depth: head.Depth, Admission: PaginationExceeded})
	}
}

// apply merges one worker result into the scan state.
func (r *run) apply(res pageResult) {
	for _, f := range res.checkFailures {
		// Workers sharing one check all report its failure.
		if _, seen := r.checkFailures[f.url]; seen {
			continue
		}
		r.checkFailures[f.url] = struct{}{}
		r.state.RecordError(fmt.Sprintf("error checking %s: %v", f.url, f.err))
	}
	for _, msg := range res.errs {
		r.state.RecordError(msg)
	}

	if res.status.Valid {
		r.state.MarkValid(res.entry.URL)
	} else {
		r.state.MarkInvalid(res.entry.URL)
	}

	for _, d := range res.drops {
		r.decide(d)
	}

	depth := res.entry.Depth + 1
	for _, found := range res.discoveries {
		d := Decision{URL: found.url, Source: res.entry.URL, Depth: depth}

		if !r.state.TryVisit(found.url) {
			d.Admission = AlreadyVisited
			r.decide(d)
			continue
		}

		if !found.status.Valid {
			r.state.MarkInvalid(found.url)
			d.Admission = Unreachable
			r.decide(d)
			continue
		}

		r.state.MarkValid(found.url)
		if depth > r.spider.maxDepth {
			d.Admission = DepthExceeded
			r.decide(d)
			continue
		}

		r.state.SetDepth(found.url, depth)
		r.queue = append(r.queue, Entry{URL: found.url, Depth: depth})
		d.Admission = Admitted
		r.decide(d)
	}
}

func (r *run) decide(d Decision) {
	r.drops[d.Admission]++
	if d.Admission != Admitted {
		r.spider.logger.Debug("link dropped", "url", d.URL, "source", d.Source, "reason", d.Admission.String())
	}
	if r.spider.onAdmission != nil {
		r.spider.onAdmission(d)
	}
}

// work is the worker loop. It returns when jobs is closed or ctx is done.
func (r *run) work(ctx context.Context, jobs <-chan Entry, results chan<- pageResult) {
	for e := range jobs {
		res := r.process(ctx, e)
		select {
		case results <- res:
		case <-ctx.Done():
			return
		}
		r.spider.pause(ctx)
	}
}

// process handles one frontier entry. It never mutates the classification
// sets; everything it learns goes into the returned pageResult.
func (r *run) process(ctx context.Context, e Entry) (res pageResult) {
	s := r.spider
	res.entry = e

	defer func() {
		if v := recover(); v != nil {
			res.errs = append(res.errs, fmt.Sprintf("panic while processing %s: %v", e.URL, v))
			s.logger.Error("worker panic", "url", e.URL, "panic", v)
		}
		if ctx.Err() != nil {
			res.aborted = true
		}
	}()

	res.status = r.resolve(ctx, &res, e.URL)
	if !res.status.Valid {
		return res
	}

	s.logger.Info("crawling", "url", e.URL, "depth", e.Depth)

	page, err := s.fetcher.FetchLinks(ctx, e.URL)
	if err != nil {
		res.errs = append(res.errs, fmt.Sprintf("error crawling %s: %v", e.URL, err))
		return res
	}
	if page == nil {
		return res
	}

	base := baseOf(e.URL, page.Base)
	onPage := make(map[string]struct{}, len(page.Links))
	for _, raw := range page.Links {
		d := Decision{URL: raw, Source: e.URL, Depth: e.Depth + 1}

		if IsExcluded(raw, s.excludePaths) {
			d.Admission = Excluded
			res.drops = append(res.drops, d)
			continue
		}

		u, err := Normalize(raw, base)
		if err != nil {
			d.Admission = InvalidLink
			res.drops = append(res.drops, d)
			continue
		}
		d.URL = u

		if !SameAuthority(u, e.URL) {
			d.Admission = ForeignAuthority
			res.drops = append(res.drops, d)
			continue
		}

		if _, dup := onPage[u]; dup || r.state.Seen(u) {
			d.Admission = AlreadyVisited
			res.drops = append(res.drops, d)
			continue
		}
		onPage[u] = struct{}{}

		res.discoveries = append(res.discoveries, discovery{url: u})
	}

	for i := range res.discoveries {
		if ctx.Err() != nil {
			break
		}
		res.discoveries[i].status = r.resolve(ctx, &res, res.discoveries[i].url)
	}

	return res
}

// resolve returns the status of u and notes a failed check in res.
func (r *run) resolve(ctx context.Context, res *pageResult, u string) Status {
	status, err := r.cache.Resolve(ctx, u)
	if err != nil {
		res.checkFailures = append(res.checkFailures, checkFailure{url: u, err: err})
	}
	return status
}

// baseOf returns the URL relative links of pageURL resolve against: the
// page itself, or its <base href> resolved against the page.
func baseOf(pageURL, baseHref string) string {
	if baseHref == "" {
		return pageURL
	}
	page, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	ref, err := url.Parse(baseHref)
	if err != nil {
		return pageURL
	}
	return page.ResolveReference(ref).String()
}

// beyondPageLimit reports whether rawURL is a pagination page numbered
// above maxPagesPerSection.
func (s *Spider) beyondPageLimit(rawURL string) bool {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	m := paginationPattern.FindStringSubmatch(path)
	if m == nil {
		return false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// Only digits are captured, so this is an overflow.
		return true
	}
	return n > s.maxPagesPerSection
}

// pause sleeps for a random duration in [delayMin, delayMax] or until ctx
// is done.
func (s *Spider) pause(ctx context.Context) {
	d := s.delayMin
	if span := s.delayMax - s.delayMin; span > 0 {
		d += time.Duration(rand.Int64N(int64(span) + 1)) //nolint:gosec // jitter, not security
	}
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
