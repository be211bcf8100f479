package checker

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/khanhnv2901/phishcheck/internal/domain/evaluation"
)

// Finding messages, in pipeline order.
const (
	MsgInvalidURL        = "The URL could not be parsed."
	MsgUnreachable       = "Unable to access the website."
	MsgUnrelatedRedirect = "The website redirects to an unrelated or suspicious external site."
	MsgUntrustedDownload = "The website prompts downloads from untrusted sources."
	MsgShortTitle        = "The website has no title or a suspiciously short one."
	MsgTitleOK           = "The website title seems appropriate for its content."
	MsgNewDomain         = "The domain is very new and lacks sufficient trust signals."
	MsgDomainAgeFormat   = "The domain has been registered for %d year(s) and shows a strong trust signal."
	MsgCertUnverified    = "Unable to verify domain age or SSL information."
	MsgNoBadRedirect     = "The website does not redirect to suspicious external sites."
	MsgTrustedLinks      = "The website's external links are to trusted sources."
	MsgNoBadDownloads    = "No suspicious downloads were found on the website."
)

// minTitleLength is the shortest title, in characters, that is not flagged.
const minTitleLength = 5

// Checker evaluates a single URL.
type Checker interface {
	Evaluate(ctx context.Context, rawURL string) evaluation.Result
}

// Config assembles an Evaluator with the network defaults.
type Config struct {
	FetchTimeout        time.Duration
	CertTimeout         time.Duration
	MaxBodyBytes        int64
	MaxRedirects        int
	UserAgent           string
	GroupMode           GroupMode
	ReferenceYear       int
	ProbeOnFetchFailure bool
	InvalidURLFinding   bool
	Logger              *zap.Logger
}

// Evaluator runs the heuristic pipeline. It holds no per-evaluation state and
// is safe for concurrent use once built.
type Evaluator struct {
	Fetcher  Fetcher
	Prober   CertificateProber
	Relation Relation
	// ProbeOnFetchFailure keeps the certificate branch alive when the page
	// cannot be fetched. Off, an unreachable site yields exactly one finding.
	ProbeOnFetchFailure bool
	// InvalidURLFinding adds an unscored warning when the input has no host.
	InvalidURLFinding bool
	Logger            *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewEvaluator builds an Evaluator backed by HTTPFetcher and TLSProber.
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{
		Fetcher: &HTTPFetcher{
			Timeout:      cfg.FetchTimeout,
			MaxRedirects: cfg.MaxRedirects,
			MaxBodyBytes: cfg.MaxBodyBytes,
			UserAgent:    cfg.UserAgent,
		},
		Prober: &TLSProber{
			Timeout:       cfg.CertTimeout,
			ReferenceYear: cfg.ReferenceYear,
		},
		Relation:            RelationFor(cfg.GroupMode),
		ProbeOnFetchFailure: cfg.ProbeOnFetchFailure,
		InvalidURLFinding:   cfg.InvalidURLFinding,
		Logger:              cfg.Logger,
	}
}

type certOutcome struct {
	info evaluation.CertificateInfo
	err  error
}

// Evaluate scores rawURL. It never fails: network and parse problems become
// findings. The page fetch and the certificate probe run concurrently, but
// findings are always appended in step order.
func (e *Evaluator) Evaluate(ctx context.Context, rawURL string) evaluation.Result {
	start := e.now()
	logger := e.logger().With(zap.String("url", rawURL))

	domain := DomainOf(rawURL)
	acc := evaluation.NewAccumulator()
	if domain == "" && e.InvalidURLFinding {
		acc.Note(MsgInvalidURL)
	}

	probeCtx, cancelProbe := context.WithCancel(ctx)
	defer cancelProbe()

	certCh := make(chan certOutcome, 1)
	go func() {
		info, err := e.Prober.EstimateTrustAge(probeCtx, domain)
		certCh <- certOutcome{info: info, err: err}
	}()

	page, err := e.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		logger.Debug("fetch failed", zap.Error(err))
		acc.Note(MsgUnreachable)

		var cert *evaluation.CertificateInfo
		if e.ProbeOnFetchFailure {
			cert = e.checkCertificate(acc, <-certCh, logger)
		} else {
			cancelProbe()
		}
		return e.finish(cert, acc, rawURL, domain, "", start)
	}

	e.checkRedirect(acc, rawURL, page.FinalURL, domain)
	e.checkDownloads(acc, page.Body, domain, logger)
	e.checkTitle(acc, page.Body)

	cert := e.checkCertificate(acc, <-certCh, logger)

	if acc.Score() == 0 {
		acc.OK(MsgNoBadRedirect)
		acc.OK(MsgTrustedLinks)
		acc.OK(MsgNoBadDownloads)
	}

	return e.finish(cert, acc, rawURL, domain, page.FinalURL, start)
}

func (e *Evaluator) checkRedirect(acc *evaluation.Accumulator, rawURL, finalURL, domain string) {
	if finalURL == rawURL {
		return
	}
	if !e.related(DomainOf(finalURL), domain) {
		acc.Warn(MsgUnrelatedRedirect)
	}
}

func (e *Evaluator) checkDownloads(acc *evaluation.Accumulator, body, domain string, logger *zap.Logger) {
	link, found := FirstUntrustedDownload(ExtractLinks(body), domain, e.related)
	if !found {
		return
	}
	logger.Debug("untrusted download link", zap.String("link", link))
	acc.Warn(MsgUntrustedDownload)
}

func (e *Evaluator) checkTitle(acc *evaluation.Accumulator, body string) {
	title, ok := ExtractTitle(body)
	if ok && utf8.RuneCountInString(title) < minTitleLength {
		acc.Warn(MsgShortTitle)
		return
	}
	acc.OK(MsgTitleOK)
}

func (e *Evaluator) checkCertificate(acc *evaluation.Accumulator, out certOutcome, logger *zap.Logger) *evaluation.CertificateInfo {
	if out.err != nil {
		logger.Debug("certificate probe failed", zap.Error(out.err))
		acc.Note(MsgCertUnverified)
		return nil
	}
	if out.info.AgeYears < 1 {
		acc.Warn(MsgNewDomain)
	} else {
		acc.OK(fmt.Sprintf(MsgDomainAgeFormat, out.info.AgeYears))
	}
	info := out.info
	return &info
}

func (e *Evaluator) finish(cert *evaluation.CertificateInfo, acc *evaluation.Accumulator, rawURL, domain, finalURL string, start time.Time) evaluation.Result {
	res := acc.Result()
	res.Certificate = cert
	res.URL = rawURL
	res.Domain = domain
	res.FinalURL = finalURL
	res.CheckedAt = start.UTC()
	res.DurationMs = e.now().Sub(start).Milliseconds()

	e.logger().Info("evaluation complete",
		zap.String("url", rawURL),
		zap.String("domain", domain),
		zap.Int("score", res.Score),
		zap.Int("findings", len(res.Findings)),
		zap.Int64("duration_ms", res.DurationMs),
	)
	return res
}

func (e *Evaluator) related(a, b string) bool {
	if e.Relation == nil {
		return SameGroup(a, b)
	}
	return e.Relation(a, b)
}

func (e *Evaluator) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Evaluator) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}
