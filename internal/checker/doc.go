// Package checker implements the URL phishing-risk heuristics.
//
// Architecture overview:
//
//   - Evaluator drives the pipeline: fetch, redirect comparison, download-link
//     scan, title check, certificate age check, and the clean-bill summary.
//     Findings are appended in that order no matter which network call
//     finishes first.
//   - Fetcher (HTTPFetcher) and CertificateProber (TLSProber) are the only
//     components doing network I/O. Their failures surface as FetchError and
//     CertificateError and are downgraded to findings inside Evaluate.
//   - SameGroup, ExtractLinks and ExtractTitle are pure helpers. Page
//     scanning is pattern based; no DOM is built.
//   - Runner evaluates URL batches with a worker pool and a rate limiter,
//     invoking an AuditFunc per URL.
//
// The score is a best-effort heuristic, not a security verdict.
package checker
