package checker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/khanhnv2901/phishcheck/internal/domain/evaluation"
	"github.com/khanhnv2901/phishcheck/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/phishcheck/internal/shared/errors"
)

var errNoPeerCertificate = errors.New("no peer certificate presented")

// CertificateProber estimates how long a domain has held a certificate.
type CertificateProber interface {
	EstimateTrustAge(ctx context.Context, domain string) (evaluation.CertificateInfo, error)
}

// CertificateError reports that the domain certificate could not be retrieved.
type CertificateError struct {
	Domain string
	Err    error
}

func (e *CertificateError) Error() string {
	return fmt.Sprintf("certificate %s: %v", e.Domain, e.Err)
}

func (e *CertificateError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, errors.ErrCertificate) match any CertificateError.
func (e *CertificateError) Is(target error) bool {
	return target == sharedErrors.ErrCertificate
}

// TLSProber opens a TLS connection directly to the domain and reads the leaf
// certificate. No HTTP request is made.
type TLSProber struct {
	Timeout time.Duration
	Port    string
	// RootCAs overrides the system pool; nil uses the host's roots.
	RootCAs *x509.CertPool
	// ReferenceYear pins the year ages are measured from. Zero means the current year.
	ReferenceYear int
	// Now defaults to time.Now.
	Now func() time.Time
	// DialContext overrides the TCP dial; nil uses a net.Dialer.
	DialContext func(ctx context.Context, network, addr string) (net.Conn, error)
}

// EstimateTrustAge dials domain, verifies the chain and hostname, and returns
// the certificate age in whole calendar years. Internationalized names are
// dialed and verified in their punycode form.
func (p *TLSProber) EstimateTrustAge(ctx context.Context, domain string) (evaluation.CertificateInfo, error) {
	info := evaluation.CertificateInfo{Domain: domain}
	if domain == "" {
		return info, &CertificateError{Domain: domain, Err: sharedErrors.ErrInvalidURL}
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultCertTimeout
	}
	port := p.Port
	if port == "" {
		port = constants.DefaultTLSPort
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	host := ASCIIHost(domain)
	rawConn, err := p.dial(ctx, timeout, net.JoinHostPort(host, port))
	if err != nil {
		return info, &CertificateError{Domain: domain, Err: err}
	}
	defer rawConn.Close()

	tlsConn := tls.Client(rawConn, &tls.Config{
		ServerName: host,
		RootCAs:    p.RootCAs,
		MinVersion: tls.VersionTLS12,
	})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return info, &CertificateError{Domain: domain, Err: err}
	}

	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return info, &CertificateError{Domain: domain, Err: errNoPeerCertificate}
	}

	leaf := state.PeerCertificates[0]
	info.NotBefore = leaf.NotBefore
	info.Issuer = issuerName(leaf)
	info.AgeYears = AgeInYears(leaf.NotBefore, p.referenceYear())
	return info, nil
}

func (p *TLSProber) dial(ctx context.Context, timeout time.Duration, addr string) (net.Conn, error) {
	if p.DialContext != nil {
		return p.DialContext(ctx, "tcp", addr)
	}
	d := &net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, "tcp", addr)
}

// AgeInYears is referenceYear minus the year of notBefore. A zero notBefore
// counts as unknown and yields 0.
func AgeInYears(notBefore time.Time, referenceYear int) int {
	if notBefore.IsZero() {
		return 0
	}
	return referenceYear - notBefore.UTC().Year()
}

func (p *TLSProber) referenceYear() int {
	if p.ReferenceYear != 0 {
		return p.ReferenceYear
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return now().UTC().Year()
}

func issuerName(cert *x509.Certificate) string {
	if cert.Issuer.CommonName != "" {
		return cert.Issuer.CommonName
	}
	if len(cert.Issuer.Organization) > 0 {
		return cert.Issuer.Organization[0]
	}
	return ""
}
