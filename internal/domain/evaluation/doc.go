// Package evaluation holds the data model of a URL risk evaluation: the
// ordered findings, the monotonically increasing score, and the certificate
// facts used as a trust proxy.
package evaluation
