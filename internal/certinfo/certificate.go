// Package certinfo parses PEM certificate material into an immutable
// descriptor used for validation and idempotency comparison.
package certinfo

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"strings"
	"time"

	cerrors "github.com/systmms/certrenew/internal/errors"
)

// FingerprintPrefix tags the hash algorithm used for fingerprints.
const FingerprintPrefix = "sha256:"

// Descriptor holds the parsed form of one certificate plus its private
// key material. For certificate chains only the leaf is parsed; the full
// chain bytes are preserved for upload. Immutable after construction.
type Descriptor struct {
	pemCert     []byte
	pemKey      []byte
	domains     []string
	notBefore   time.Time
	notAfter    time.Time
	issuer      string
	fingerprint string
}

// Parse builds a Descriptor from raw PEM certificate and key bytes.
// The key is not parsed beyond a PEM block check; the cloud API is the
// authority on whether the pair matches.
func Parse(pemCert, pemKey []byte) (*Descriptor, error) {
	leaf, err := parseLeaf(pemCert)
	if err != nil {
		return nil, err
	}

	if len(pemKey) > 0 {
		block, _ := pem.Decode(pemKey)
		if block == nil {
			return nil, cerrors.CertificateValidationError{
				Message: "private key is not valid PEM",
			}
		}
	}

	domains := make([]string, 0, len(leaf.DNSNames)+1)
	if leaf.Subject.CommonName != "" {
		domains = append(domains, leaf.Subject.CommonName)
	}
	for _, san := range leaf.DNSNames {
		if !containsFold(domains, san) {
			domains = append(domains, san)
		}
	}

	return &Descriptor{
		pemCert:     append([]byte(nil), pemCert...),
		pemKey:      append([]byte(nil), pemKey...),
		domains:     domains,
		notBefore:   leaf.NotBefore,
		notAfter:    leaf.NotAfter,
		issuer:      leaf.Issuer.CommonName,
		fingerprint: fingerprintDER(leaf.Raw),
	}, nil
}

// PEMCert returns the original certificate bytes, chain included.
func (d *Descriptor) PEMCert() []byte {
	return append([]byte(nil), d.pemCert...)
}

// PEMKey returns the private key bytes.
func (d *Descriptor) PEMKey() []byte {
	return append([]byte(nil), d.pemKey...)
}

// Domains returns the domain names the certificate covers (CN + SAN).
func (d *Descriptor) Domains() []string {
	return append([]string(nil), d.domains...)
}

// NotBefore returns the start of the validity window.
func (d *Descriptor) NotBefore() time.Time { return d.notBefore }

// NotAfter returns the end of the validity window.
func (d *Descriptor) NotAfter() time.Time { return d.notAfter }

// Issuer returns the issuer common name.
func (d *Descriptor) Issuer() string { return d.issuer }

// Fingerprint returns the normalized fingerprint: "sha256:" plus the
// lowercase hex SHA-256 of the leaf certificate's DER encoding. PEM
// formatting differences (line wrapping, trailing whitespace) between
// cloud APIs do not affect it.
func (d *Descriptor) Fingerprint() string { return d.fingerprint }

// CoversDomain reports whether the certificate covers domain, honoring
// wildcard entries ("*.example.com" covers "www.example.com" but not
// "example.com" or "a.b.example.com").
func (d *Descriptor) CoversDomain(domain string) bool {
	for _, entry := range d.domains {
		if matchDomain(entry, domain) {
			return true
		}
	}
	return false
}

// ValidAt reports whether t falls inside the validity window.
func (d *Descriptor) ValidAt(t time.Time) bool {
	return !t.Before(d.notBefore) && !t.After(d.notAfter)
}

// Fingerprint computes the normalized fingerprint for arbitrary PEM
// bytes, e.g. a deployed certificate returned by a cloud API. Used to
// compare both sides of the idempotency check in canonical form.
func Fingerprint(pemCert []byte) (string, error) {
	leaf, err := parseLeaf(pemCert)
	if err != nil {
		return "", err
	}
	return fingerprintDER(leaf.Raw), nil
}

func parseLeaf(pemCert []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(pemCert)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, cerrors.CertificateValidationError{
			Message: "no PEM certificate block found",
		}
	}
	leaf, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, cerrors.CertificateValidationError{
			Message: "certificate is malformed",
			Err:     err,
		}
	}
	return leaf, nil
}

func fingerprintDER(der []byte) string {
	sum := sha256.Sum256(der)
	return FingerprintPrefix + hex.EncodeToString(sum[:])
}

func matchDomain(entry, domain string) bool {
	entry = strings.ToLower(entry)
	domain = strings.ToLower(domain)
	if !strings.HasPrefix(entry, "*.") {
		return entry == domain
	}
	// Wildcard covers exactly one label.
	suffix := entry[1:] // ".example.com"
	if !strings.HasSuffix(domain, suffix) {
		return false
	}
	label := strings.TrimSuffix(domain, suffix)
	return label != "" && !strings.Contains(label, ".")
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
