package certinfo

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selfSigned issues a throwaway certificate for the given names and
// validity window.
func selfSigned(t *testing.T, commonName string, sans []string, notBefore, notAfter time.Time) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: commonName, Organization: []string{"certrenew test"}},
		DNSNames:     sans,
		NotBefore:    notBefore,
		NotAfter:     notAfter,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func testCert(t *testing.T, names ...string) []byte {
	t.Helper()
	cn := "example.com"
	if len(names) > 0 {
		cn = names[0]
	}
	return selfSigned(t, cn, names, time.Now().Add(-time.Hour), time.Now().Add(24*time.Hour))
}

func TestParse(t *testing.T) {
	t.Parallel()

	pemCert := testCert(t, "example.com", "www.example.com")
	desc, err := Parse(pemCert, nil)
	require.NoError(t, err)

	assert.Contains(t, desc.Domains(), "example.com")
	assert.Contains(t, desc.Domains(), "www.example.com")
	assert.True(t, strings.HasPrefix(desc.Fingerprint(), "sha256:"))
	assert.Equal(t, strings.ToLower(desc.Fingerprint()), desc.Fingerprint())
}

func TestParseRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("not a certificate"), nil)
	assert.Error(t, err)
}

func TestParseRejectsBadKey(t *testing.T) {
	t.Parallel()

	_, err := Parse(testCert(t, "example.com"), []byte("not a key"))
	assert.Error(t, err)
}

// rewrap re-encodes a PEM body at a different line width with trailing
// whitespace, simulating format variance across cloud APIs.
func rewrap(t *testing.T, pemCert []byte, width int) []byte {
	t.Helper()

	block, _ := pem.Decode(pemCert)
	require.NotNil(t, block)

	var sb strings.Builder
	sb.WriteString("-----BEGIN CERTIFICATE-----\r\n")
	body := base64Body(pemCert)
	for len(body) > 0 {
		n := width
		if n > len(body) {
			n = len(body)
		}
		sb.WriteString(body[:n])
		sb.WriteString("  \r\n")
		body = body[n:]
	}
	sb.WriteString("-----END CERTIFICATE-----\r\n\r\n")
	return []byte(sb.String())
}

func base64Body(pemCert []byte) string {
	lines := strings.Split(string(pemCert), "\n")
	var parts []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-----") {
			continue
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, "")
}

func TestFingerprintNormalization(t *testing.T) {
	t.Parallel()

	pemCert := testCert(t, "example.com")
	want, err := Fingerprint(pemCert)
	require.NoError(t, err)

	for _, width := range []int{48, 64, 76} {
		got, err := Fingerprint(rewrap(t, pemCert, width))
		require.NoError(t, err)
		assert.Equal(t, want, got, "width %d", width)
	}
}

func TestCoversDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		names  []string
		domain string
		want   bool
	}{
		{"exact match", []string{"example.com"}, "example.com", true},
		{"case insensitive", []string{"example.com"}, "EXAMPLE.com", true},
		{"no match", []string{"example.com"}, "other.com", false},
		{"wildcard covers one label", []string{"*.example.com"}, "www.example.com", true},
		{"wildcard does not cover apex", []string{"*.example.com"}, "example.com", false},
		{"wildcard does not cover two labels", []string{"*.example.com"}, "a.b.example.com", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			desc, err := Parse(testCert(t, tt.names...), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, desc.CoversDomain(tt.domain))
		})
	}
}

func TestValidAt(t *testing.T) {
	t.Parallel()

	now := time.Now()
	pemCert := selfSigned(t, "example.com", []string{"example.com"},
		now.Add(-2*time.Hour), now.Add(-time.Hour))
	desc, err := Parse(pemCert, nil)
	require.NoError(t, err)

	assert.False(t, desc.ValidAt(now))
	assert.True(t, desc.ValidAt(now.Add(-90*time.Minute)))
}

func TestFingerprintChainUsesLeaf(t *testing.T) {
	t.Parallel()

	leaf := testCert(t, "example.com")
	other := testCert(t, "intermediate.example")
	bundle := append(append([]byte(nil), leaf...), other...)

	leafFP, err := Fingerprint(leaf)
	require.NoError(t, err)
	bundleFP, err := Fingerprint(bundle)
	require.NoError(t, err)
	assert.Equal(t, leafFP, bundleFP)
}
