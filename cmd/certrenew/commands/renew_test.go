package commands

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/certrenew/internal/config"
	cerrors "github.com/systmms/certrenew/internal/errors"
	"github.com/systmms/certrenew/internal/logging"
	"github.com/systmms/certrenew/internal/renew"
	"github.com/systmms/certrenew/internal/secure"
	"github.com/systmms/certrenew/internal/webhook"
)

func issueCertPEM(t *testing.T, notBefore, notAfter time.Time, domains ...string) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: domains[0]},
		DNSNames:     domains,
		NotBefore:    notBefore,
		NotAfter:     notAfter,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func testCertPEM(t *testing.T, domains ...string) []byte {
	t.Helper()
	return issueCertPEM(t, time.Now().Add(-time.Hour), time.Now().Add(24*time.Hour), domains...)
}

func TestExecuteRenewalEndToEnd(t *testing.T) {
	var mu sync.Mutex
	var received []webhook.Event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		var event webhook.Event
		if err := json.Unmarshal(body, &event); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{Logger: logging.New(false, true)}
	cfg.Spec = &config.Spec{
		ServiceType:   config.ServiceCDN,
		CloudProvider: "noop",
		AuthMethod:    config.AuthAccessKey,
		Region:        "eu-west-1",
		Credentials: config.CredentialSpec{
			AuthMethod:      config.AuthAccessKey,
			AccessKeyID:     "AKIAEXAMPLE",
			AccessKeySecret: "secret",
		},
		CDN: &config.CDNSpec{
			DomainNames: []string{"example.com", "www.example.com"},
			CertPEM:     testCertPEM(t, "example.com", "www.example.com"),
			Key:         secure.NewKeyMaterial([]byte("key")),
		},
		Webhook: &config.WebhookSpec{
			URL:           server.URL,
			Timeout:       2 * time.Second,
			RetryAttempts: 1,
			RetryDelay:    10 * time.Millisecond,
			EnabledEvents: []string{"all"},
		},
	}

	results, err := executeRenewal(context.Background(), cfg, "test", 5*time.Second)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, result := range results {
		assert.Equal(t, renew.StatusSuccess, result.Status)
	}
	assert.False(t, renew.AnyFailed(results))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 4, "started, two per-domain results, batch summary")
	assert.Equal(t, webhook.EventBatchCompleted, received[len(received)-1].EventType)

	last := received[len(received)-1]
	assert.Nil(t, last.Certificate)
	require.NotNil(t, last.Metadata.SuccessfulResources)
	assert.Equal(t, 2, *last.Metadata.SuccessfulResources)
	assert.Equal(t, 0, *last.Metadata.FailedResources)
}

// A fatal abort (here: an expired certificate) must not produce a
// batch_completed event; receivers would otherwise see a zero-resource
// success while the process exits non-zero.
func TestExecuteRenewalFatalErrorSuppressesBatchSummary(t *testing.T) {
	var mu sync.Mutex
	var received []webhook.Event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		var event webhook.Event
		if err := json.Unmarshal(body, &event); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{Logger: logging.New(false, true)}
	cfg.Spec = &config.Spec{
		ServiceType:   config.ServiceCDN,
		CloudProvider: "noop",
		AuthMethod:    config.AuthAccessKey,
		Credentials: config.CredentialSpec{
			AuthMethod:      config.AuthAccessKey,
			AccessKeyID:     "AKIAEXAMPLE",
			AccessKeySecret: "secret",
		},
		CDN: &config.CDNSpec{
			DomainNames: []string{"example.com"},
			CertPEM:     issueCertPEM(t, time.Now().Add(-48*time.Hour), time.Now().Add(-24*time.Hour), "example.com"),
			Key:         secure.NewKeyMaterial([]byte("key")),
		},
		Webhook: &config.WebhookSpec{
			URL:           server.URL,
			Timeout:       2 * time.Second,
			RetryAttempts: 1,
			RetryDelay:    10 * time.Millisecond,
			EnabledEvents: []string{"all"},
		},
	}

	results, err := executeRenewal(context.Background(), cfg, "test", 5*time.Second)
	var certErr cerrors.CertificateValidationError
	require.ErrorAs(t, err, &certErr)
	assert.Empty(t, results)

	mu.Lock()
	defer mu.Unlock()
	for _, event := range received {
		assert.NotEqual(t, webhook.EventBatchCompleted, event.EventType,
			"no batch summary after a fatal abort")
	}
}

func TestExecuteRenewalUnsupportedProvider(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Logger: logging.New(false, true)}
	cfg.Spec = &config.Spec{
		ServiceType:   config.ServiceCDN,
		CloudProvider: "cloudflare",
		AuthMethod:    config.AuthAccessKey,
		Credentials: config.CredentialSpec{
			AuthMethod:      config.AuthAccessKey,
			AccessKeyID:     "AKIAEXAMPLE",
			AccessKeySecret: "secret",
		},
		CDN: &config.CDNSpec{
			DomainNames: []string{"example.com"},
			CertPEM:     testCertPEM(t, "example.com"),
			Key:         secure.NewKeyMaterial([]byte("key")),
		},
	}

	_, err := executeRenewal(context.Background(), cfg, "test", time.Second)
	var unsup cerrors.UnsupportedProviderError
	require.ErrorAs(t, err, &unsup)
	assert.Equal(t, cerrors.ExitUnsupported, cerrors.ExitCode(err))
}

func TestCertMaterial(t *testing.T) {
	t.Parallel()

	key := secure.NewKeyMaterial([]byte("key"))
	spec := &config.Spec{
		ServiceType: config.ServiceCDN,
		CDN:         &config.CDNSpec{CertPEM: []byte("cert"), Key: key},
	}

	pemCert, gotKey, err := certMaterial(spec)
	require.NoError(t, err)
	assert.Equal(t, []byte("cert"), pemCert)
	assert.Same(t, key, gotKey)

	_, _, err = certMaterial(&config.Spec{ServiceType: config.ServiceCDN})
	var cfgErr cerrors.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)

	_, _, err = certMaterial(&config.Spec{
		ServiceType: config.ServiceLoadBalancer,
		LB:          &config.LBSpec{CertPEM: []byte("cert")},
	})
	assert.ErrorAs(t, err, &cfgErr, "missing key material")
}

func TestRenewCommandFlags(t *testing.T) {
	t.Parallel()

	cmd := NewRenewCommand(&config.Config{Logger: logging.New(false, true)}, "test")
	assert.NotNil(t, cmd.Flags().Lookup("force"))
	assert.NotNil(t, cmd.Flags().Lookup("webhook-grace"))
}
