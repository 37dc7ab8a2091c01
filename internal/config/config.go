// Package config resolves the renewal configuration from an optional
// YAML file plus environment variables. Environment variables win, so a
// Kubernetes init container can run with no file at all.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	cerrors "github.com/systmms/certrenew/internal/errors"
	"github.com/systmms/certrenew/internal/logging"
	"github.com/systmms/certrenew/internal/secure"
	"gopkg.in/yaml.v3"
)

// Service types.
const (
	ServiceCDN          = "cdn"
	ServiceLoadBalancer = "lb"
)

// Auth method names accepted in AUTH_METHOD / authMethod.
const (
	AuthAccessKey    = "access_key"
	AuthSessionToken = "session_token"
	AuthAssumeRole   = "assume_role"
	AuthWebIdentity  = "web_identity"
	AuthPlatform     = "platform"
	AuthEnvironment  = "env"
)

// Config holds the runtime configuration shared across commands.
type Config struct {
	Path    string
	Logger  *logging.Logger
	DryRun  bool
	Verbose bool
	Spec    *Spec
}

// Spec is the resolved renewal specification consumed by the engine.
type Spec struct {
	ServiceType   string
	CloudProvider string
	AuthMethod    string
	Region        string
	ForceUpdate   bool
	DryRun        bool
	Credentials   CredentialSpec
	CDN           *CDNSpec
	LB            *LBSpec
	Webhook       *WebhookSpec
	SDK           SDKSpec
}

// CredentialSpec describes which credential provider variant to build
// and its parameters. Consumed read-only by the credential factory.
type CredentialSpec struct {
	AuthMethod      string
	AccessKeyID     string
	AccessKeySecret string
	SessionToken    string
	RoleARN         string
	RoleSessionName string
	OIDCTokenFile   string
	Region          string
}

// CDNSpec is the renewal target for CDN distributions.
type CDNSpec struct {
	DomainNames []string
	Region      string
	CertPEM     []byte
	Key         *secure.KeyMaterial
}

// LBSpec is the renewal target for load balancer listeners.
type LBSpec struct {
	InstanceIDs  []string
	ListenerPort int
	Region       string
	CertPEM      []byte
	Key          *secure.KeyMaterial
}

// WebhookSpec configures outbound event delivery. Nil means disabled.
type WebhookSpec struct {
	URL           string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	EnabledEvents []string
}

// SDKSpec carries cloud SDK transport settings. They are passed through
// to the SDK unmodified; the renewal core does not orchestrate retries.
type SDKSpec struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	MaxAttempts    int
}

// fileSpec mirrors the certrenew.yaml document.
type fileSpec struct {
	ServiceType   string          `yaml:"serviceType" json:"serviceType"`
	CloudProvider string          `yaml:"cloudProvider" json:"cloudProvider"`
	AuthMethod    string          `yaml:"authMethod" json:"authMethod"`
	Region        string          `yaml:"region" json:"region"`
	ForceUpdate   bool            `yaml:"forceUpdate" json:"forceUpdate"`
	Credentials   fileCredentials `yaml:"credentials" json:"credentials"`
	CDN           *fileCDN        `yaml:"cdn,omitempty" json:"cdn,omitempty"`
	LB            *fileLB         `yaml:"lb,omitempty" json:"lb,omitempty"`
	Webhook       *fileWebhook    `yaml:"webhook,omitempty" json:"webhook,omitempty"`
	SDK           *fileSDK        `yaml:"sdk,omitempty" json:"sdk,omitempty"`
}

type fileCredentials struct {
	AccessKeyID     string `yaml:"accessKeyId" json:"accessKeyId"`
	AccessKeySecret string `yaml:"accessKeySecret" json:"accessKeySecret"`
	SessionToken    string `yaml:"sessionToken" json:"sessionToken"`
	RoleARN         string `yaml:"roleArn" json:"roleArn"`
	RoleSessionName string `yaml:"roleSessionName" json:"roleSessionName"`
	OIDCTokenFile   string `yaml:"oidcTokenFile" json:"oidcTokenFile"`
}

type fileCDN struct {
	DomainNames []string `yaml:"domainNames" json:"domainNames"`
	Region      string   `yaml:"region" json:"region"`
	CertFile    string   `yaml:"certFile" json:"certFile"`
	KeyFile     string   `yaml:"keyFile" json:"keyFile"`
}

type fileLB struct {
	InstanceIDs  []string `yaml:"instanceIds" json:"instanceIds"`
	ListenerPort int      `yaml:"listenerPort" json:"listenerPort"`
	Region       string   `yaml:"region" json:"region"`
	CertFile     string   `yaml:"certFile" json:"certFile"`
	KeyFile      string   `yaml:"keyFile" json:"keyFile"`
}

type fileWebhook struct {
	URL               string   `yaml:"url" json:"url"`
	TimeoutSeconds    int      `yaml:"timeoutSeconds" json:"timeoutSeconds"`
	RetryAttempts     int      `yaml:"retryAttempts" json:"retryAttempts"`
	RetryDelaySeconds float64  `yaml:"retryDelaySeconds" json:"retryDelaySeconds"`
	EnabledEvents     []string `yaml:"enabledEvents" json:"enabledEvents"`
}

type fileSDK struct {
	ConnectTimeoutMs int `yaml:"connectTimeoutMs" json:"connectTimeoutMs"`
	ReadTimeoutMs    int `yaml:"readTimeoutMs" json:"readTimeoutMs"`
	MaxAttempts      int `yaml:"maxAttempts" json:"maxAttempts"`
}

// Load resolves the Spec from c.Path (if the file exists) overlaid with
// environment variables, then validates the result.
func (c *Config) Load() error {
	var file fileSpec
	if c.Path != "" {
		data, err := os.ReadFile(c.Path)
		switch {
		case err == nil:
			if err := validateSchema(data); err != nil {
				return err
			}
			if err := yaml.Unmarshal(data, &file); err != nil {
				return cerrors.ConfigurationError{
					Field:      "config",
					Value:      c.Path,
					Message:    "invalid YAML: " + err.Error(),
					Suggestion: "Check for indentation errors and missing quotes",
				}
			}
		case os.IsNotExist(err):
			// Env-only operation is the normal init-container mode.
		default:
			return cerrors.ConfigurationError{
				Field:   "config",
				Value:   c.Path,
				Message: "cannot read config file: " + err.Error(),
			}
		}
	}

	spec, err := resolveSpec(&file, c.Logger)
	if err != nil {
		return err
	}
	spec.DryRun = c.DryRun
	c.Spec = spec
	return nil
}

func resolveSpec(file *fileSpec, logger *logging.Logger) (*Spec, error) {
	serviceType := strings.ToLower(firstOf(envAny("SERVICE_TYPE"), file.ServiceType, ServiceCDN))
	if serviceType == "slb" {
		warn(logger, "SERVICE_TYPE=slb is deprecated, please use SERVICE_TYPE=lb")
		serviceType = ServiceLoadBalancer
	}
	if serviceType != ServiceCDN && serviceType != ServiceLoadBalancer {
		return nil, cerrors.ConfigurationError{
			Field:      "serviceType",
			Value:      serviceType,
			Message:    "unsupported service type",
			Suggestion: "Use 'cdn' or 'lb'",
		}
	}

	cloudProvider := strings.ToLower(firstOf(envAny("CLOUD_PROVIDER"), file.CloudProvider, "aws"))
	authMethod := strings.ToLower(firstOf(envAny("AUTH_METHOD"), file.AuthMethod, AuthAccessKey))
	region := firstOf(envAny("CLOUD_REGION", "AWS_REGION"), file.Region)

	creds, err := resolveCredentials(file, authMethod, region, logger)
	if err != nil {
		return nil, err
	}

	spec := &Spec{
		ServiceType:   serviceType,
		CloudProvider: cloudProvider,
		AuthMethod:    authMethod,
		Region:        region,
		ForceUpdate:   boolEnv("FORCE_UPDATE", file.ForceUpdate),
		Credentials:   creds,
		Webhook:       resolveWebhook(file, logger),
		SDK:           resolveSDK(file, logger),
	}

	switch serviceType {
	case ServiceCDN:
		cdn, err := resolveCDN(file, region, logger)
		if err != nil {
			return nil, err
		}
		spec.CDN = cdn
	case ServiceLoadBalancer:
		lb, err := resolveLB(file, region, logger)
		if err != nil {
			return nil, err
		}
		spec.LB = lb
	}

	return spec, nil
}

func resolveCredentials(file *fileSpec, authMethod, region string, logger *logging.Logger) (CredentialSpec, error) {
	creds := CredentialSpec{
		AuthMethod:      authMethod,
		AccessKeyID:     firstOf(envAny("CLOUD_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"), file.Credentials.AccessKeyID),
		AccessKeySecret: firstOf(envAny("CLOUD_ACCESS_KEY_SECRET", "AWS_SECRET_ACCESS_KEY"), file.Credentials.AccessKeySecret),
		SessionToken:    firstOf(envAny("CLOUD_SECURITY_TOKEN", "AWS_SESSION_TOKEN"), file.Credentials.SessionToken),
		RoleARN:         firstOf(envAny("CLOUD_ROLE_ARN"), file.Credentials.RoleARN),
		RoleSessionName: firstOf(envAny("CLOUD_ROLE_SESSION_NAME"), file.Credentials.RoleSessionName),
		OIDCTokenFile:   firstOf(envAny("CLOUD_OIDC_TOKEN_FILE", "AWS_WEB_IDENTITY_TOKEN_FILE"), file.Credentials.OIDCTokenFile),
		Region:          region,
	}

	// Required-field checks per auth method happen here so that bad
	// wiring fails before any network call. The credential factory
	// re-checks, but against the already-normalized spec.
	switch authMethod {
	case AuthAccessKey:
		if creds.AccessKeyID == "" || creds.AccessKeySecret == "" {
			return creds, cerrors.ConfigurationError{
				Field:      "credentials",
				Message:    "access_key auth requires CLOUD_ACCESS_KEY_ID and CLOUD_ACCESS_KEY_SECRET",
				Suggestion: "Set both environment variables or use another AUTH_METHOD",
			}
		}
	case AuthSessionToken:
		if creds.AccessKeyID == "" || creds.AccessKeySecret == "" || creds.SessionToken == "" {
			return creds, cerrors.ConfigurationError{
				Field:      "credentials",
				Message:    "session_token auth requires CLOUD_ACCESS_KEY_ID, CLOUD_ACCESS_KEY_SECRET and CLOUD_SECURITY_TOKEN",
				Suggestion: "Provide a full temporary credential triple",
			}
		}
	case AuthAssumeRole, AuthWebIdentity:
		if creds.RoleARN == "" {
			return creds, cerrors.ConfigurationError{
				Field:      "credentials.roleArn",
				Message:    authMethod + " auth requires CLOUD_ROLE_ARN",
				Suggestion: "Set CLOUD_ROLE_ARN to the role to assume",
			}
		}
	case AuthPlatform, AuthEnvironment:
		// Nothing required up front; the platform or ambient environment
		// supplies everything at acquisition time.
	default:
		return creds, cerrors.ConfigurationError{
			Field:      "authMethod",
			Value:      authMethod,
			Message:    "unsupported authentication method",
			Suggestion: "Use one of: access_key, session_token, assume_role, web_identity, platform, env",
		}
	}

	// Secret wraps the sensitive fields so a debug trace never leaks them.
	debug(logger, "resolved credentials: method=%s keyId=%s secret=%s token=%s",
		authMethod, creds.AccessKeyID,
		logging.Secret(creds.AccessKeySecret), logging.Secret(creds.SessionToken))

	return creds, nil
}

func resolveCDN(file *fileSpec, region string, logger *logging.Logger) (*CDNSpec, error) {
	var domains []string
	var certFile, keyFile, cdnRegion string
	if file.CDN != nil {
		domains = file.CDN.DomainNames
		certFile = file.CDN.CertFile
		keyFile = file.CDN.KeyFile
		cdnRegion = file.CDN.Region
	}
	if v := envAny("CDN_DOMAIN_NAME"); v != "" {
		domains = splitList(v)
	}
	if len(domains) == 0 {
		return nil, cerrors.ConfigurationError{
			Field:      "cdn.domainNames",
			Message:    "CDN renewal requires at least one domain name",
			Suggestion: "Set CDN_DOMAIN_NAME (comma-separated) or cdn.domainNames",
		}
	}

	cert, key, err := loadMaterial("CDN_CERT", "CDN_CERT_PRIVATE_KEY", certFile, keyFile)
	if err != nil {
		return nil, err
	}

	return &CDNSpec{
		DomainNames: domains,
		Region:      firstOf(envAny("CDN_REGION"), cdnRegion, region),
		CertPEM:     cert,
		Key:         secure.NewKeyMaterial(key),
	}, nil
}

func resolveLB(file *fileSpec, region string, logger *logging.Logger) (*LBSpec, error) {
	var instanceIDs []string
	var certFile, keyFile, lbRegion string
	port := 0
	if file.LB != nil {
		instanceIDs = file.LB.InstanceIDs
		certFile = file.LB.CertFile
		keyFile = file.LB.KeyFile
		lbRegion = file.LB.Region
		port = file.LB.ListenerPort
	}
	if v := envFallback(logger, "LB_INSTANCE_ID", "SLB_INSTANCE_ID"); v != "" {
		instanceIDs = splitList(v)
	}
	if len(instanceIDs) == 0 {
		return nil, cerrors.ConfigurationError{
			Field:      "lb.instanceIds",
			Message:    "load balancer renewal requires at least one instance id",
			Suggestion: "Set LB_INSTANCE_ID (comma-separated) or lb.instanceIds",
		}
	}

	if v := envFallback(logger, "LB_LISTENER_PORT", "SLB_LISTENER_PORT"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, cerrors.ConfigurationError{
				Field:   "lb.listenerPort",
				Value:   v,
				Message: "LB_LISTENER_PORT must be a valid integer",
			}
		}
		port = parsed
	}
	if port < 1 || port > 65535 {
		return nil, cerrors.ConfigurationError{
			Field:      "lb.listenerPort",
			Value:      port,
			Message:    "listener port must be between 1 and 65535",
			Suggestion: "Set LB_LISTENER_PORT or lb.listenerPort",
		}
	}

	cert, key, err := loadMaterial("LB_CERT", "LB_CERT_PRIVATE_KEY", certFile, keyFile)
	if err != nil {
		return nil, err
	}

	return &LBSpec{
		InstanceIDs:  instanceIDs,
		ListenerPort: port,
		Region:       firstOf(envFallback(logger, "LB_REGION", "SLB_REGION"), lbRegion, region),
		CertPEM:      cert,
		Key:          secure.NewKeyMaterial(key),
	}, nil
}

// loadMaterial reads certificate and key bytes, preferring inline env
// values, then *_FILE env paths, then the config file paths.
func loadMaterial(certEnv, keyEnv, certFile, keyFile string) ([]byte, []byte, error) {
	cert, err := materialFrom(certEnv, certFile)
	if err != nil {
		return nil, nil, err
	}
	key, err := materialFrom(keyEnv, keyFile)
	if err != nil {
		return nil, nil, err
	}
	return cert, key, nil
}

func materialFrom(envName, filePath string) ([]byte, error) {
	if v := os.Getenv(envName); v != "" {
		return []byte(v), nil
	}
	path := os.Getenv(envName + "_FILE")
	if path == "" {
		path = filePath
	}
	if path == "" {
		return nil, cerrors.ConfigurationError{
			Field:      envName,
			Message:    "missing certificate material",
			Suggestion: "Set " + envName + ", " + envName + "_FILE, or the matching config file path",
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.ConfigurationError{
			Field:   envName + "_FILE",
			Value:   path,
			Message: "cannot read certificate material: " + err.Error(),
		}
	}
	return data, nil
}

func resolveWebhook(file *fileSpec, logger *logging.Logger) *WebhookSpec {
	url := envAny("WEBHOOK_URL")
	var fw fileWebhook
	if file.Webhook != nil {
		fw = *file.Webhook
	}
	if url == "" {
		url = fw.URL
	}
	if url == "" {
		debug(logger, "webhook disabled: no URL configured")
		return nil
	}

	spec := &WebhookSpec{
		URL:           url,
		Timeout:       time.Duration(intEnv("WEBHOOK_TIMEOUT", firstInt(fw.TimeoutSeconds, 30), logger)) * time.Second,
		RetryAttempts: intEnv("WEBHOOK_RETRY_ATTEMPTS", firstInt(fw.RetryAttempts, 3), logger),
		RetryDelay:    time.Duration(floatEnv("WEBHOOK_RETRY_DELAY", firstFloat(fw.RetryDelaySeconds, 1.0), logger) * float64(time.Second)),
		EnabledEvents: fw.EnabledEvents,
	}
	if v := envAny("WEBHOOK_ENABLED_EVENTS"); v != "" {
		spec.EnabledEvents = splitList(v)
	}
	return spec
}

func resolveSDK(file *fileSpec, logger *logging.Logger) SDKSpec {
	var fs fileSDK
	if file.SDK != nil {
		fs = *file.SDK
	}
	return SDKSpec{
		ConnectTimeout: time.Duration(intEnv("SDK_CONNECT_TIMEOUT_MS", firstInt(fs.ConnectTimeoutMs, 5000), logger)) * time.Millisecond,
		ReadTimeout:    time.Duration(intEnv("SDK_READ_TIMEOUT_MS", firstInt(fs.ReadTimeoutMs, 10000), logger)) * time.Millisecond,
		MaxAttempts:    intEnv("SDK_MAX_ATTEMPTS", firstInt(fs.MaxAttempts, 3), logger),
	}
}

// envAny returns the first non-empty value among the given variables.
// Unlike envFallback, none of the names is considered deprecated.
func envAny(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// envFallback reads newName, falling back to the deprecated oldName
// with a warning, mirroring the init-container migration path.
func envFallback(logger *logging.Logger, newName, oldName string) string {
	if v := os.Getenv(newName); v != "" {
		return v
	}
	if oldName != "" {
		if v := os.Getenv(oldName); v != "" {
			warn(logger, "Environment variable %s is deprecated, please use %s instead", oldName, newName)
			return v
		}
	}
	return ""
}

func boolEnv(name string, fallback bool) bool {
	v := strings.ToLower(os.Getenv(name))
	if v == "" {
		return fallback
	}
	switch v {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

func intEnv(name string, fallback int, logger *logging.Logger) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		warn(logger, "Invalid integer value for %s: %s, using default: %d", name, v, fallback)
		return fallback
	}
	return parsed
}

func floatEnv(name string, fallback float64, logger *logging.Logger) float64 {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		warn(logger, "Invalid float value for %s: %s, using default: %f", name, v, fallback)
		return fallback
	}
	return parsed
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

func firstFloat(v, fallback float64) float64 {
	if v != 0 {
		return v
	}
	return fallback
}

func warn(logger *logging.Logger, format string, args ...interface{}) {
	if logger != nil {
		logger.Warn(format, args...)
	}
}

func debug(logger *logging.Logger, format string, args ...interface{}) {
	if logger != nil {
		logger.Debug(format, args...)
	}
}
