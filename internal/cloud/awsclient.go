package cloud

import (
	"net"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
)

// CloudFront only accepts ACM certificates that live in us-east-1,
// regardless of where the distribution's origins run.
const cloudFrontCertRegion = "us-east-1"

// awsClientConfig builds the aws.Config shared by all AWS service
// clients from pre-resolved credentials and the SDK transport settings.
func awsClientConfig(opts Options) aws.Config {
	httpClient := awshttp.NewBuildableClient()
	if opts.SDK.ConnectTimeout > 0 {
		connect := opts.SDK.ConnectTimeout
		httpClient = httpClient.WithDialerOptions(func(d *net.Dialer) {
			d.Timeout = connect
		})
	}
	if opts.SDK.ReadTimeout > 0 {
		read := opts.SDK.ReadTimeout
		httpClient = httpClient.WithTransportOptions(func(tr *http.Transport) {
			tr.ResponseHeaderTimeout = read
		})
	}

	cfg := aws.Config{
		Credentials: opts.Credentials,
		Region:      opts.Region,
		HTTPClient:  httpClient,
	}
	if opts.SDK.MaxAttempts > 0 {
		cfg.RetryMaxAttempts = opts.SDK.MaxAttempts
	}
	return cfg
}
