package cloud

import (
	"context"
	"encoding/pem"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/aws/smithy-go"

	"github.com/systmms/certrenew/internal/certinfo"
	cerrors "github.com/systmms/certrenew/internal/errors"
	"github.com/systmms/certrenew/internal/logging"
	"github.com/systmms/certrenew/internal/secure"
)

// Narrow views of the SDK clients, covering only the calls the adapter
// makes. Tests substitute fakes for these.
type cloudFrontAPI interface {
	ListDistributions(ctx context.Context, params *cloudfront.ListDistributionsInput, optFns ...func(*cloudfront.Options)) (*cloudfront.ListDistributionsOutput, error)
	GetDistributionConfig(ctx context.Context, params *cloudfront.GetDistributionConfigInput, optFns ...func(*cloudfront.Options)) (*cloudfront.GetDistributionConfigOutput, error)
	UpdateDistribution(ctx context.Context, params *cloudfront.UpdateDistributionInput, optFns ...func(*cloudfront.Options)) (*cloudfront.UpdateDistributionOutput, error)
}

type acmAPI interface {
	ImportCertificate(ctx context.Context, params *acm.ImportCertificateInput, optFns ...func(*acm.Options)) (*acm.ImportCertificateOutput, error)
	GetCertificate(ctx context.Context, params *acm.GetCertificateInput, optFns ...func(*acm.Options)) (*acm.GetCertificateOutput, error)
}

type elbAPI interface {
	DescribeListeners(ctx context.Context, params *elbv2.DescribeListenersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeListenersOutput, error)
	ModifyListener(ctx context.Context, params *elbv2.ModifyListenerInput, optFns ...func(*elbv2.Options)) (*elbv2.ModifyListenerOutput, error)
}

// awsAdapter deploys certificates through ACM. CDN targets are
// CloudFront distributions matched by alias; load balancer targets are
// ELBv2 listeners matched by load balancer ARN and port.
type awsAdapter struct {
	logger *logging.Logger

	cdn cloudFrontAPI
	elb elbAPI

	// acm is the regional client used for listeners; cdnACM is pinned
	// to us-east-1 for CloudFront.
	acm    acmAPI
	cdnACM acmAPI
}

func newAWSAdapter(opts Options) (Adapter, error) {
	cfg := awsClientConfig(opts)
	cdnCfg := cfg
	cdnCfg.Region = cloudFrontCertRegion

	return &awsAdapter{
		logger: opts.Logger,
		cdn:    cloudfront.NewFromConfig(cfg),
		elb:    elbv2.NewFromConfig(cfg),
		acm:    acm.NewFromConfig(cfg),
		cdnACM: acm.NewFromConfig(cdnCfg),
	}, nil
}

func (a *awsAdapter) Name() string { return ProviderAWS }

func (a *awsAdapter) FetchCDNFingerprint(ctx context.Context, domain string) (string, error) {
	dist, err := a.findDistribution(ctx, domain)
	if err != nil {
		return "", err
	}

	if dist.ViewerCertificate == nil || dist.ViewerCertificate.ACMCertificateArn == nil {
		// Distribution exists but serves the default certificate.
		return "", nil
	}

	return a.acmFingerprint(ctx, a.cdnACM, aws.ToString(dist.ViewerCertificate.ACMCertificateArn), domain)
}

func (a *awsAdapter) PushCDNCertificate(ctx context.Context, domain string, cert *certinfo.Descriptor, key *secure.KeyMaterial) error {
	dist, err := a.findDistribution(ctx, domain)
	if err != nil {
		return err
	}
	distID := aws.ToString(dist.Id)

	arn, err := a.importCertificate(ctx, a.cdnACM, domain, cert, key)
	if err != nil {
		return err
	}
	a.logger.Debug("Imported certificate %s for %s", arn, domain)

	cfgOut, err := a.cdn.GetDistributionConfig(ctx, &cloudfront.GetDistributionConfigInput{
		Id: aws.String(distID),
	})
	if err != nil {
		return a.wrap("GetDistributionConfig", domain, err)
	}

	distCfg := cfgOut.DistributionConfig
	distCfg.ViewerCertificate = &cftypes.ViewerCertificate{
		ACMCertificateArn:            aws.String(arn),
		CloudFrontDefaultCertificate: aws.Bool(false),
		SSLSupportMethod:             cftypes.SSLSupportMethodSniOnly,
		MinimumProtocolVersion:       cftypes.MinimumProtocolVersionTLSv122021,
	}

	_, err = a.cdn.UpdateDistribution(ctx, &cloudfront.UpdateDistributionInput{
		Id:                 aws.String(distID),
		IfMatch:            cfgOut.ETag,
		DistributionConfig: distCfg,
	})
	if err != nil {
		return a.wrap("UpdateDistribution", domain, err)
	}

	a.logger.Info("Updated CloudFront distribution %s for %s", distID, domain)
	return nil
}

func (a *awsAdapter) FetchListenerFingerprint(ctx context.Context, instanceID string, port int) (string, error) {
	listener, err := a.findListener(ctx, instanceID, port)
	if err != nil {
		return "", err
	}

	if len(listener.Certificates) == 0 || listener.Certificates[0].CertificateArn == nil {
		return "", nil
	}

	return a.acmFingerprint(ctx, a.acm, aws.ToString(listener.Certificates[0].CertificateArn), instanceID)
}

func (a *awsAdapter) PushListenerCertificate(ctx context.Context, instanceID string, port int, cert *certinfo.Descriptor, key *secure.KeyMaterial) error {
	listener, err := a.findListener(ctx, instanceID, port)
	if err != nil {
		return err
	}

	arn, err := a.importCertificate(ctx, a.acm, instanceID, cert, key)
	if err != nil {
		return err
	}
	a.logger.Debug("Imported certificate %s for %s", arn, instanceID)

	_, err = a.elb.ModifyListener(ctx, &elbv2.ModifyListenerInput{
		ListenerArn: listener.ListenerArn,
		Certificates: []elbtypes.Certificate{
			{CertificateArn: aws.String(arn)},
		},
	})
	if err != nil {
		return a.wrap("ModifyListener", instanceID, err)
	}

	a.logger.Info("Updated listener %s:%d", instanceID, port)
	return nil
}

// findDistribution locates the CloudFront distribution whose aliases
// include domain, paging through the full distribution list.
func (a *awsAdapter) findDistribution(ctx context.Context, domain string) (*cftypes.DistributionSummary, error) {
	var marker *string
	for {
		out, err := a.cdn.ListDistributions(ctx, &cloudfront.ListDistributionsInput{Marker: marker})
		if err != nil {
			return nil, a.wrap("ListDistributions", domain, err)
		}
		if out.DistributionList == nil {
			break
		}

		for i := range out.DistributionList.Items {
			dist := &out.DistributionList.Items[i]
			if dist.Aliases == nil {
				continue
			}
			for _, alias := range dist.Aliases.Items {
				if strings.EqualFold(alias, domain) {
					return dist, nil
				}
			}
		}

		if !aws.ToBool(out.DistributionList.IsTruncated) {
			break
		}
		marker = out.DistributionList.NextMarker
	}

	return nil, cerrors.CloudAPIError{
		Provider:  ProviderAWS,
		Operation: "ListDistributions",
		Resource:  domain,
		Code:      "DistributionNotFound",
		Message:   "no CloudFront distribution has this domain as an alias",
	}
}

// findListener locates the listener on load balancer lbARN bound to port.
func (a *awsAdapter) findListener(ctx context.Context, lbARN string, port int) (*elbtypes.Listener, error) {
	out, err := a.elb.DescribeListeners(ctx, &elbv2.DescribeListenersInput{
		LoadBalancerArn: aws.String(lbARN),
	})
	if err != nil {
		return nil, a.wrap("DescribeListeners", lbARN, err)
	}

	for i := range out.Listeners {
		if aws.ToInt32(out.Listeners[i].Port) == int32(port) {
			return &out.Listeners[i], nil
		}
	}

	return nil, cerrors.CloudAPIError{
		Provider:  ProviderAWS,
		Operation: "DescribeListeners",
		Resource:  lbARN,
		Code:      "ListenerNotFound",
		Message:   "no listener bound to the configured port",
	}
}

// acmFingerprint fetches the certificate body behind arn and returns
// its normalized fingerprint.
func (a *awsAdapter) acmFingerprint(ctx context.Context, client acmAPI, arn, resource string) (string, error) {
	out, err := client.GetCertificate(ctx, &acm.GetCertificateInput{
		CertificateArn: aws.String(arn),
	})
	if err != nil {
		return "", a.wrap("GetCertificate", resource, err)
	}

	fp, err := certinfo.Fingerprint([]byte(aws.ToString(out.Certificate)))
	if err != nil {
		return "", cerrors.CloudAPIError{
			Provider:  ProviderAWS,
			Operation: "GetCertificate",
			Resource:  resource,
			Message:   "deployed certificate could not be parsed",
			Err:       err,
		}
	}
	return fp, nil
}

// importCertificate uploads the leaf, chain and private key to ACM and
// returns the new certificate ARN. The key plaintext only exists inside
// a locked buffer for the duration of the call.
func (a *awsAdapter) importCertificate(ctx context.Context, client acmAPI, resource string, cert *certinfo.Descriptor, key *secure.KeyMaterial) (string, error) {
	leaf, chain := splitChain(cert.PEMCert())

	buf, err := key.Open()
	if err != nil {
		return "", cerrors.CloudAPIError{
			Provider:  ProviderAWS,
			Operation: "ImportCertificate",
			Resource:  resource,
			Message:   "private key material unavailable",
			Err:       err,
		}
	}
	defer buf.Destroy()

	input := &acm.ImportCertificateInput{
		Certificate: leaf,
		PrivateKey:  buf.Bytes(),
	}
	if len(chain) > 0 {
		input.CertificateChain = chain
	}

	out, err := client.ImportCertificate(ctx, input)
	if err != nil {
		return "", a.wrap("ImportCertificate", resource, err)
	}
	return aws.ToString(out.CertificateArn), nil
}

// splitChain separates a PEM bundle into the leaf certificate and the
// remaining chain.
func splitChain(pemBundle []byte) (leaf, chain []byte) {
	rest := pemBundle
	first := true
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		encoded := pem.EncodeToMemory(block)
		if first {
			leaf = encoded
			first = false
		} else {
			chain = append(chain, encoded...)
		}
	}
	return leaf, chain
}

// wrap converts an SDK error into a CloudAPIError, extracting the AWS
// error code when the response carried one.
func (a *awsAdapter) wrap(operation, resource string, err error) error {
	var apiErr smithy.APIError
	code := ""
	message := err.Error()
	if errors.As(err, &apiErr) {
		code = apiErr.ErrorCode()
		message = apiErr.ErrorMessage()
	}
	return cerrors.CloudAPIError{
		Provider:  ProviderAWS,
		Operation: operation,
		Resource:  resource,
		Code:      code,
		Message:   message,
		Err:       err,
	}
}
