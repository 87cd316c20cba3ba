package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"gitlab.com/gitlab-org/httpwatch/internal/pipeline"
)

const (
	socketBaseURL             = "http://unix"
	unixSocketProtocol        = "http+unix://"
	httpProtocol              = "http://"
	httpsProtocol             = "https://"
	defaultReadTimeoutSeconds = 300
	defaultRetryWaitMinimum   = time.Second
	defaultRetryWaitMaximum   = 15 * time.Second
	defaultRetryMax           = 2
)

var (
	// ErrCafileNotFound indicates that the specified CA file was not found
	ErrCafileNotFound = errors.New("cafile not found")
	// ErrUnsupportedProtocol is returned for base URLs that are not http, https or http+unix.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
)

// HTTPClient sends requests through a resolved pipeline, retrying failed attempts.
type HTTPClient struct {
	RetryableHTTP *retryablehttp.Client
	Host          string
}

type httpClientCfg struct {
	keyPath, certPath          string
	caFile, caPath             string
	retryWaitMin, retryWaitMax time.Duration
	retryMax                   int
	httpErrors                 bool
}

func (hcc httpClientCfg) HaveCertAndKey() bool { return hcc.keyPath != "" && hcc.certPath != "" }

// HTTPClientOpt provides options for configuring an HTTPClient
type HTTPClientOpt func(*httpClientCfg)

// WithClientCert will configure the HTTPClient to provide client certificates
// when connecting to a server.
func WithClientCert(certPath, keyPath string) HTTPClientOpt {
	return func(hcc *httpClientCfg) {
		hcc.keyPath = keyPath
		hcc.certPath = certPath
	}
}

// WithHTTPRetryOpts configures the waits between attempts and the number of retries.
func WithHTTPRetryOpts(waitMin, waitMax time.Duration, maxAttempts int) HTTPClientOpt {
	return func(hcc *httpClientCfg) {
		hcc.retryWaitMin = waitMin
		hcc.retryWaitMax = waitMax
		hcc.retryMax = maxAttempts
	}
}

// WithCA configures the CA file and CA directory trusted for https base URLs.
func WithCA(caFile, caPath string) HTTPClientOpt {
	return func(hcc *httpClientCfg) {
		hcc.caFile = caFile
		hcc.caPath = caPath
	}
}

// WithHTTPErrors turns error statuses into errors for every request of the client.
func WithHTTPErrors(enabled bool) HTTPClientOpt {
	return func(hcc *httpClientCfg) {
		hcc.httpErrors = enabled
	}
}

// NewHTTPClient builds an HTTP client for baseURL. Requests go through the stack built by
// buildStack, whose terminal handler sends them with the transport for the URL's protocol.
func NewHTTPClient(
	baseURL string,
	readTimeoutSeconds uint64,
	buildStack func(terminal pipeline.Handler) (pipeline.Handler, error),
	opts []HTTPClientOpt,
) (*HTTPClient, error) {
	hcc := &httpClientCfg{
		retryWaitMin: defaultRetryWaitMinimum,
		retryWaitMax: defaultRetryWaitMaximum,
		retryMax:     defaultRetryMax,
	}

	for _, opt := range opts {
		opt(hcc)
	}

	var transport *http.Transport
	var host string
	var err error
	switch {
	case strings.HasPrefix(baseURL, unixSocketProtocol):
		transport, host = buildSocketTransport(baseURL)
	case strings.HasPrefix(baseURL, httpProtocol):
		transport, host = buildHTTPTransport(baseURL)
	case strings.HasPrefix(baseURL, httpsProtocol):
		err = validateCaFile(hcc.caFile)
		if err != nil {
			return nil, err
		}
		transport, host, err = buildHTTPSTransport(*hcc, baseURL)
		if err != nil {
			return nil, err
		}
	default:
		return nil, checkBaseURL(baseURL)
	}

	handler, err := buildStack(pipeline.NewTransportHandler(NewTransport(transport)))
	if err != nil {
		return nil, err
	}

	c := retryablehttp.NewClient()
	c.RetryMax = hcc.retryMax
	c.RetryWaitMax = hcc.retryWaitMax
	c.RetryWaitMin = hcc.retryWaitMin
	c.Logger = nil
	c.CheckRetry = checkRetry
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.HTTPClient.Transport = &pipelineTransport{handler: handler, httpErrors: hcc.httpErrors}
	c.HTTPClient.Timeout = readTimeout(readTimeoutSeconds)

	return &HTTPClient{RetryableHTTP: c, Host: host}, nil
}

// checkRetry applies the default retry policy, also to the response carried by a
// *pipeline.RequestError. Only context errors are reported: the last response or transport error is
// handed back to the caller as is once the retries are exhausted.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if failed := pipeline.ResponseFromError(err); resp == nil && failed != nil {
		resp, err = failed, nil
	}

	shouldRetry, _ := retryablehttp.DefaultRetryPolicy(ctx, resp, err)

	return shouldRetry, ctx.Err()
}

// checkBaseURL reports ErrUnsupportedProtocol unless baseURL uses one of the protocols a transport
// can be built for.
func checkBaseURL(baseURL string) error {
	for _, protocol := range []string{unixSocketProtocol, httpProtocol, httpsProtocol} {
		if strings.HasPrefix(baseURL, protocol) {
			return nil
		}
	}

	return fmt.Errorf("%q: %w", baseURL, ErrUnsupportedProtocol)
}

func buildSocketTransport(baseURL string) (*http.Transport, string) {
	socketPath := strings.TrimPrefix(baseURL, unixSocketProtocol)

	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			dialer := net.Dialer{}
			return dialer.DialContext(ctx, "unix", socketPath)
		},
	}

	return transport, socketBaseURL
}

func buildHTTPSTransport(hcc httpClientCfg, baseURL string) (*http.Transport, string, error) {
	certPool, err := x509.SystemCertPool()
	if err != nil {
		certPool = x509.NewCertPool()
	}

	if hcc.caFile != "" {
		addCertToPool(certPool, hcc.caFile)
	}

	if hcc.caPath != "" {
		fis, _ := os.ReadDir(hcc.caPath)
		for _, fi := range fis {
			if fi.IsDir() {
				continue
			}

			addCertToPool(certPool, filepath.Join(hcc.caPath, fi.Name()))
		}
	}
	tlsConfig := &tls.Config{
		RootCAs:    certPool,
		MinVersion: tls.VersionTLS12,
	}

	if hcc.HaveCertAndKey() {
		cert, loadErr := tls.LoadX509KeyPair(hcc.certPath, hcc.keyPath)
		if loadErr != nil {
			return nil, "", loadErr
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	transport := &http.Transport{
		TLSClientConfig: tlsConfig,
	}

	return transport, baseURL, nil
}

func appendPath(host string, path string) string {
	return strings.TrimSuffix(host, "/") + "/" + strings.TrimPrefix(path, "/")
}

func addCertToPool(certPool *x509.CertPool, fileName string) {
	cert, err := os.ReadFile(filepath.Clean(fileName))
	if err == nil {
		certPool.AppendCertsFromPEM(cert)
	}
}

func buildHTTPTransport(baseURL string) (*http.Transport, string) {
	return &http.Transport{}, baseURL
}

func readTimeout(timeoutSeconds uint64) time.Duration {
	if timeoutSeconds == 0 || timeoutSeconds > math.MaxInt64 {
		timeoutSeconds = defaultReadTimeoutSeconds
	}

	return time.Duration(timeoutSeconds) * time.Second // #nosec G115
}

func validateCaFile(filename string) error {
	if filename == "" {
		return nil
	}

	if _, err := os.Stat(filename); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("cannot find cafile '%s': %w", filename, ErrCafileNotFound)
		}

		return err
	}

	return nil
}
