package apiclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"os"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"voxsh/internal/fault"
)

const DefaultKeyEnv = "OPENAI_API_KEY"

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New builds an OpenAI client that never retries. Authentication is left
// to KeyFrom so the token is read per request.
func New(opts Options) openai.Client {
	reqOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return openai.NewClient(reqOpts...)
}

// KeyFrom reads the bearer token from env at call time. An unset variable
// yields an empty token and the request is left to fail upstream.
func KeyFrom(env string) option.RequestOption {
	if env == "" {
		env = DefaultKeyEnv
	}
	return option.WithAPIKey(os.Getenv(env))
}

// Classify wraps an SDK error as a network or parse fault. Anything that is
// neither a transport failure nor an API status error means the response
// body could not be decoded.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fault.New(fault.Network, op, err)
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fault.New(fault.Network, op, err)
	}

	return fault.New(fault.Parse, op, err)
}
