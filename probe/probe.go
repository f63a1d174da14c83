package probe

import (
	"context"
	"github.com/go-errors/errors"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultURL     = "http://nmcheck.gnome.org/check_network_status.txt"
	DefaultTimeout = 5 * time.Second
	DefaultExpect  = "NetworkManager is online"

	// maxBodySize bounds how much of an answer is searched for the
	// expected content.
	maxBodySize = 1024
)

type Config struct {
	URL     string
	Timeout time.Duration
	// Expect is the content the url answers with when the internet is
	// reachable. Empty only checks for a 2xx status with a HEAD request,
	// which suits generate_204 style endpoints.
	Expect string
	Logger Logger
}

// HTTPProber checks internet reachability over HTTP. Redirects are not
// followed, since a captive portal answers with one. Portals serving their
// login page with 200 are caught by comparing the answer to Expect.
type HTTPProber struct {
	log     Logger
	url     string
	expect  string
	timeout time.Duration
	client  *http.Client
}

func NewHTTPProber(config *Config) (*HTTPProber, error) {
	prober := &HTTPProber{
		url:     config.URL,
		expect:  config.Expect,
		timeout: config.Timeout,
	}

	if prober.url == "" {
		prober.url = DefaultURL
	}

	if prober.timeout <= 0 {
		prober.timeout = DefaultTimeout
	}

	if _, err := http.NewRequest(http.MethodHead, prober.url, nil); err != nil {
		return nil, errors.Errorf("invalid probe url %v: %v", prober.url, err)
	}

	if config.Logger != nil {
		prober.log = config.Logger
	} else {
		prober.log = noopLogger{}
	}

	prober.client = &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return prober, nil
}

// Probe reports whether the url answered with a 2xx status and, if an
// expected content is set, with that content.
func (p *HTTPProber) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	method := http.MethodGet
	if p.expect == "" {
		method = http.MethodHead
	}

	req, err := http.NewRequestWithContext(ctx, method, p.url, nil)
	if err != nil {
		p.log.Errorf("Could not create probe request: %v", err)
		return false
	}

	res, err := p.client.Do(req)
	if err != nil {
		p.log.Debugf("Probe of %v failed: %v", p.url, err)
		return false
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		p.log.Debugf("Probe of %v answered with %v", p.url, res.Status)
		return false
	}

	if p.expect == "" {
		return true
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		p.log.Debugf("Could not read answer of %v: %v", p.url, err)
		return false
	}

	if !strings.Contains(string(body), p.expect) {
		p.log.Debugf("Probe of %v answered with unexpected content", p.url)
		return false
	}

	return true
}
