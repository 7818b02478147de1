// Package httpclient builds the HTTP client shared by the P2 and Maven
// downloaders.
package httpclient

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
)

// uaEnvVar lets users append to the User-Agent, e.g. for proxy accounting.
const uaEnvVar = "EQUO_APPEND_USER_AGENT"

// Version is reported in the User-Agent. cmd sets it from the build info.
var Version = "dev"

// New returns a pooled cleanhttp client that sends the equo-ide User-Agent.
// file:// URLs are served from the local filesystem so repositories can be
// mirrored on disk. A zero timeout leaves requests bounded only by their
// context.
func New(timeout time.Duration) *http.Client {
	cli := cleanhttp.DefaultPooledClient()
	cli.Timeout = timeout
	if t, ok := cli.Transport.(*http.Transport); ok {
		t.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))
	}
	cli.Transport = &userAgentRoundTripper{
		userAgent: UserAgent(Version),
		inner:     cli.Transport,
	}
	return cli
}

// UserAgent formats the User-Agent for version.
func UserAgent(version string) string {
	ua := fmt.Sprintf("equo-ide/%s (+https://equo.dev)", version)
	if add := strings.TrimSpace(os.Getenv(uaEnvVar)); add != "" {
		ua += " " + add
	}
	return ua
}

type userAgentRoundTripper struct {
	inner     http.RoundTripper
	userAgent string
}

func (rt *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if _, ok := req.Header["User-Agent"]; !ok {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", rt.userAgent)
	}
	return rt.inner.RoundTrip(req)
}
