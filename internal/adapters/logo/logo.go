package logo

import (
	"bytes"
	"context"
	"fmt"
	"github.com/Badsnus/qr-studio/internal/domain/common/errorz"
	"github.com/Badsnus/qr-studio/pkg/logger/types"
	qr "github.com/Badsnus/qr-studio/pkg/qrcode"
	"image"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

type cache interface {
	Get(ctx context.Context, url string) ([]byte, error)
	Set(ctx context.Context, url string, data []byte, expiration time.Duration) error
	Clear(ctx context.Context, url string) error
}

type Options struct {
	Timeout      time.Duration // Per request fetch timeout
	MaxBytes     int64         // Largest accepted logo file
	CacheTTL     time.Duration // How long fetched logos stay cached
	Dir          string        // Directory local logo paths are resolved against
	Hosts        []string      // Remote hosts logos may come from, any public host when empty
	AllowPrivate bool          // Allow loopback and private network addresses
}

// Client loads logos referenced by customizations. It serves data URLs,
// files under Options.Dir and http(s) URLs, caching remote ones.
type Client struct {
	http   *http.Client
	cache  cache
	opts   Options
	logger *types.Logger
}

func New(opts Options, cache cache, logger *types.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 2 << 20
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	c := &Client{
		cache:  cache,
		opts:   opts,
		logger: logger,
	}

	dialer := &net.Dialer{Timeout: opts.Timeout}
	if !opts.AllowPrivate {
		dialer.Control = publicOnly
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	c.http = &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return c.checkHost(req.URL)
		},
	}
	return c
}

const maxRedirects = 3

// publicOnly refuses connections to loopback, private and link-local
// addresses. It runs after name resolution, so DNS names pointing inside the
// network are refused as well.
func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return fmt.Errorf("%w: %s is not a public address", errorz.ErrLogoHostDenied, host)
	}
	return nil
}

func (c *Client) checkHost(u *url.URL) error {
	if len(c.opts.Hosts) == 0 {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range c.opts.Hosts {
		allowed = strings.ToLower(allowed)
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", errorz.ErrLogoHostDenied, host)
}

// Load implements qr.LogoSource.
func (c *Client) Load(ctx context.Context, ref string) (image.Image, error) {
	data, err := c.read(ctx, ref)
	if err != nil {
		return nil, err
	}
	img, err := Decode(data)
	if err != nil && c.cache != nil && isRemote(ref) {
		// drop a cached entry that does not decode
		if clearErr := c.cache.Clear(ctx, ref); clearErr != nil {
			c.logger.Warnf("logo cache clear failed for %s: %v", ref, clearErr)
		}
	}
	return img, err
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func (c *Client) read(ctx context.Context, ref string) ([]byte, error) {
	if qr.IsDataURL(ref) {
		data, _, err := qr.ParseDataURL(ref)
		if err != nil {
			return nil, err
		}
		return data, c.checkSize(len(data))
	}

	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errorz.ErrUnsupportedLogo, err)
	}
	switch u.Scheme {
	case "http", "https":
		if err = c.checkHost(u); err != nil {
			return nil, err
		}
		return c.fetch(ctx, ref)
	case "", "file":
		return c.readFile(u.Path)
	}
	return nil, fmt.Errorf("%w: scheme %q", errorz.ErrUnsupportedLogo, u.Scheme)
}

func (c *Client) fetch(ctx context.Context, ref string) ([]byte, error) {
	if c.cache != nil {
		data, err := c.cache.Get(ctx, ref)
		if err != nil {
			c.logger.Warnf("logo cache read failed for %s: %v", ref, err)
		} else if data != nil {
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch logo: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read logo: %w", err)
	}
	if err = c.checkSize(len(data)); err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err = c.cache.Set(ctx, ref, data, c.opts.CacheTTL); err != nil {
			c.logger.Warnf("logo cache write failed for %s: %v", ref, err)
		}
	}
	c.logger.Debugf("fetched logo %s (%d bytes)", ref, len(data))
	return data, nil
}

func (c *Client) readFile(path string) ([]byte, error) {
	if c.opts.Dir == "" {
		return nil, fmt.Errorf("%w: local logos are disabled", errorz.ErrUnsupportedLogo)
	}
	clean := filepath.Clean("/" + path)
	full := filepath.Join(c.opts.Dir, clean)

	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	if err = c.checkSize(int(info.Size())); err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

func (c *Client) checkSize(n int) error {
	if int64(n) > c.opts.MaxBytes {
		return fmt.Errorf("%w: more than %d bytes", errorz.ErrLogoTooLarge, c.opts.MaxBytes)
	}
	return nil
}

// Decode decodes a raster logo or rasterizes an SVG one.
func Decode(data []byte) (image.Image, error) {
	if isSVG(data) {
		return rasterizeSVG(data)
	}
	return qr.DecodeLogo(bytes.NewReader(data))
}

func isSVG(data []byte) bool {
	head := data[:min(len(data), 512)]
	return bytes.Contains(head, []byte("<svg")) || bytes.HasPrefix(bytes.TrimSpace(head), []byte("<?xml"))
}
