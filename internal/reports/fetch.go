package reports

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/laguz/internal/apperr"
)

// decodeDataURI parses a data:<mediatype>;base64,<data> URI.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	comma := strings.Index(rest, ",")
	if comma < 0 {
		return nil, "", fmt.Errorf("%w: invalid data URI: missing comma separator", apperr.ErrInvalid)
	}
	meta, encoded := rest[:comma], rest[comma+1:]
	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("%w: only base64 data URIs are supported", apperr.ErrInvalid)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("%w: invalid base64 data: %v", apperr.ErrInvalid, err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	ext := mimeToExt[mime]
	if ext == "" {
		return nil, "", fmt.Errorf("%w: unsupported MIME type in data URI: %s", apperr.ErrInvalid, mime)
	}
	return data, ext, nil
}

// fetch downloads a report over http(s), refusing internal hosts.
func (s *Store) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("%w: invalid URL: %v", apperr.ErrInvalid, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("%w: unsupported scheme %q (only http/https)", apperr.ErrInvalid, parsed.Scheme)
	}
	if err := s.checkHost(ctx, parsed.Hostname()); err != nil {
		return nil, "", fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, errBlocked) {
			return nil, "", fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
		}
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > MaxSize {
		return nil, "", fmt.Errorf("%w: file too large: exceeds %d bytes", apperr.ErrInvalid, MaxSize)
	}

	ct := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	return data, mimeToExt[ct], nil
}

var errBlocked = errors.New("blocked host")

// checkHost rejects cloud metadata names and any host that resolves to a
// blocked address. Every resolved address is checked, not just the first.
func (s *Store) checkHost(ctx context.Context, host string) error {
	if strings.EqualFold(strings.TrimSuffix(host, "."), "metadata.google.internal") {
		return fmt.Errorf("%w: %s", errBlocked, host)
	}
	if ip := net.ParseIP(host); ip != nil {
		return s.blockIP(ip)
	}
	ips, err := s.lookupIP(ctx, host)
	if err != nil || len(ips) == 0 {
		return nil //nolint:nilerr // let http.Client report DNS failures
	}
	for _, ip := range ips {
		if err := s.blockIP(ip); err != nil {
			return fmt.Errorf("%s: %w", host, err)
		}
	}
	return nil
}

// checkDialAddr runs on the connection's resolved address, so a name that
// re-resolves between checkHost and the dial is still caught.
func (s *Store) checkDialAddr(address string) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", errBlocked, address)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("%w: unresolved address %s", errBlocked, address)
	}
	return s.blockIP(ip)
}

// blockedIP rejects loopback, unspecified and link-local addresses, which
// include the 169.254.169.254 metadata endpoint.
func blockedIP(ip net.IP) error {
	switch {
	case ip.IsLoopback():
		return fmt.Errorf("%w: loopback address %s", errBlocked, ip)
	case ip.IsUnspecified():
		return fmt.Errorf("%w: unspecified address %s", errBlocked, ip)
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return fmt.Errorf("%w: link-local address %s", errBlocked, ip)
	}
	return nil
}

// filenameFromURL takes the last path segment, or a random name.
func filenameFromURL(rawURL, ext string) string {
	if ext == "" {
		ext = ".pdf"
	}
	if !strings.HasPrefix(rawURL, "data:") {
		if parsed, err := url.Parse(rawURL); err == nil {
			base := path.Base(parsed.Path)
			if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
				return base
			}
		}
	}
	return uuid.NewString() + ext
}
