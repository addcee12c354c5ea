// Package reports stores uploaded lab report files (PDFs and scans)
// under the journal's reports/ directory.
package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/storage"
)

// Dir is the journal subdirectory holding reports.
const Dir = "reports"

// MaxSize caps a single report.
const MaxSize = 20 << 20

var (
	allowedExtensions = map[string]bool{
		".pdf": true, ".png": true, ".jpg": true, ".jpeg": true, ".webp": true,
	}

	mimeToExt = map[string]string{
		"application/pdf": ".pdf",
		"image/png":       ".png",
		"image/jpeg":      ".jpg",
		"image/webp":      ".webp",
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// Report describes a stored report file.
type Report struct {
	Filename     string `json:"filename"`
	Size         int    `json:"size"`
	URL          string `json:"url"`
	MarkdownLink string `json:"markdown_link"`
}

// Store saves and reads report files through a storage.Provider.
type Store struct {
	vault  storage.Provider
	client *http.Client

	// blockIP rejects addresses imports may not reach. It runs on every
	// resolved address and again on the address actually dialed.
	blockIP  func(ip net.IP) error
	lookupIP func(ctx context.Context, host string) ([]net.IP, error)
}

// NewStore creates a report store on top of the journal vault.
func NewStore(vault storage.Provider) *Store {
	s := &Store{
		vault:   vault,
		blockIP: blockedIP,
		lookupIP: func(ctx context.Context, host string) ([]net.IP, error) {
			return net.DefaultResolver.LookupIP(ctx, "ip", host)
		},
	}
	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: func(_, address string, _ syscall.RawConn) error {
			return s.checkDialAddr(address)
		},
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	s.client = &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects (max 5)")
			}
			return s.checkHost(req.Context(), req.URL.Hostname())
		},
	}
	return s
}

// Save validates and writes a new report. Existing files are never
// replaced.
func (s *Store) Save(_ context.Context, filename string, data []byte) (Report, error) {
	name, err := cleanName(filename)
	if err != nil {
		return Report{}, err
	}
	if len(data) == 0 {
		return Report{}, fmt.Errorf("%w: empty file", apperr.ErrInvalid)
	}
	if len(data) > MaxSize {
		return Report{}, fmt.Errorf("%w: file too large: %d bytes (max %d)", apperr.ErrInvalid, len(data), MaxSize)
	}
	if err := validateMagicBytes(data, filepath.Ext(name)); err != nil {
		return Report{}, err
	}
	if err := s.vault.Create(path.Join(Dir, name), data); err != nil {
		if errors.Is(err, os.ErrExist) {
			return Report{}, fmt.Errorf("report %s: %w", name, apperr.ErrAlreadyExists)
		}
		return Report{}, err
	}
	url := "/api/" + Dir + "/" + name
	return Report{
		Filename:     name,
		Size:         len(data),
		URL:          url,
		MarkdownLink: fmt.Sprintf("[%s](%s)", name, url),
	}, nil
}

// Import saves a report given as a data: URI or an http(s) URL. An empty
// filename is derived from the URL.
func (s *Store) Import(ctx context.Context, rawURL, filename string) (Report, error) {
	var (
		data []byte
		ext  string
		err  error
	)
	if strings.HasPrefix(rawURL, "data:") {
		data, ext, err = decodeDataURI(rawURL)
	} else {
		data, ext, err = s.fetch(ctx, rawURL)
	}
	if err != nil {
		return Report{}, err
	}
	if filename == "" {
		filename = filenameFromURL(rawURL, ext)
	}
	return s.Save(ctx, filename, data)
}

// Read returns a stored report and its content type.
func (s *Store) Read(filename string) ([]byte, string, error) {
	name, err := cleanName(filename)
	if err != nil {
		return nil, "", err
	}
	data, err := s.vault.Read(path.Join(Dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", apperr.ErrNotFound
		}
		return nil, "", err
	}
	return data, http.DetectContentType(data), nil
}

// cleanName accepts a plain file name with an allowed extension.
func cleanName(name string) (string, error) {
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: invalid filename: %s", apperr.ErrInvalid, name)
	}
	name = sanitizeFilename(name)
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: unsupported file extension %q (allowed: pdf, png, jpg, jpeg, webp)", apperr.ErrInvalid, ext)
	}
	return name, nil
}

func sanitizeFilename(name string) string {
	name = safeFilenameRe.ReplaceAllString(strings.TrimSpace(name), "_")
	if name == "" || strings.HasPrefix(name, ".") {
		name = uuid.NewString() + name
	}
	return name
}

// validateMagicBytes verifies the content matches the extension.
func validateMagicBytes(data []byte, ext string) error {
	ext = strings.ToLower(ext)
	if ext == ".pdf" {
		// DetectContentType requires the header at offset 0; some scanners
		// emit leading whitespace.
		if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("%PDF-")) {
			return nil
		}
		return fmt.Errorf("%w: content is not a PDF", apperr.ErrInvalid)
	}
	detected := strings.Split(http.DetectContentType(data), ";")[0]
	want := mimeToExt[detected]
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	if want != ext {
		return fmt.Errorf("%w: content does not match extension %s (detected: %s)", apperr.ErrInvalid, ext, detected)
	}
	return nil
}
