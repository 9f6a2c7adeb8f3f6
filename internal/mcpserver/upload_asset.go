package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// maxAssetSize caps uploaded art and handout files at 10 MB.
const maxAssetSize = 10 << 20

var (
	assetExts = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true,
		".gif": true, ".webp": true, ".svg": true, ".pdf": true,
	}

	extByMIME = map[string]string{
		"image/png":       ".png",
		"image/jpeg":      ".jpg",
		"image/gif":       ".gif",
		"image/webp":      ".webp",
		"image/svg+xml":   ".svg",
		"application/pdf": ".pdf",
	}

	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

type uploadResult struct {
	SavedPath     string `json:"savedPath"`
	MarkdownImage string `json:"markdownImage"`
}

// uploadAsset pulls an image or PDF into the vault's assets directory.
// The source is either a base64 data URI or an http(s) URL; content is
// sniffed so a renamed payload cannot masquerade as an image.
func (s *Server) uploadAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name := ""
	if v, fErr := req.RequireString("filename"); fErr == nil {
		name = v
	}

	var data []byte
	var sniffedExt string
	if strings.HasPrefix(source, "data:") {
		data, sniffedExt, err = assetFromDataURI(source)
	} else {
		data, sniffedExt, err = assetFromURL(ctx, source)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(data) > maxAssetSize {
		return mcp.NewToolResultError(fmt.Sprintf("asset too large: %d bytes (limit %d)", len(data), maxAssetSize)), nil
	}

	if name == "" {
		name = deriveFilename(source, sniffedExt)
	}
	name = scrubFilename(name)

	ext := strings.ToLower(filepath.Ext(name))
	if !assetExts[ext] {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported asset extension %s (png, jpg, jpeg, gif, webp, svg, pdf)", ext)), nil
	}
	if err := verifyContent(data, ext); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	savePath := filepath.Join("assets", name)
	if _, readErr := s.store.Read(savePath); readErr == nil {
		return mcp.NewToolResultError(fmt.Sprintf("asset already exists: %s", savePath)), nil
	}
	if err := s.store.Write(savePath, data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("save asset: %v", err)), nil
	}

	urlPath := "/assets/" + name
	out, _ := json.Marshal(uploadResult{
		SavedPath:     urlPath,
		MarkdownImage: fmt.Sprintf("![%s](%s)", name, urlPath),
	})
	return mcp.NewToolResultText(string(out)), nil
}

// assetFromDataURI decodes a data:[<mediatype>][;base64],<payload> URI
// and maps its media type to a file extension.
func assetFromDataURI(uri string) ([]byte, string, error) {
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URI: no comma separator")
	}
	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("data URI must be base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// Some producers omit padding.
		if data, err = base64.RawStdEncoding.DecodeString(encoded); err != nil {
			return nil, "", fmt.Errorf("decode data URI payload: %w", err)
		}
	}

	mediaType, _, _ := strings.Cut(strings.TrimSuffix(meta, ";base64"), ";")
	ext, known := extByMIME[mediaType]
	if !known {
		return nil, "", fmt.Errorf("unsupported media type %q in data URI", mediaType)
	}
	return data, ext, nil
}

// assetFromURL downloads over http(s), refusing internal hosts both on
// the initial request and across redirects.
func assetFromURL(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("scheme %q not supported (http or https)", parsed.Scheme)
	}
	if err := rejectInternalHost(parsed.Hostname()); err != nil {
		return nil, "", err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects")
			}
			return rejectInternalHost(req.URL.Hostname())
		},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("download asset: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download asset: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read asset body: %w", err)
	}
	if len(data) > maxAssetSize {
		return nil, "", fmt.Errorf("asset too large: exceeds %d bytes", maxAssetSize)
	}

	mediaType, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";")
	return data, extByMIME[mediaType], nil
}

// rejectInternalHost blocks loopback, link-local, and cloud metadata
// targets so a vault tool cannot be steered at local services.
func rejectInternalHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("host %s is not allowed", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			// Unresolvable names fail later in the client.
			return nil
		}
		ip = ips[0]
	}

	switch {
	case ip.IsLoopback():
		return fmt.Errorf("host %s resolves to a loopback address", host)
	case ip.IsLinkLocalUnicast():
		// Covers 169.254.169.254 and friends.
		return fmt.Errorf("host %s resolves to a link-local address", host)
	}
	return nil
}

// deriveFilename takes the last URL path segment when it looks like a
// real filename, otherwise mints a random name with the sniffed
// extension.
func deriveFilename(source, sniffedExt string) string {
	if !strings.HasPrefix(source, "data:") {
		if parsed, err := url.Parse(source); err == nil {
			base := path.Base(parsed.Path)
			if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
				return base
			}
		}
	}
	ext := sniffedExt
	if ext == "" {
		ext = ".bin"
	}
	return uuid.New().String() + ext
}

// scrubFilename drops directory components and anything outside the
// safe character set.
func scrubFilename(name string) string {
	name = unsafeChars.ReplaceAllString(filepath.Base(name), "_")
	if name == "" || name == "." {
		name = uuid.New().String()
	}
	return name
}

// verifyContent checks that the payload really is what its extension
// claims. SVG is text, so it gets a tag scan instead of a sniff.
func verifyContent(data []byte, ext string) error {
	if ext == ".svg" {
		head := data
		if len(head) > 1024 {
			head = head[:1024]
		}
		if !bytes.Contains(head, []byte("<svg")) {
			return fmt.Errorf("payload has no <svg tag, refusing to store as SVG")
		}
		return nil
	}

	detected := http.DetectContentType(data)
	mediaType, _, _ := strings.Cut(detected, ";")
	got := extByMIME[mediaType]
	if got == ext {
		return nil
	}
	// DetectContentType reports image/jpeg for both spellings.
	if (ext == ".jpg" || ext == ".jpeg") && (got == ".jpg" || got == ".jpeg") {
		return nil
	}
	return fmt.Errorf("payload does not match extension %s (detected %s)", ext, detected)
}
