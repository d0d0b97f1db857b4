package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"
	"time"

	"github.com/Laisky/errors/v2"
	_ "golang.org/x/image/webp"

	"github.com/songquanpeng/chatkit/common/config"
	"github.com/songquanpeng/chatkit/relay/model"
)

const imageDownloadTimeout = 30 * time.Second

// ErrForbiddenAddress is returned when a user supplied URL resolves to an
// internal address.
var ErrForbiddenAddress = errors.New("address is not allowed")

// UserContentHTTPClient downloads URLs that come from requests. It never
// dials loopback, private, link-local or unspecified addresses.
var UserContentHTTPClient = newUserContentHTTPClient()

var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

func newUserContentHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, Control: denyInternalAddress}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// a proxy would be the only address checked
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &http.Client{Transport: transport, Timeout: imageDownloadTimeout}
}

// denyInternalAddress runs after DNS resolution, so address is always an IP.
func denyInternalAddress(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return errors.Wrapf(err, "split address %s", address)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return errors.Wrapf(err, "parse address %s", host)
	}
	ip = ip.Unmap()
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast() ||
		sharedAddressSpace.Contains(ip) {
		return errors.Wrapf(ErrForbiddenAddress, "dial %s", ip)
	}
	return nil
}

// ImageInfo is the decoded header of an image.
type ImageInfo struct {
	MimeType string
	Width    int
	Height   int
}

// DecodeImageConfig reads the format and size of base64 encoded image data.
func DecodeImageConfig(b64 string) (*ImageInfo, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, errors.Wrap(err, "decode base64 image")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "decode image config")
	}
	return &ImageInfo{MimeType: "image/" + format, Width: cfg.Width, Height: cfg.Height}, nil
}

// ParseDataURI splits data:image/png;base64,xxx into its mime type and payload.
func ParseDataURI(uri string) (mimeType, data string, err error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", "", errors.New("invalid data URI: must start with 'data:'")
	}
	comma := strings.Index(uri, ",")
	if comma == -1 {
		return "", "", errors.New("invalid data URI: missing comma separator")
	}
	meta := uri[len("data:"):comma]
	if !strings.HasSuffix(meta, ";base64") {
		return "", "", errors.New("invalid data URI: only base64 encoding supported")
	}
	mimeType = strings.TrimSuffix(meta, ";base64")
	if !strings.HasPrefix(mimeType, "image/") {
		return "", "", errors.New("invalid data URI: not an image type")
	}
	return mimeType, uri[comma+1:], nil
}

// InlineImages returns messages where every image given by URL is replaced by its
// base64 content. Messages without URL images are returned as is.
func InlineImages(ctx context.Context, messages []model.ChatMessage) ([]model.ChatMessage, error) {
	out := make([]model.ChatMessage, len(messages))
	for i, m := range messages {
		um, ok := m.(*model.UserMessage)
		if !ok || !hasURLImage(um) {
			out[i] = m
			continue
		}

		cp := &model.UserMessage{Name: um.Name, Contents: make([]model.Content, len(um.Contents))}
		for j, c := range um.Contents {
			img, ok := c.(*model.ImageContent)
			if !ok || img.Inline() {
				cp.Contents[j] = c
				continue
			}
			inlined, err := inlineImage(ctx, img.URL)
			if err != nil {
				return nil, errors.Wrapf(err, "inline image %d of message %d", j, i)
			}
			cp.Contents[j] = inlined
		}
		out[i] = cp
	}
	return out, nil
}

func hasURLImage(m *model.UserMessage) bool {
	for _, c := range m.Contents {
		if img, ok := c.(*model.ImageContent); ok && !img.Inline() {
			return true
		}
	}
	return false
}

func inlineImage(ctx context.Context, url string) (*model.ImageContent, error) {
	if strings.HasPrefix(url, "data:") {
		mimeType, data, err := ParseDataURI(url)
		if err != nil {
			return nil, err
		}
		return &model.ImageContent{Base64Data: data, MimeType: mimeType}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, imageDownloadTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build image request")
	}
	resp, err := UserContentHTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "download image")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("download image: status %d", resp.StatusCode)
	}

	limit := int64(config.MaxInlineImageSizeMB) << 20
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, errors.Wrap(err, "read image")
	}
	if int64(len(raw)) > limit {
		return nil, errors.Errorf("image exceeds %d MB", config.MaxInlineImageSizeMB)
	}

	data := base64.StdEncoding.EncodeToString(raw)
	info, err := DecodeImageConfig(data)
	if err != nil {
		return nil, err
	}
	return &model.ImageContent{Base64Data: data, MimeType: info.MimeType}, nil
}
