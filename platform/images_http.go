package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/RussellLuo/slidingwindow"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/spaolacci/murmur3"
	"golang.org/x/sync/semaphore"

	"github.com/chatsweep/chatsweep/message"
)

// QRDecoder turns a downloaded image into decoded QR text. Supplied by the
// embedding process; the core never implements decoding itself.
type QRDecoder func(ctx context.Context, path string) (string, error)

// FileURL maps a platform file reference to a fetchable URL.
type FileURL func(ref message.FileRef) string

// HTTPImages is the default Images implementation: retrying HTTP download
// with a sliding-window rate cap and a bound on concurrent fetches, plus an
// injected QR decoder.
type HTTPImages struct {
	client  *http.Client
	fileURL FileURL
	decode  QRDecoder
	limiter *slidingwindow.Limiter
	sem     *semaphore.Weighted
	tmpDir  string
	maxSize int64
}

var _ Images = (*HTTPImages)(nil)

// NewHTTPImages builds the downloader. maxPerSecond caps download rate,
// maxConcurrent caps in-flight fetches, maxSize caps accepted image bytes.
func NewHTTPImages(fileURL FileURL, decode QRDecoder, tmpDir string, maxPerSecond int, maxConcurrent int64, maxSize int64) (*HTTPImages, error) {
	lim, _ := slidingwindow.NewLimiter(time.Second, int64(maxPerSecond), func() (slidingwindow.Window, slidingwindow.StopFunc) {
		return slidingwindow.NewLocalWindow()
	})

	// Generates an HTTP client with decent general-purpose defaults around
	// timeouts and retries.
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil
	client := retryClient.StandardClient()
	client.Timeout = 20 * time.Second

	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	return &HTTPImages{
		client:  client,
		fileURL: fileURL,
		decode:  decode,
		limiter: lim,
		sem:     semaphore.NewWeighted(maxConcurrent),
		tmpDir:  tmpDir,
		maxSize: maxSize,
	}, nil
}

func (h *HTTPImages) Download(ctx context.Context, ref message.FileRef) (string, error) {
	if ref.ID == "" {
		return "", nil
	}
	if !h.limiter.Allow() {
		return "", nil
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.fileURL(ref), nil)
	if err != nil {
		return "", err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image fetch failed, status %d", resp.StatusCode)
	}

	f, err := os.CreateTemp(h.tmpDir, "img-*")
	if err != nil {
		return "", err
	}
	_, err = io.Copy(f, io.LimitReader(resp.Body, h.maxSize))
	cerr := f.Close()
	if err != nil || cerr != nil {
		os.Remove(f.Name())
		if err == nil {
			err = cerr
		}
		return "", err
	}
	return f.Name(), nil
}

func (h *HTTPImages) DecodeQR(ctx context.Context, path string) (string, error) {
	if h.decode == nil {
		return "", nil
	}
	return h.decode(ctx, path)
}

func (h *HTTPImages) Hash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	hasher := murmur3.New128()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}
