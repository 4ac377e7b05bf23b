package update

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxArtifactBytes caps extracted archive contents to defend against
// decompression bombs.
const maxArtifactBytes = 500 << 20

// ErrChecksumMismatch indicates the downloaded artifact's hash does not
// match the advertised manifest.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Downloader fetches and verifies release artifacts. Only the network fetch
// is retried; verification failures are final.
type Downloader struct {
	client  *http.Client
	retries int
	backoff time.Duration
}

// NewDownloader creates a Downloader with the given per-request timeout and
// retry budget.
func NewDownloader(timeout time.Duration, retries int) *Downloader {
	if retries < 1 {
		retries = 1
	}
	return &Downloader{
		client:  &http.Client{Timeout: timeout},
		retries: retries,
		backoff: time.Second,
	}
}

// Download fetches url into dst, retrying transient failures up to the
// retry budget with linear backoff. The file is written via a temp path and
// renamed so dst never holds a truncated artifact.
func (d *Downloader) Download(url, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= d.retries; attempt++ {
		if attempt > 1 {
			time.Sleep(d.backoff * time.Duration(attempt-1))
		}
		if lastErr = d.fetch(url, dst); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("download failed after %d attempts: %w", d.retries, lastErr)
}

func (d *Downloader) fetch(url, dst string) error {
	resp, err := d.client.Get(url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	tmp := dst + ".partial"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

// VerifyChecksum downloads the checksums file from checksumURL and compares
// the SHA256 of file against the entry matching its base name. The
// checksums file uses the sha256sum output format: "{hex}  {filename}".
func (d *Downloader) VerifyChecksum(file, checksumURL string) error {
	resp, err := d.client.Get(checksumURL)
	if err != nil {
		return fmt.Errorf("failed to fetch checksums: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("checksum server returned status %d", resp.StatusCode)
	}

	expected, err := findChecksum(resp.Body, filepath.Base(file))
	if err != nil {
		return err
	}

	actual, err := hashFile(file)
	if err != nil {
		return err
	}

	if actual != expected {
		return fmt.Errorf("%w for %s: expected %s, got %s", ErrChecksumMismatch, filepath.Base(file), expected, actual)
	}
	return nil
}

// findChecksum scans sha256sum-format lines for the named file.
func findChecksum(r io.Reader, filename string) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		parts := strings.Fields(line)
		if len(parts) != 2 {
			continue
		}
		if strings.TrimPrefix(parts[1], "*") == filename && len(parts[0]) == 64 {
			return strings.ToLower(parts[0]), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read checksums: %w", err)
	}
	return "", fmt.Errorf("no checksum entry for %s", filename)
}

// hashFile computes the hex-encoded SHA256 of a file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Extract unpacks a tar.gz archive into dst. Entries escaping dst are
// rejected, and total extracted size is capped.
func Extract(archive, dst string) error {
	f, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read gzip stream: %w", err)
	}
	defer func() { _ = gz.Close() }()

	if err := os.MkdirAll(dst, 0755); err != nil {
		return err
	}

	var total int64
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}

		name := filepath.Clean(hdr.Name)
		if name == "." || name == ".." || strings.HasPrefix(name, ".."+string(os.PathSeparator)) || filepath.IsAbs(name) {
			return fmt.Errorf("archive entry escapes destination: %s", hdr.Name)
		}
		target := filepath.Join(dst, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if total += hdr.Size; total > maxArtifactBytes {
				return fmt.Errorf("archive exceeds size limit")
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode).Perm())
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, io.LimitReader(tr, hdr.Size)); err != nil {
				_ = out.Close()
				return fmt.Errorf("failed to extract %s: %w", name, err)
			}
			if err := out.Close(); err != nil {
				return err
			}
		default:
			// Symlinks and devices have no place in a release archive.
			return fmt.Errorf("unsupported archive entry type for %s", hdr.Name)
		}
	}
}
