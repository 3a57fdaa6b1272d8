package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/alexflint/go-filemutex"
	"github.com/charmbracelet/log"
)

// HTTPStatusError reports a non-2xx response for a download
type HTTPStatusError struct {
	URL    string
	Status int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.Status, e.URL)
}

// Download fetches url into dest. The destination directory is created if
// needed and a file lock guards against concurrent runs downloading the same
// payload. When dest already exists and matches the expected checksum it is
// reused. The payload is written to a temp file and renamed into place so a
// partial download never ends up at dest.
func Download(ctx context.Context, url, dest, sha256hex string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	m, err := filemutex.New(dest + ".lock")
	if err != nil {
		return fmt.Errorf("failed to create download lock: %w", err)
	}
	if err := m.Lock(); err != nil {
		return fmt.Errorf("failed to acquire download lock: %w", err)
	}
	defer func() {
		_ = m.Unlock()
	}()

	if _, err := os.Stat(dest); err == nil {
		if sha256hex == "" {
			log.Debugf("Reusing existing download at %s", dest)
			return nil
		}
		if sum, err := fileChecksum(dest); err == nil && sum == sha256hex {
			log.Debugf("Reusing verified download at %s", dest)
			return nil
		}
		// Stale or corrupt; re-download
		_ = os.Remove(dest)
	}

	log.Debugf("Downloading %s to %s", url, dest)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPStatusError{URL: url, Status: resp.StatusCode}
	}

	tempFile, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		tempFile.Close()
		if !success {
			os.Remove(tempPath)
		}
	}()

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tempFile, hasher), resp.Body); err != nil {
		return fmt.Errorf("failed to save download: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if sha256hex != "" {
		sum := hex.EncodeToString(hasher.Sum(nil))
		if sum != sha256hex {
			return fmt.Errorf("checksum mismatch for %s: expected %s, got %s", url, sha256hex, sum)
		}
	}

	// Installer payloads are executed directly after download
	if err := os.Chmod(tempPath, 0755); err != nil {
		return fmt.Errorf("failed to set executable permissions: %w", err)
	}

	if err := os.Rename(tempPath, dest); err != nil {
		return fmt.Errorf("failed to move download into place: %w", err)
	}

	success = true
	return nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
