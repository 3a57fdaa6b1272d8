package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	payload := []byte("#!/bin/sh\necho installer\n")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "installer.sh")
	require.NoError(t, Download(context.Background(), server.URL, dest, ""))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	info, err := os.Stat(dest)
	require.NoError(t, err)
	require.NotZero(t, info.Mode()&0111, "download should be executable")
}

func TestDownloadChecksum(t *testing.T) {
	payload := []byte("payload")
	sum := sha256.Sum256(payload)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "installer.sh")
	require.NoError(t, Download(context.Background(), server.URL, dest, hex.EncodeToString(sum[:])))
}

func TestDownloadChecksumMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tampered"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "installer.sh")
	err := Download(context.Background(), server.URL, dest, "deadbeef")
	require.ErrorContains(t, err, "checksum mismatch")

	_, statErr := os.Stat(dest)
	require.True(t, os.IsNotExist(statErr), "failed download must not leave a file at dest")
}

func TestDownloadNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "installer.sh")
	err := Download(context.Background(), server.URL, dest, "")

	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.Status)
}

func TestDownloadReusesExisting(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write([]byte("payload"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "installer.sh")
	require.NoError(t, Download(context.Background(), server.URL, dest, ""))
	require.NoError(t, Download(context.Background(), server.URL, dest, ""))
	require.Equal(t, 1, requests)
}
