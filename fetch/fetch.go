// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package fetch downloads and caches the auxiliary files the demos need:
// sample images, evaluation datasets and stray model files that don't live on
// the hub. Model checkpoints proper are fetched by package checkpoint through
// the hub client; fetch covers everything else.
//
// Files land under the cache directory (see CacheDir) and downloads are
// atomic: a partially written file is never visible at its final path.
package fetch

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gomlx/pkg/support/fsutil"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// CacheDir returns (and creates if needed) the cache directory joined with the
// given sub-path elements. It defaults to ~/.cache/gomlx/zoo.
func CacheDir(parts ...string) (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", errors.Wrap(err, "cannot resolve the user cache directory")
	}
	dir := filepath.Join(append([]string{base, "gomlx", "zoo"}, parts...)...)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "failed to create cache directory %q", dir)
	}
	return dir, nil
}

// Download fetches url and writes it to filePath, creating parent directories
// as needed. The file is written to a temporary name in the same directory and
// renamed into place once complete. Redirects are followed.
func Download(url, filePath string, showProgress bool) error {
	filePath, err := fsutil.ReplaceTildeInDir(filePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %q", filePath)
	}
	resp, err := http.Get(url)
	if err != nil {
		return errors.Wrapf(err, "failed downloading %q", url)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("downloading %q: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), filepath.Base(filePath)+".download-*")
	if err != nil {
		return errors.Wrapf(err, "failed creating temporary file for %q", filePath)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	var w io.Writer = tmp
	if showProgress {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetDescription(describeSize(resp.ContentLength)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionUseANSICodes(true),
			progressbar.OptionSetTheme(progressbar.ThemeUnicode),
		)
		w = io.MultiWriter(tmp, bar)
		defer func() {
			_ = bar.Close()
			fmt.Println()
		}()
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return errors.Wrapf(err, "downloading %q to %q", url, filePath)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed closing %q", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return errors.Wrapf(err, "failed moving download into place at %q", filePath)
	}
	return nil
}

func describeSize(contentLength int64) string {
	if contentLength < 0 {
		return "downloading"
	}
	return humanize.IBytes(uint64(contentLength))
}

// DownloadIfMissing downloads url to filePath unless the file already exists.
// If sha256Hex is non-empty the file's checksum is verified; an existing file
// with the wrong checksum is downloaded again.
func DownloadIfMissing(url, filePath, sha256Hex string) error {
	filePath, err := fsutil.ReplaceTildeInDir(filePath)
	if err != nil {
		return err
	}
	exists, err := fsutil.FileExists(filePath)
	if err != nil {
		return err
	}
	if exists && sha256Hex != "" {
		got, err := SHA256(filePath)
		if err != nil {
			return err
		}
		if !strings.EqualFold(got, sha256Hex) {
			klog.V(1).Infof("checksum mismatch for %q (got %s), downloading again", filePath, got)
			exists = false
		}
	}
	if !exists {
		klog.V(1).Infof("downloading %s", url)
		if err := Download(url, filePath, true); err != nil {
			return err
		}
	}
	if sha256Hex == "" {
		return nil
	}
	got, err := SHA256(filePath)
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, sha256Hex) {
		return errors.Errorf("file %q has sha256 %s, want %s", filePath, got, sha256Hex)
	}
	return nil
}

// SHA256 returns the hex-encoded SHA-256 digest of the file's contents.
func SHA256(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %q", filePath)
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "failed hashing %q", filePath)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Unzip extracts zipPath into destDir, preserving the archive's directory
// structure. Entries that would escape destDir are rejected.
func Unzip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return errors.Wrapf(err, "failed to open zip %q", zipPath)
	}
	defer func() { _ = r.Close() }()
	for _, f := range r.File {
		target := filepath.Join(destDir, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return errors.Errorf("zip %q contains entry %q escaping the target directory", zipPath, f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return errors.Wrapf(err, "failed to create %q", target)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return errors.Wrapf(err, "failed to create directory for %q", target)
		}
		if err := extractFile(f, target); err != nil {
			return errors.WithMessagef(err, "extracting %q from %q", f.Name, zipPath)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return errors.Wrap(err, "failed to open zip entry")
	}
	defer func() { _ = rc.Close() }()
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", target)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return errors.Wrapf(err, "failed writing %q", target)
	}
	return out.Close()
}

// Image downloads url into the image cache (if not there yet) and decodes it.
// JPEG and PNG are supported.
func Image(url string) (image.Image, error) {
	dir, err := CacheDir("images")
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256([]byte(url))
	name := hex.EncodeToString(sum[:6]) + "-" + filepath.Base(url)
	filePath := filepath.Join(dir, name)
	if err := DownloadIfMissing(url, filePath, ""); err != nil {
		return nil, err
	}
	img, err := imaging.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %q (from %s)", filePath, url)
	}
	return img, nil
}
