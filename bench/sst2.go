// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package bench

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/gomlx/gomlx/pkg/support/fsutil"
	"github.com/gomlx/zoo/fetch"
	"github.com/pkg/errors"
)

// SST2URL is the GLUE distribution of the Stanford Sentiment Treebank binary
// split, the labeled set the sentiment benchmark evaluates on.
const SST2URL = "https://dl.fbaipublicfiles.com/glue/data/SST-2.zip"

// LoadSST2 parses one GLUE SST-2 split: tab separated with a header row,
// columns "sentence" and "label" (0 negative, 1 positive). limit <= 0 keeps
// every row.
func LoadSST2(path string, limit int) (texts []string, labels []int, err error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "reading SST-2 split %q", path)
	}
	df := dataframe.ReadCSV(strings.NewReader(string(contents)),
		dataframe.HasHeader(true),
		dataframe.WithDelimiter('\t'),
		dataframe.WithLazyQuotes(true),
		dataframe.WithTypes(map[string]series.Type{
			"sentence": series.String,
			"label":    series.String,
		}))
	if df.Err != nil {
		return nil, nil, errors.Wrapf(df.Err, "parsing SST-2 split %q", path)
	}
	names := df.Names()
	if !slices.Contains(names, "sentence") || !slices.Contains(names, "label") {
		return nil, nil, errors.Errorf("%q does not look like an SST-2 split, columns are %v", path, names)
	}
	sentences := df.Col("sentence").Records()
	labelValues := df.Col("label").Records()

	n := len(sentences)
	if limit > 0 && limit < n {
		n = limit
	}
	texts = make([]string, 0, n)
	labels = make([]int, 0, n)
	for i := 0; i < n; i++ {
		label, err := strconv.Atoi(strings.TrimSpace(labelValues[i]))
		if err != nil {
			return nil, nil, errors.Wrapf(err, "row %d of %q has a non-integer label %q", i, path, labelValues[i])
		}
		texts = append(texts, sentences[i])
		labels = append(labels, label)
	}
	return texts, labels, nil
}

// FetchSST2 downloads and unpacks the GLUE SST-2 archive into the cache
// (once) and returns the parsed dev split. limit <= 0 keeps all 872 rows.
func FetchSST2(limit int) (texts []string, labels []int, err error) {
	cacheDir, err := fetch.CacheDir("datasets")
	if err != nil {
		return nil, nil, err
	}
	devPath := filepath.Join(cacheDir, "SST-2", "dev.tsv")
	haveDev, err := fsutil.FileExists(devPath)
	if err != nil {
		return nil, nil, err
	}
	if !haveDev {
		zipPath := filepath.Join(cacheDir, "SST-2.zip")
		if err := fetch.DownloadIfMissing(SST2URL, zipPath, ""); err != nil {
			return nil, nil, err
		}
		if err := fetch.Unzip(zipPath, cacheDir); err != nil {
			return nil, nil, err
		}
	}
	return LoadSST2(devPath, limit)
}
