package common

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/whosonfirst/go-ioutil"
	"github.com/whosonfirst/go-writer/v3"
)

var writers = make(map[string]writer.Writer)
var writers_mu = new(sync.RWMutex)

// NewWriter returns a whosonfirst/go-writer.Writer instance. Instances
// are cached in memory for repeat lookups.
func NewWriter(ctx context.Context, uri string) (writer.Writer, error) {

	writers_mu.Lock()
	defer writers_mu.Unlock()

	r, ok := writers[uri]

	if ok {
		return r, nil
	}

	r, err := writer.NewWriter(ctx, uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to create writer for '%s', %w", uri, err)
	}

	writers[uri] = r
	return r, nil
}

// WriteFile writes body to path on the local filesystem using a (cached) fs:// writer
// rooted at path's parent directory. It returns the absolute path that was written.
func WriteFile(ctx context.Context, path string, body []byte) (string, error) {

	abs_path, err := filepath.Abs(path)

	if err != nil {
		return "", fmt.Errorf("Failed to derive absolute path for %s, %w", path, err)
	}

	root := filepath.Dir(abs_path)
	fname := filepath.Base(abs_path)

	err = os.MkdirAll(root, 0755)

	if err != nil {
		return "", fmt.Errorf("Failed to create %s, %w", root, err)
	}

	wr_uri := fmt.Sprintf("fs://%s", root)

	wr, err := NewWriter(ctx, wr_uri)

	if err != nil {
		return "", err
	}

	br := bytes.NewReader(body)
	fh, err := ioutil.NewReadSeekCloser(br)

	if err != nil {
		return "", fmt.Errorf("Failed to create ReadSeekCloser for %s, %w", path, err)
	}

	_, err = wr.Write(ctx, fname, fh)

	if err != nil {
		return "", fmt.Errorf("Failed to write %s, %w", path, err)
	}

	return abs_path, nil
}
