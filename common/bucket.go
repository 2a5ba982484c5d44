package common

/*

You might be thinking: I know, I'll make a common pool of buckets that all the
codes can use! It's okay, I thought that too. The problem is that if you call
the bucket's Close() method in your code (and you should call it _somewhere_)
then it will stop working (as expected) for all the other code that currently
has an instance of it. It's just not worth the logistics to bother with a pool
of buckets so create them as one-offs, as needed.

*/

import (
	"context"
	"fmt"
	"path/filepath"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
)

// OpenBucketForPath returns a new blob.Bucket rooted at the directory containing path,
// along with the key for path inside that bucket. Callers are responsible for closing
// the bucket.
func OpenBucketForPath(ctx context.Context, path string) (*blob.Bucket, string, error) {

	abs_path, err := filepath.Abs(path)

	if err != nil {
		return nil, "", fmt.Errorf("Failed to derive absolute path for %s, %w", path, err)
	}

	root := filepath.Dir(abs_path)
	key := filepath.Base(abs_path)

	bucket, err := fileblob.OpenBucket(root, nil)

	if err != nil {
		return nil, "", fmt.Errorf("Failed to open bucket for %s, %w", root, err)
	}

	return bucket, key, nil
}
