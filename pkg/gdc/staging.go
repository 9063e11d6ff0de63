package gdc

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
)

const (
	// stagingURI is where the WebDAV user staging area is mounted.
	stagingURI = "/gdc/uploads"
	// stagingRef prefixes staging paths referenced from API requests.
	stagingRef = "/uploads"
)

// StagingDir is a directory of the user staging area. Files are uploaded
// there before a process deployment or a dataset load refers to them.
type StagingDir string

// NewStagingDir returns a directory with a random name.
func NewStagingDir() StagingDir {
	return StagingDir(uuid.NewString())
}

// URI returns the WebDAV URI of file in d.
func (d StagingDir) URI(file string) string {
	return path.Join(stagingURI, string(d), file)
}

// Path returns file in d as referenced by API request bodies.
func (d StagingDir) Path(file string) string {
	return path.Join(stagingRef, string(d), file)
}

// UploadToStaging stores the content of r as file in dir and returns the path
// to refer to it.
func (c *Client) UploadToStaging(ctx context.Context, dir StagingDir, file string, r io.Reader) (string, error) {
	uri := dir.URI(file)
	if err := c.Upload(ctx, uri, r); err != nil {
		return "", fmt.Errorf("failed to upload %s to staging: %w", file, err)
	}
	c.logger.Debug("uploaded to staging", "uri", uri)
	return dir.Path(file), nil
}

// RemoveStaging deletes dir and its content. Failures are logged and
// otherwise ignored: staging directories expire on their own.
func (c *Client) RemoveStaging(ctx context.Context, dir StagingDir) {
	uri := path.Join(stagingURI, string(dir)) + "/"
	if _, err := c.Delete(ctx, uri); err != nil {
		c.logger.Warn("failed to remove staging directory", "uri", uri, "error", err)
	}
}
