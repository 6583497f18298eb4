package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// DiskSource implements Source for files below a base directory
type DiskSource struct {
	baseDir string
}

// NewDisk creates a new disk source rooted at baseDir
func NewDisk(baseDir string) *DiskSource {
	return &DiskSource{
		baseDir: baseDir,
	}
}

// Path returns the file path a resource name resolves to
func (d *DiskSource) Path(name string) string {
	return filepath.Join(d.baseDir, filepath.FromSlash(name))
}

// Read reads the whole file backing name
func (d *DiskSource) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := d.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	logrus.Debugf("Read %d bytes from %s", len(data), path)
	return data, nil
}
