package tilefetch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// LocalFileSource reads tile targets out of a directory tree, for dataset
// templates with a file:// scheme. The target is a slash path relative to
// the source root.
type LocalFileSource struct {
	root string
}

func NewLocalFileSource(root string) (*LocalFileSource, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &LocalFileSource{root: abs}, nil
}

func (s *LocalFileSource) Issue(target string, respond func(Response)) RequestHandle {
	ctx, cancel := context.WithCancel(context.Background())

	rel := strings.TrimPrefix(target, "file://")
	path := filepath.Join(s.root, filepath.FromSlash(rel))

	go func() {
		data, err := os.ReadFile(path)

		if ctx.Err() != nil {
			return
		}

		if err != nil {
			respond(Response{Err: err.Error()})
			return
		}
		respond(Response{Data: data})
	}()

	return &cancelHandle{cancel: cancel}
}
