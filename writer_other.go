//go:build !unix

package zpk

import (
	"fmt"
	"io/fs"
	"os"
)

func openFileNoFollow(root *os.Root, name string) (*os.File, error) {
	info, err := root.Lstat(name)
	if err != nil {
		return nil, err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymlink, name)
	}
	return root.Open(name)
}
