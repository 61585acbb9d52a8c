//go:build windows

package ops

import (
	"os"

	"github.com/hpungsan/slicerbridge/internal/errors"
)

// openFileNoFollow opens a temp file for an atomic write. Windows has no
// O_NOFOLLOW; ValidatePath and ValidateOutputDir reject symlinks beforehand.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

// openFileNoFollowRead opens a conversion input or history import file.
func openFileNoFollowRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, err
	}
	return f, nil
}
