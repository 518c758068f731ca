package util

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
)

const writeBufSize = 64 * 1024

// WriteFileAtomic streams write's output into a temporary file next to dest
// and renames it over dest once everything is flushed and closed. On any
// error the temporary file is removed and dest is left untouched.
func WriteFileAtomic(dest string, perm os.FileMode, write func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriterSize(tmp, writeBufSize)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpPath, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, dest)
}
