package internal

import (
	"io"
	"os"
)

// Exists reports whether the given file exists.
func Exists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}

// RemoveFiles removes all given files, and returns the first error
// encountered. Files that do not exist are ignored.
func RemoveFiles(filenames ...string) (err error) {
	for _, filename := range filenames {
		if nerr := os.Remove(filename); nerr != nil && !os.IsNotExist(nerr) && err == nil {
			err = nerr
		}
	}
	return err
}

// CopyFile copies the contents of src to dst, creating or truncating
// dst as necessary.
func CopyFile(dst, src string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		nerr := in.Close()
		if err == nil {
			err = nerr
		}
	}()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		nerr := out.Close()
		if err == nil {
			err = nerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
