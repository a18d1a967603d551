package ilias

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// File is a file that exists on the portal. Fields the page did not show
// are left at their zero value.
type File struct {
	Name        string
	Description string
	Date        time.Time
	// DownloadQuerypath fetches the file contents.
	DownloadQuerypath string
	// Id identifies the file in delete requests, files without one cannot
	// be deleted.
	Id string
}

func (f File) Deletable() bool {
	return f.Id != ""
}

func (f File) String() string {
	if f.Date.IsZero() {
		return f.Name
	}
	return fmt.Sprintf("%s (%s)", f.Name, f.Date.Format("2006-01-02 15:04"))
}

// LocalFile is a file on disk paired with the name it should have on the
// portal.
type LocalFile struct {
	Path string
	Name string
}

// NewLocalFile uses the base name of path as the portal name.
func NewLocalFile(path string) LocalFile {
	return LocalFile{Path: path, Name: filepath.Base(path)}
}

func (f LocalFile) String() string {
	if f.Name == filepath.Base(f.Path) {
		return f.Name
	}
	return fmt.Sprintf("%s -> %s", f.Path, f.Name)
}

// openAll opens every file, on failure the files opened so far are closed.
func openAll(files []LocalFile) ([]*os.File, error) {
	opened := make([]*os.File, 0, len(files))
	for _, f := range files {
		handle, err := os.Open(f.Path)
		if err != nil {
			closeAll(opened)
			return nil, fmt.Errorf("open %s: %w", f.Path, err)
		}
		opened = append(opened, handle)
	}
	return opened, nil
}

func closeAll(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}
