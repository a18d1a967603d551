package upload

import (
	"errors"
	"fmt"
	"path/filepath"

	"ilias-uploader/internal/ilias"
	"ilias-uploader/internal/transform"

	"github.com/spf13/afero"
)

var ErrDuplicateName = errors.New("several files would be uploaded under the same name")

// LocalFiles pairs every path with its portal name, the transformed base
// name. Paths must be regular files and names must be unique.
func LocalFiles(fs afero.Fs, paths []string, t *transform.Transformer) ([]ilias.LocalFile, error) {
	seen := map[string]string{}
	files := make([]ilias.LocalFile, 0, len(paths))
	for _, path := range paths {
		info, err := fs.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("%s is not a regular file", path)
		}

		name := transform.Apply(t, filepath.Base(path))
		if previous, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %s and %s are both named %q", ErrDuplicateName, previous, path, name)
		}
		seen[name] = path
		files = append(files, ilias.LocalFile{Path: path, Name: name})
	}
	return files, nil
}

// Selected returns the files that are checked.
func Selected(preselection []Preselection) []ilias.File {
	var files []ilias.File
	for _, p := range preselection {
		if p.Selected {
			files = append(files, p.File)
		}
	}
	return files
}
