package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
)

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i > 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// LocalName returns the name of the override file for a config file,
// ".ilias-upload.toml" becomes ".ilias-upload.local.toml".
func LocalName(name string) string {
	dirname := filepath.Dir(name)
	prefixname, ext := splitExt(filepath.Base(name))
	if ext == "" {
		return filepath.Join(dirname, fmt.Sprintf("%s.local", prefixname))
	}
	return filepath.Join(dirname, fmt.Sprintf("%s.local.%s", prefixname, ext))
}

func decodeFile[T any](fs afero.Fs, path string) (T, bool, error) {
	var out T
	contents, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	_, err = toml.Decode(string(contents), &out)
	if err != nil {
		return out, false, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, true, nil
}

// reads a TOML configuration file, `name` should come with a file extension.
// this function will merge the following files, where higher number is more prioritized.
// 1. <name>.<ext>
// 2. <name>.local.<ext>
func ReadConfig[T any](fs afero.Fs, name string) (T, error) {
	out, found, err := decodeFile[T](fs, name)
	if err != nil {
		return out, err
	}

	localFilepath := LocalName(name)
	override, foundLocal, err := decodeFile[T](fs, localFilepath)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Debug("merging config with local overrides", "local", localFilepath)
	}

	if !found && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively is ReadConfig but it goes up the filesystem from `start`
// looking for a configuration file matching the name. The directory `start`
// itself is depth 0, at most `maxDepth` parent directories are searched.
// It returns the path of the file that was found.
func ReadRecursively[T any](fs afero.Fs, start, name string, maxDepth int) (T, string, error) {
	var defaultOut T

	current, err := filepath.Abs(start)
	if err != nil {
		return defaultOut, "", err
	}

	for depth := 0; depth <= maxDepth; depth++ {
		path := filepath.Join(current, name)
		config, err := ReadConfig[T](fs, path)
		if err == nil {
			return config, path, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return defaultOut, "", err
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return defaultOut, "", os.ErrNotExist
}
