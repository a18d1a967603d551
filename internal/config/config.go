// Package config reads the .ilias-upload.toml project file and combines it
// with command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ilias-uploader/internal/ilias"
	"ilias-uploader/internal/transform"
	"ilias-uploader/internal/upload"
	"ilias-uploader/lib/configutil"

	"dario.cat/mergo"
	"github.com/spf13/afero"
)

const (
	FileName                 = ".ilias-upload.toml"
	DefaultSearchDepth       = 3
	DefaultRequestsPerSecond = 4
)

var ErrConfig = errors.New("invalid configuration")

// Id is an object id, the file may give it as a number or a string.
type Id string

func (id *Id) UnmarshalTOML(value any) error {
	switch v := value.(type) {
	case int64:
		*id = Id(strconv.FormatInt(v, 10))
	case string:
		*id = Id(strings.TrimSpace(v))
	default:
		return fmt.Errorf("ilias_id must be a number or a string, got %T", value)
	}
	return nil
}

// File is the content of a config file. Command line flags are decoded
// into the same shape and merged on top of it.
type File struct {
	Username        string `toml:"username"`
	IliasId         Id     `toml:"ilias_id"`
	PreselectDelete string `toml:"preselect_delete"`
	TransformRegex  string `toml:"transform_regex"`
	TransformFormat string `toml:"transform_format"`
	UploadType      string `toml:"upload_type"`

	BaseUrl           string  `toml:"base_url"`
	IdpUrl            string  `toml:"idp_url"`
	ClientId          string  `toml:"client_id"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Load looks for FileName in dir and up to depth parent directories. When
// there is none the zero File and an empty path are returned.
func Load(fs afero.Fs, dir string, depth int) (File, string, error) {
	file, path, err := configutil.ReadRecursively[File](fs, dir, FileName, depth)
	if errors.Is(err, os.ErrNotExist) {
		return File{}, "", nil
	}
	if err != nil {
		return File{}, "", fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return file, path, nil
}

// Merge returns file with every non-empty field of flags replacing it.
func Merge(file, flags File) (File, error) {
	err := mergo.Merge(&file, flags, mergo.WithOverride)
	if err != nil {
		return File{}, err
	}
	return file, nil
}

// Settings is a validated File.
type Settings struct {
	Username    string
	IliasId     string
	Preselect   upload.PreselectSetting
	Transformer *transform.Transformer
	UploadType  upload.Type
	Client      ilias.ClientOptions
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

func (f File) Settings() (Settings, error) {
	settings := Settings{
		Username: strings.TrimSpace(f.Username),
		IliasId:  string(f.IliasId),
		Client: ilias.ClientOptions{
			BaseUrl:           f.BaseUrl,
			IdpUrl:            f.IdpUrl,
			ClientId:          f.ClientId,
			RequestsPerSecond: f.RequestsPerSecond,
		},
	}

	if settings.IliasId == "" {
		return Settings{}, invalid("no ilias id given, pass --ilias-id or set ilias_id in %s", FileName)
	}
	if _, err := strconv.ParseUint(settings.IliasId, 10, 64); err != nil {
		return Settings{}, invalid("ilias id %q is not a number", settings.IliasId)
	}
	if settings.Client.RequestsPerSecond == 0 {
		settings.Client.RequestsPerSecond = DefaultRequestsPerSecond
	}

	var err error
	settings.Preselect = upload.PreselectSmart
	if f.PreselectDelete != "" {
		settings.Preselect, err = upload.ParsePreselectSetting(f.PreselectDelete)
		if err != nil {
			return Settings{}, fmt.Errorf("%w: %w", ErrConfig, err)
		}
	}

	settings.UploadType = upload.TypeExercise
	if f.UploadType != "" {
		settings.UploadType, err = upload.ParseType(f.UploadType)
		if err != nil {
			return Settings{}, fmt.Errorf("%w: %w", ErrConfig, err)
		}
	}

	settings.Transformer, err = transform.New(f.TransformRegex, f.TransformFormat)
	if err != nil {
		return Settings{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	return settings, nil
}
