package configutil

import (
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Username string `toml:"username"`
	IliasId  string `toml:"ilias_id"`
}

func writeFile(t *testing.T, fs afero.Fs, path, contents string) {
	require.NoError(t, afero.WriteFile(fs, path, []byte(contents), 0644))
}

func TestLocalName(t *testing.T) {
	require.Equal(t, "/a/.ilias-upload.local.toml", LocalName("/a/.ilias-upload.toml"))
	require.Equal(t, "/a/config.local", LocalName("/a/config"))
}

func TestReadConfigMergesLocal(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/course/.ilias-upload.toml", "username = \"ab1234\"\nilias_id = \"100\"\n")
	writeFile(t, fs, "/course/.ilias-upload.local.toml", "ilias_id = \"200\"\n")

	cfg, err := ReadConfig[testConfig](fs, "/course/.ilias-upload.toml")
	require.NoError(t, err)
	require.Equal(t, testConfig{Username: "ab1234", IliasId: "200"}, cfg)
}

func TestReadConfigMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := ReadConfig[testConfig](fs, "/course/.ilias-upload.toml")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigInvalid(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/course/.ilias-upload.toml", "username = ")
	_, err := ReadConfig[testConfig](fs, "/course/.ilias-upload.toml")
	require.Error(t, err)
	require.NotErrorIs(t, err, os.ErrNotExist)
}

func TestReadRecursively(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/home/student/ws24/.ilias-upload.toml", "username = \"ab1234\"\n")
	require.NoError(t, fs.MkdirAll("/home/student/ws24/prog/sheet03", 0755))

	cfg, path, err := ReadRecursively[testConfig](fs, "/home/student/ws24/prog/sheet03", ".ilias-upload.toml", 3)
	require.NoError(t, err)
	require.Equal(t, "/home/student/ws24/.ilias-upload.toml", path)
	require.Equal(t, "ab1234", cfg.Username)

	_, _, err = ReadRecursively[testConfig](fs, "/home/student/ws24/prog/sheet03", ".ilias-upload.toml", 1)
	require.ErrorIs(t, err, os.ErrNotExist)
}
