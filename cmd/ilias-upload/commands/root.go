package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"ilias-uploader/internal/app"
	"ilias-uploader/internal/components/chrono"
	"ilias-uploader/internal/components/telemetry"
	"ilias-uploader/internal/config"
	"ilias-uploader/internal/credentials"
	"ilias-uploader/internal/prompt"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type flags struct {
	file          config.File
	iliasId       string
	searchDepth   int
	password      string
	storePassword bool
	verbose       bool
	dumpHttp      string
	list          bool
}

var rootFlags flags

var rootCmd = &cobra.Command{
	Use:   "ilias-upload [flags] <file>...",
	Short: "ilias-upload hands in files to an ILIAS exercise or folder.",
	Long: `ilias-upload logs in through Shibboleth, finds the target exercise
assignment or folder, offers to delete files that are already there and
uploads the given files.

Defaults for every flag can be kept in a ` + config.FileName + ` file in the
working directory or one of its parents.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args, rootFlags)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&rootFlags.iliasId, "ilias-id", "i", "", "ref id of the exercise or folder to upload to")
	f.IntVarP(&rootFlags.searchDepth, "search-depth", "d", config.DefaultSearchDepth, "how many parent directories are searched for "+config.FileName)
	f.StringVarP(&rootFlags.file.Username, "username", "u", "", "login name at the identity provider")
	f.StringVarP(&rootFlags.password, "password", "p", "", "password, read from "+credentials.PasswordEnv+", the keychain or a prompt when empty")
	f.BoolVar(&rootFlags.storePassword, "store-password", true, "save the password in the system keychain after a successful login")
	f.StringVar(&rootFlags.file.PreselectDelete, "preselect-delete", "", "which existing files are preselected for deletion: all, smart or none (default smart)")
	f.StringVar(&rootFlags.file.UploadType, "upload-type", "", "kind of target: exercise or folder (default exercise)")
	f.StringVar(&rootFlags.file.TransformRegex, "transform-regex", "", "rename uploaded files matching this regular expression")
	f.StringVar(&rootFlags.file.TransformFormat, "transform-format", "", "replacement for --transform-regex, $1 refers to the first group")
	f.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "log every request")
	f.StringVar(&rootFlags.dumpHttp, "dump-http", "", "write every HTTP exchange into this directory")
	f.BoolVar(&rootFlags.list, "list", false, "only list the files already in the target")
}

func initSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)
}

func run(ctx context.Context, paths []string, f flags) error {
	initSlog(f.verbose)

	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read .env: %w", err)
	}

	fs := afero.NewOsFs()
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	file, path, err := config.Load(fs, wd, f.searchDepth)
	if err != nil {
		return err
	}
	if path != "" {
		slog.Debug("loaded config", "path", path)
	}

	f.file.IliasId = config.Id(f.iliasId)
	file, err = config.Merge(file, f.file)
	if err != nil {
		return err
	}
	settings, err := file.Settings()
	if err != nil {
		return err
	}

	tel := telemetry.SlogAPI{}
	opts := app.Options{
		Paths:         paths,
		Settings:      settings,
		Password:      f.password,
		StorePassword: f.storePassword,
		List:          f.list,
		Fs:            fs,
		Clock:         chrono.NewStandardImpl(),
		Tel:           tel,
		Out:           os.Stdout,
	}

	terminal := prompt.NewTerminal()
	opts.Prompter = terminal
	opts.Credentials = credentials.NewResolver(terminal, os.Getenv, tel)

	if f.dumpHttp != "" {
		output, err := telemetry.NewFilesystemOutput(f.dumpHttp)
		if err != nil {
			return fmt.Errorf("dump http: %w", err)
		}
		opts.HttpOutput = output
	}

	_, err = app.Run(ctx, opts)
	return err
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
