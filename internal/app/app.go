// Package app runs one upload: it logs in, finds the target, lets the user
// delete conflicting files and uploads the new ones.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"ilias-uploader/internal/components/assert"
	"ilias-uploader/internal/components/chrono"
	"ilias-uploader/internal/components/telemetry"
	"ilias-uploader/internal/config"
	"ilias-uploader/internal/credentials"
	"ilias-uploader/internal/ilias"
	"ilias-uploader/internal/prompt"
	"ilias-uploader/internal/upload"

	"github.com/spf13/afero"
)

const (
	report_app_authenticate    = "app.authenticate"
	report_app_store_password  = "app.store-password"
	report_app_forget_password = "app.forget-password"
	report_app_uploaded_files  = "app.uploaded-files"
	report_app_deleted_files   = "app.deleted-files"
)

type Options struct {
	// Paths of the local files to upload.
	Paths    []string
	Settings config.Settings
	// Password given on the command line, may be empty.
	Password      string
	StorePassword bool
	// List only prints the files of the target.
	List bool

	Fs          afero.Fs
	Prompter    prompt.Prompter
	Credentials credentials.Resolver
	Clock       chrono.API
	Tel         telemetry.API
	// Out receives the human readable report.
	Out io.Writer
	// HttpOutput receives every HTTP exchange when non-nil.
	HttpOutput telemetry.InstrumentOutput
}

type Result struct {
	Target   string
	Existing []ilias.File
	Deleted  []ilias.File
	Uploaded []ilias.LocalFile
}

func Run(ctx context.Context, opts Options) (Result, error) {
	assert.NotNil(opts.Fs, "fs")
	assert.NotNil(opts.Prompter, "prompter")
	assert.NotNil(opts.Clock, "clock")
	assert.NotNil(opts.Tel, "tel")
	assert.NotNil(opts.Out, "out")

	tel := telemetry.NewScopedAPI("app", opts.Tel)

	var local []ilias.LocalFile
	if !opts.List {
		if len(opts.Paths) == 0 {
			return Result{}, fmt.Errorf("%w: no files to upload", config.ErrConfig)
		}
		var err error
		local, err = upload.LocalFiles(opts.Fs, opts.Paths, opts.Settings.Transformer)
		if err != nil {
			return Result{}, err
		}
	}

	client, err := login(ctx, opts, tel)
	if err != nil {
		return Result{}, err
	}

	target, err := resolveTarget(ctx, client, opts, tel)
	if err != nil {
		return Result{}, err
	}
	result := Result{Target: target.Name(), Existing: target.ExistingFiles()}
	if !opts.List && !target.CanUpload() {
		return result, fmt.Errorf("%s: %w", target.Name(), ilias.ErrUploadUnsupported)
	}

	if opts.List {
		renderFiles(opts.Out, target.Name(), result.Existing)
		return result, nil
	}

	if len(result.Existing) > 0 {
		result.Deleted, err = chooseDeletions(opts, target, local, result.Existing)
		if err != nil {
			return result, err
		}
	}
	if len(result.Deleted) > 0 {
		err = target.DeleteFiles(ctx, result.Deleted)
		if err != nil {
			return result, err
		}
		tel.ReportCount(report_app_deleted_files, int64(len(result.Deleted)))
	}

	err = target.UploadFiles(ctx, local)
	if err != nil {
		return result, err
	}
	result.Uploaded = local
	tel.ReportCount(report_app_uploaded_files, int64(len(local)))

	renderResult(opts.Out, result)
	return result, nil
}

func login(ctx context.Context, opts Options, tel telemetry.API) (*ilias.Client, error) {
	creds, err := opts.Credentials.Resolve(opts.Settings.Username, opts.Password)
	if err != nil {
		return nil, err
	}

	clientOpts := opts.Settings.Client
	clientOpts.Output = opts.HttpOutput
	client, err := ilias.NewClient(clientOpts, opts.Tel, opts.Clock)
	if err != nil {
		return nil, err
	}

	err = client.Authenticate(ctx, creds.Username, creds.Password)
	if err != nil {
		tel.ReportBroken(report_app_authenticate, err, creds.Username, creds.Source.String())
		if errors.Is(err, ilias.ErrAuthenticationFailed) && creds.Source == credentials.SourceKeychain {
			// a stale password would fail every following run as well
			forgetErr := opts.Credentials.Forget(creds.Username)
			if forgetErr != nil {
				tel.ReportWarning(report_app_forget_password, forgetErr)
			}
		}
		return nil, err
	}

	if opts.StorePassword {
		err = opts.Credentials.Store(creds)
		if err != nil {
			tel.ReportWarning(report_app_store_password, err)
		}
	}
	return client, nil
}

func resolveTarget(ctx context.Context, client *ilias.Client, opts Options, tel telemetry.API) (upload.Target, error) {
	switch opts.Settings.UploadType {
	case upload.TypeFolder:
		folder, err := client.Folder(ctx, opts.Settings.IliasId)
		if err != nil {
			return nil, err
		}
		return upload.NewFolderTarget(client, folder), nil
	default:
		exercise, err := client.Exercise(ctx, opts.Settings.IliasId)
		if err != nil {
			return nil, err
		}
		assignment, err := chooseAssignment(opts, exercise)
		if err != nil {
			return nil, err
		}
		for _, f := range assignment.Attachments {
			tel.ReportDebug("assignment attachment", assignment.Name, f.Name, f.DownloadQuerypath)
		}
		return upload.NewSubmissionTarget(ctx, client, assignment)
	}
}

var ErrNoActiveAssignment = errors.New("exercise has no active assignment")

func describeAssignment(a *ilias.Assignment) string {
	return fmt.Sprintf("%s (due %s)", a.Name, a.Deadline.Format("2006-01-02 15:04"))
}

func chooseAssignment(opts Options, exercise ilias.Exercise) (*ilias.Assignment, error) {
	active := exercise.ActiveAssignments(opts.Clock.Now())
	switch len(active) {
	case 0:
		names := make([]string, len(exercise.Assignments))
		for i, a := range exercise.Assignments {
			names[i] = describeAssignment(a)
		}
		return nil, fmt.Errorf("%s: %w, assignments: %s", exercise.Name, ErrNoActiveAssignment, strings.Join(names, "; "))
	case 1:
		ok, err := opts.Prompter.Confirm(fmt.Sprintf("Upload to %s", describeAssignment(active[0])))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, prompt.ErrCancelled
		}
		return active[0], nil
	}

	items := make([]string, len(active))
	for i, a := range active {
		items[i] = describeAssignment(a)
	}
	index, err := opts.Prompter.SelectOne("Select an assignment", items)
	if err != nil {
		return nil, err
	}
	return active[index], nil
}

func chooseDeletions(opts Options, target upload.Target, local []ilias.LocalFile, existing []ilias.File) ([]ilias.File, error) {
	preselection := target.Preselect(opts.Settings.Preselect, local, existing)

	items := make([]string, len(preselection))
	selected := make([]bool, len(preselection))
	for i, p := range preselection {
		items[i] = p.File.String()
		selected[i] = p.Selected
	}
	chosen, err := opts.Prompter.SelectMany("Select files to delete", items, selected)
	if err != nil {
		return nil, err
	}
	for i := range preselection {
		preselection[i].Selected = chosen[i]
	}
	return upload.Selected(preselection), nil
}
