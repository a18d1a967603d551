// Package upload is the part of an upload that does not depend on where
// files go: it names local files, preselects conflicting remote files and
// drives a Target.
package upload

import (
	"context"

	"ilias-uploader/internal/ilias"
)

// Target is a portal location that holds files.
type Target interface {
	// Name is shown to the user.
	Name() string
	// ExistingFiles returns the remote files that may be deleted.
	ExistingFiles() []ilias.File
	// CanUpload reports whether UploadFiles is possible, a target that
	// cannot take uploads may still be listed.
	CanUpload() bool
	Preselect(setting PreselectSetting, local []ilias.LocalFile, existing []ilias.File) []Preselection
	DeleteFiles(ctx context.Context, files []ilias.File) error
	UploadFiles(ctx context.Context, files []ilias.LocalFile) error
}

type Preselection struct {
	File     ilias.File
	Selected bool
}

// Preselect applies setting to every existing file, PreselectSmart checks
// exactly the files whose name equals the portal name of a local file.
func Preselect(setting PreselectSetting, local []ilias.LocalFile, existing []ilias.File) []Preselection {
	names := map[string]struct{}{}
	for _, f := range local {
		names[f.Name] = struct{}{}
	}

	out := make([]Preselection, len(existing))
	for i, f := range existing {
		selected := false
		switch setting {
		case PreselectAll:
			selected = true
		case PreselectSmart:
			_, selected = names[f.Name]
		}
		out[i] = Preselection{File: f, Selected: selected}
	}
	return out
}

// SubmissionTarget uploads into the submission of an assignment.
type SubmissionTarget struct {
	client     *ilias.Client
	assignment *ilias.Assignment
	submission *ilias.AssignmentSubmission
}

// NewSubmissionTarget resolves the submission page of assignment.
func NewSubmissionTarget(ctx context.Context, client *ilias.Client, assignment *ilias.Assignment) (*SubmissionTarget, error) {
	submission, err := assignment.Submission(ctx, client)
	if err != nil {
		return nil, err
	}
	return &SubmissionTarget{
		client:     client,
		assignment: assignment,
		submission: submission,
	}, nil
}

func (t *SubmissionTarget) Name() string {
	return t.assignment.Name
}

func (t *SubmissionTarget) ExistingFiles() []ilias.File {
	var files []ilias.File
	for _, f := range t.submission.Files {
		if f.Deletable() {
			files = append(files, f)
		}
	}
	return files
}

func (t *SubmissionTarget) CanUpload() bool {
	return true
}

func (t *SubmissionTarget) Preselect(setting PreselectSetting, local []ilias.LocalFile, existing []ilias.File) []Preselection {
	return Preselect(setting, local, existing)
}

func (t *SubmissionTarget) DeleteFiles(ctx context.Context, files []ilias.File) error {
	return t.submission.DeleteFiles(ctx, t.client, files)
}

func (t *SubmissionTarget) UploadFiles(ctx context.Context, files []ilias.LocalFile) error {
	return t.submission.UploadFiles(ctx, t.client, files)
}

// FolderTarget uploads into a folder.
type FolderTarget struct {
	client *ilias.Client
	folder ilias.Folder
}

func NewFolderTarget(client *ilias.Client, folder ilias.Folder) *FolderTarget {
	return &FolderTarget{client: client, folder: folder}
}

func (t *FolderTarget) Name() string {
	return t.folder.Name
}

// ExistingFiles only returns files the account may delete.
func (t *FolderTarget) ExistingFiles() []ilias.File {
	var files []ilias.File
	for _, e := range t.folder.Files() {
		if e.DeletionQuerypath != "" {
			files = append(files, e.File)
		}
	}
	return files
}

func (t *FolderTarget) CanUpload() bool {
	return t.folder.CanUpload()
}

func (t *FolderTarget) Preselect(setting PreselectSetting, local []ilias.LocalFile, existing []ilias.File) []Preselection {
	return Preselect(setting, local, existing)
}

func (t *FolderTarget) DeleteFiles(ctx context.Context, files []ilias.File) error {
	return t.folder.DeleteFiles(ctx, t.client, files)
}

func (t *FolderTarget) UploadFiles(ctx context.Context, files []ilias.LocalFile) error {
	return t.folder.UploadFiles(ctx, t.client, files)
}
