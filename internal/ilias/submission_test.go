package ilias

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ilias-uploader/internal/ilias/iliastest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const (
	submissionQuerypath = "ilias.php?ref_id=100&ass_id=1&cmd=submissionScreen&baseClass=ilexercisehandlergui"
	uploadPageQuerypath = "ilias.php?ref_id=100&ass_id=1&cmd=uploadForm&cmdClass=ilexsubmissionfilegui&baseClass=ilexercisehandlergui"
	deleteQuerypath     = "ilias.php?ref_id=100&ass_id=1&cmd=post&cmdClass=ilexsubmissionfilegui&baseClass=ilexercisehandlergui&fallbackCmd=deleteDelivered"
	uploadQuerypath     = "ilias.php?ref_id=100&ass_id=1&cmd=post&cmdClass=ilexsubmissionfilegui&baseClass=ilexercisehandlergui&fallbackCmd=uploadFile"
)

func newSubmissionPortal(t *testing.T) (*iliastest.Portal, *Client) {
	portal := iliastest.NewPortal(t)
	portal.HandleHTML(submissionQuerypath, fixture(t, "submission.html"))
	portal.HandleHTML(uploadPageQuerypath, fixture(t, "submission_upload.html"))
	portal.HandleHTML(deleteQuerypath, "<html>ok</html>")
	portal.HandleHTML(uploadQuerypath, "<html>ok</html>")

	client, _ := newTestClient(t, ClientOptions{BaseUrl: portal.URL()})
	return portal, client
}

func unresolvedAssignment(qp string) *Assignment {
	return &Assignment{
		Name:       "Übungsblatt 1",
		submission: submissionCell{state: submissionUnresolved, querypath: qp},
	}
}

func TestAssignmentSubmissionResolvesOnce(t *testing.T) {
	portal, client := newSubmissionPortal(t)
	assignment := unresolvedAssignment(submissionQuerypath)

	submission, err := assignment.Submission(context.Background(), client)
	require.NoError(t, err)

	expected := []File{
		{
			Name:              "old.pdf",
			Date:              time.Date(2024, time.June, 9, 18, 45, 0, 0, time.UTC),
			DownloadQuerypath: "ilias.php?ref_id=100&delivered=5501&cmd=download&baseClass=ilexercisehandlergui",
			Id:                "5501",
		},
		{
			Name: "notes.txt",
			Date: time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC),
			Id:   "5502",
		},
	}
	require.Empty(t, cmp.Diff(expected, submission.Files))
	require.Equal(t, deleteQuerypath, submission.deleteQuerypath)
	require.Equal(t, uploadQuerypath, submission.uploadQuerypath)

	again, err := assignment.Submission(context.Background(), client)
	require.NoError(t, err)
	require.Same(t, submission, again)
	require.Len(t, portal.RequestsTo(submissionQuerypath), 1)
	require.Len(t, portal.RequestsTo(uploadPageQuerypath), 1)
}

func TestAssignmentSubmissionEmptyTable(t *testing.T) {
	portal := iliastest.NewPortal(t)
	portal.HandleHTML("ilias.php?ref_id=100&ass_id=2&cmd=submissionScreen", fixture(t, "submission_empty.html"))
	portal.HandleHTML("ilias.php?ref_id=100&ass_id=2&cmd=uploadForm&baseClass=ilexercisehandlergui", fixture(t, "submission_upload.html"))
	client, _ := newTestClient(t, ClientOptions{BaseUrl: portal.URL()})

	submission, err := unresolvedAssignment("ilias.php?ref_id=100&ass_id=2&cmd=submissionScreen").Submission(context.Background(), client)
	require.NoError(t, err)
	require.Empty(t, submission.Files)
}

func TestAssignmentWithoutSubmission(t *testing.T) {
	client, _ := newTestClient(t, ClientOptions{})
	_, err := (&Assignment{Name: "Sheet 0"}).Submission(context.Background(), client)
	require.ErrorIs(t, err, ErrNoSubmission)
}

func TestAssignmentSubmissionMissingUploadButton(t *testing.T) {
	portal := iliastest.NewPortal(t)
	portal.HandleHTML(submissionQuerypath, `<div id="ilContentContainer"><form action="ilias.php?cmd=post"></form></div>`)
	client, tel := newTestClient(t, ClientOptions{BaseUrl: portal.URL()})

	assignment := unresolvedAssignment(submissionQuerypath)
	_, err := assignment.Submission(context.Background(), client)
	require.ErrorIs(t, err, ErrParse)
	require.True(t, tel.Has("broken", report_submission_parse))

	// a failed resolution is retried
	require.False(t, assignment.submission.state == submissionResolved)
}

func TestAssignmentSubmissionDeleteFiles(t *testing.T) {
	portal, client := newSubmissionPortal(t)
	submission, err := unresolvedAssignment(submissionQuerypath).Submission(context.Background(), client)
	require.NoError(t, err)

	err = submission.DeleteFiles(context.Background(), client, submission.Files)
	require.NoError(t, err)

	requests := portal.RequestsTo(deleteQuerypath)
	require.Len(t, requests, 1)
	require.Equal(t, []string{"5501", "5502"}, requests[0].Form["delivered[]"])
	require.Equal(t, "Löschen", requests[0].Form.Get("cmd[deleteDelivered]"))

	err = submission.DeleteFiles(context.Background(), client, []File{{Name: "attachment.pdf"}})
	require.Error(t, err)
	require.Len(t, portal.RequestsTo(deleteQuerypath), 1)
}

func writeLocalFiles(t *testing.T, contents map[string]string) []LocalFile {
	dir := t.TempDir()
	var files []LocalFile
	for _, name := range []string{"a.txt", "b.txt", "report.pdf"} {
		content, ok := contents[name]
		if !ok {
			continue
		}
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
		files = append(files, NewLocalFile(path))
	}
	return files
}

func TestAssignmentSubmissionUploadFiles(t *testing.T) {
	portal, client := newSubmissionPortal(t)
	submission, err := unresolvedAssignment(submissionQuerypath).Submission(context.Background(), client)
	require.NoError(t, err)

	files := writeLocalFiles(t, map[string]string{"a.txt": "alpha", "b.txt": "beta"})
	files[1].Name = "renamed.txt"

	err = submission.UploadFiles(context.Background(), client, files)
	require.NoError(t, err)

	requests := portal.RequestsTo(uploadQuerypath)
	require.Len(t, requests, 1)
	require.Equal(t, "Hochladen", requests[0].Form.Get("cmd[uploadFile]"))
	require.Len(t, requests[0].Form.Get("ilfilehash"), 32)
	require.Equal(t, map[string][]iliastest.File{
		"deliver[0]": {{Name: "a.txt", Content: "alpha"}},
		"deliver[1]": {{Name: "renamed.txt", Content: "beta"}},
	}, requests[0].Files)
}

func TestAssignmentSubmissionUploadFailure(t *testing.T) {
	portal, client := newSubmissionPortal(t)
	submission, err := unresolvedAssignment(submissionQuerypath).Submission(context.Background(), client)
	require.NoError(t, err)
	portal.Handle(uploadQuerypath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err = submission.UploadFiles(context.Background(), client, writeLocalFiles(t, map[string]string{"a.txt": "alpha"}))
	require.ErrorIs(t, err, ErrRequest)

	err = submission.UploadFiles(context.Background(), client, []LocalFile{{Path: "/does/not/exist", Name: "x"}})
	require.Error(t, err)
	require.Len(t, portal.RequestsTo(uploadQuerypath), 1)
}
