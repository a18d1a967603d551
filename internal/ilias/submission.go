package ilias

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"ilias-uploader/lib/htmlutil"
	"ilias-uploader/lib/querypath"

	"github.com/PuerkitoBio/goquery"
	"github.com/mazen160/go-random"
)

const (
	report_submission_parse  = "submission.parse"
	report_submission_delete = "submission.delete"
	report_submission_upload = "submission.upload"
)

// AssignmentSubmission is the list of files handed in for an assignment
// together with the endpoints that modify it.
type AssignmentSubmission struct {
	Files []File

	deleteQuerypath string
	uploadQuerypath string
}

// AssignmentSubmission fetches the submission page at qp and the upload
// page it links to.
func (c *Client) AssignmentSubmission(ctx context.Context, qp string) (*AssignmentSubmission, error) {
	doc, err := c.Fetch(ctx, qp)
	if err != nil {
		return nil, err
	}
	submission, uploadPage, err := c.parseSubmission(doc)
	if err != nil {
		err = withPage(err, doc)
		c.tel.ReportBroken(report_submission_parse, err, qp)
		return nil, err
	}

	upload, err := c.Fetch(ctx, uploadPage)
	if err != nil {
		return nil, err
	}
	action, ok := upload.FindMatcher(c.sel.contentForm).Attr("action")
	if !ok {
		err = missing(upload.Url.String(), "div#ilContentContainer form[action]")
		c.tel.ReportBroken(report_submission_parse, err, uploadPage)
		return nil, err
	}
	submission.uploadQuerypath, err = querypath.FromLink(action)
	if err != nil {
		err = fmt.Errorf("%w: upload form action: %w", ErrParse, err)
		c.tel.ReportBroken(report_submission_parse, err, uploadPage)
		return nil, err
	}
	return submission, nil
}

// parseSubmission returns the submission and the querypath of the page
// holding its upload form.
func (c *Client) parseSubmission(doc *goquery.Document) (*AssignmentSubmission, string, error) {
	submission := &AssignmentSubmission{}

	var err error
	doc.FindMatcher(c.sel.submissionRow).EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.ChildrenFiltered("td")
		if cells.Length() <= 1 {
			// the table renders a single "no files" cell when empty
			return true
		}
		var file File
		file, err = c.parseSubmissionRow(cells)
		if err != nil {
			err = fmt.Errorf("submitted file %d: %w", i+1, err)
			return false
		}
		submission.Files = append(submission.Files, file)
		return true
	})
	if err != nil {
		return nil, "", err
	}

	action, ok := doc.FindMatcher(c.sel.contentForm).First().Attr("action")
	if !ok {
		return nil, "", missing("", "div#ilContentContainer form[action]")
	}
	submission.deleteQuerypath, err = querypath.FromLink(action)
	if err != nil {
		return nil, "", fmt.Errorf("%w: delete form action: %w", ErrParse, err)
	}

	dialog, ok := doc.FindMatcher(c.sel.uploadButton).First().Attr("data-action")
	if !ok {
		return nil, "", missing("", "nav div.navbar-header button[data-action]")
	}
	uploadPage, err := querypath.FromLink(dialog)
	if err != nil {
		return nil, "", fmt.Errorf("%w: upload button action: %w", ErrParse, err)
	}
	return submission, uploadPage, nil
}

func (c *Client) parseSubmissionRow(cells *goquery.Selection) (File, error) {
	id, ok := cells.Eq(0).FindMatcher(c.sel.deliveredCheckbox).Attr("value")
	if !ok || id == "" {
		return File{}, missing("", "td input[type=checkbox][value]")
	}
	name := htmlutil.Text(cells.Eq(1))
	if name == "" {
		return File{}, missing("", "file name cell")
	}
	date, err := ParseDate(htmlutil.Text(cells.Eq(2)), c.clock.Now())
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", name, err)
	}
	file := File{Name: name, Date: date, Id: id}

	if href, ok := cells.Eq(3).FindMatcher(c.sel.anchor).First().Attr("href"); ok {
		file.DownloadQuerypath, err = querypath.FromLink(href)
		if err != nil {
			return File{}, fmt.Errorf("%w: %s download link: %w", ErrParse, name, err)
		}
	}
	return file, nil
}

// DeleteFiles removes the given files from the submission in one request.
func (s *AssignmentSubmission) DeleteFiles(ctx context.Context, c *Client, files []File) error {
	if len(files) == 0 {
		return nil
	}

	form := url.Values{}
	for _, f := range files {
		if !f.Deletable() {
			return fmt.Errorf("%s cannot be deleted: no file id", f.Name)
		}
		form.Add("delivered[]", f.Id)
	}
	form.Set("cmd[deleteDelivered]", "Löschen")

	err := c.SubmitForm(ctx, s.deleteQuerypath, form)
	if err != nil {
		c.tel.ReportBroken(report_submission_delete, err, len(files))
		return fmt.Errorf("delete submitted files: %w", err)
	}
	return nil
}

// UploadFiles hands in the given files in one multipart request, each file
// is sent under its display name.
func (s *AssignmentSubmission) UploadFiles(ctx context.Context, c *Client, files []LocalFile) error {
	if len(files) == 0 {
		return nil
	}

	handles, err := openAll(files)
	if err != nil {
		return err
	}
	defer closeAll(handles)

	parts := make([]MultipartFile, len(files))
	for i, f := range files {
		parts[i] = MultipartFile{
			Field:    "deliver[" + strconv.Itoa(i) + "]",
			FileName: f.Name,
			Reader:   handles[i],
		}
	}
	fileHash, err := random.String(32)
	if err != nil {
		return fmt.Errorf("upload submission files: %w", err)
	}
	fields := url.Values{
		"cmd[uploadFile]": {"Hochladen"},
		"ilfilehash":      {fileHash},
	}

	_, err = c.SubmitMultipart(ctx, s.uploadQuerypath, fields, parts)
	if err != nil {
		c.tel.ReportBroken(report_submission_upload, err, len(files))
		return fmt.Errorf("upload submission files: %w", err)
	}
	return nil
}
