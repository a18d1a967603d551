package ilias

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"ilias-uploader/lib/htmlutil"
	"ilias-uploader/lib/querypath"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_folder_parse  = "folder.parse"
	report_folder_delete = "folder.delete"
	report_folder_upload = "folder.upload"
)

type Folder struct {
	Name        string
	Description string
	Id          string
	Elements    []FolderElement

	// uploadQuerypath is the "add file" link, empty when the account may
	// not upload into the folder.
	uploadQuerypath string
}

var folderTargetRegex = regexp.MustCompile(`target=fold_(\d+)`)

// ParseFolder reads a folder from its content page.
func ParseFolder(sel *goquery.Selection, c *Client) (Folder, error) {
	name := htmlutil.Text(sel.FindMatcher(c.sel.pageTitle))
	if name == "" {
		return Folder{}, missing("", ".il-page-content-header")
	}
	folder := Folder{
		Name:        name,
		Description: htmlutil.Text(sel.FindMatcher(c.sel.pageDescription)),
	}

	crumb, ok := sel.FindMatcher(c.sel.breadcrumb).Last().Attr("href")
	if !ok {
		return Folder{}, missing("", ".breadcrumb .crumb:last-child a[href]")
	}
	folder.Id = folderId(crumb)
	if folder.Id == "" {
		return Folder{}, missing("", fmt.Sprintf("folder id in breadcrumb link %q", crumb))
	}

	if href, ok := sel.FindMatcher(c.sel.addFileLink).Attr("href"); ok {
		qp, err := querypath.FromLink(href)
		if err != nil {
			return Folder{}, fmt.Errorf("%w: add file link: %w", ErrParse, err)
		}
		folder.uploadQuerypath = qp
	}

	var err error
	sel.FindMatcher(c.sel.folderItem).EachWithBreak(func(i int, item *goquery.Selection) bool {
		var element FolderElement
		var ok bool
		element, ok, err = ClassifyFolderElement(item, c)
		if err != nil {
			err = fmt.Errorf("folder entry %d: %w", i+1, err)
			return false
		}
		if !ok {
			c.tel.ReportDebug("skipped folder entry", i+1, htmlutil.Text(item.FindMatcher(c.sel.folderItemTitle)))
			return true
		}
		folder.Elements = append(folder.Elements, element)
		return true
	})
	if err != nil {
		return Folder{}, err
	}
	return folder, nil
}

func folderId(link string) string {
	if groups := folderTargetRegex.FindStringSubmatch(link); groups != nil {
		return groups[1]
	}
	parsed, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return ""
	}
	return parsed.Query().Get("ref_id")
}

// Folder fetches and parses the folder with the given ref id.
func (c *Client) Folder(ctx context.Context, id string) (Folder, error) {
	doc, err := c.Fetch(ctx, c.FolderQuerypath(id))
	if err != nil {
		return Folder{}, err
	}
	folder, err := ParseFolder(doc.Selection, c)
	if err != nil {
		err = withPage(err, doc)
		c.tel.ReportBroken(report_folder_parse, err, id)
		return Folder{}, fmt.Errorf("folder %s: %w", id, err)
	}
	return folder, nil
}

// Files returns the file entries of the folder in listing order.
func (f Folder) Files() []FileElement {
	var files []FileElement
	for _, e := range f.Elements {
		if file, ok := e.(FileElement); ok {
			files = append(files, file)
		}
	}
	return files
}

// CanUpload reports whether the folder offers an "add file" action.
func (f Folder) CanUpload() bool {
	return f.uploadQuerypath != ""
}

// DeleteFiles deletes every file through its own confirmation page. Files
// deleted before a failure stay deleted.
func (f Folder) DeleteFiles(ctx context.Context, c *Client, files []File) error {
	elements := map[string]FileElement{}
	for _, e := range f.Files() {
		elements[e.File.Id] = e
	}

	for _, file := range files {
		element, ok := elements[file.Id]
		if !ok || file.Id == "" {
			return fmt.Errorf("%s is not a file of folder %s", file.Name, f.Name)
		}
		err := c.deleteFolderElement(ctx, element.ElementInfo)
		if err != nil {
			c.tel.ReportBroken(report_folder_delete, err, file.Name)
			return fmt.Errorf("delete %s: %w", file.Name, err)
		}
	}
	return nil
}

func (c *Client) deleteFolderElement(ctx context.Context, info ElementInfo) error {
	if info.DeletionQuerypath == "" {
		return missing("", fmt.Sprintf("%s delete action", info.Name))
	}
	confirmation, err := c.Fetch(ctx, info.DeletionQuerypath)
	if err != nil {
		return err
	}
	page := confirmation.Url.String()

	form := confirmation.FindMatcher(c.sel.contentForm).First()
	action, ok := form.Attr("action")
	if !ok {
		return missing(page, "div#ilContentContainer form[action]")
	}
	qp, err := querypath.FromLink(action)
	if err != nil {
		return fmt.Errorf("%w: confirmation form action: %w", ErrParse, err)
	}

	values := hiddenValues(form, c)
	confirmed := false
	form.FindMatcher(c.sel.submitButton).EachWithBreak(func(_ int, button *goquery.Selection) bool {
		name := button.AttrOr("name", "")
		if strings.Contains(name, "confirmedDelete") {
			values.Set(name, button.AttrOr("value", ""))
			confirmed = true
			return false
		}
		return true
	})
	if !confirmed {
		return missing(page, "confirmedDelete button")
	}

	return c.SubmitForm(ctx, qp, values)
}

func hiddenValues(form *goquery.Selection, c *Client) url.Values {
	values := url.Values{}
	form.FindMatcher(c.sel.hiddenInput).Each(func(_ int, input *goquery.Selection) {
		values.Add(input.AttrOr("name", ""), input.AttrOr("value", ""))
	})
	return values
}

var (
	fileInputInitRegex = regexp.MustCompile(`(?s)il\.UI\.Input\.File\.init\((.*?)\)\s*;`)
	scriptPathRegex    = regexp.MustCompile(`["']([^"']*ilias\.php[^"']*)["']`)
)

// uploadEndpoint finds the path the file input of the upload dialog sends
// file contents to, the dialog only names it in the script that sets up
// the input.
func uploadEndpoint(scripts []string) (string, bool) {
	for _, script := range scripts {
		for _, call := range fileInputInitRegex.FindAllStringSubmatch(script, -1) {
			groups := scriptPathRegex.FindStringSubmatch(call[1])
			if groups == nil {
				continue
			}
			path := strings.ReplaceAll(groups[1], `\/`, "/")
			path = strings.ReplaceAll(path, `\u0026`, "&")
			return strings.ReplaceAll(path, "&amp;", "&"), true
		}
	}
	return "", false
}

type fileUploadResult struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	FileId  string `json:"file_id"`
}

const fileUploadStatusOk = 1

// folderUploadForm is the scraped state of the "add file" dialog.
type folderUploadForm struct {
	endpoint   string
	finish     string
	fileField  string
	titleField string
	values     url.Values
}

// UploadFiles adds every file to the folder. Each file is uploaded first
// and then attached to a new file object by submitting the dialog form,
// files finished before a failure stay in the folder.
func (f Folder) UploadFiles(ctx context.Context, c *Client, files []LocalFile) error {
	if !f.CanUpload() {
		return fmt.Errorf("%s: %w", f.Name, ErrUploadUnsupported)
	}
	if len(files) == 0 {
		return nil
	}

	form, err := c.folderUploadForm(ctx, f.uploadQuerypath)
	if err != nil {
		c.tel.ReportBroken(report_folder_upload, err, f.Id)
		return err
	}

	handles, err := openAll(files)
	if err != nil {
		return err
	}
	defer closeAll(handles)

	for i, file := range files {
		res, err := c.SubmitMultipart(ctx, form.endpoint, nil, []MultipartFile{{
			Field:    form.fileField,
			FileName: file.Name,
			Reader:   handles[i],
		}})
		if err != nil {
			return fmt.Errorf("upload %s: %w", file.Name, err)
		}
		var result fileUploadResult
		err = json.Unmarshal(res.Body(), &result)
		if err != nil {
			err = fmt.Errorf("%w: upload acknowledgment of %s: %w", ErrParse, file.Name, err)
			c.tel.ReportBroken(report_folder_upload, err)
			return err
		}
		if result.Status != fileUploadStatusOk || result.FileId == "" {
			err = fmt.Errorf("upload %s rejected: %s", file.Name, result.Message)
			c.tel.ReportBroken(report_folder_upload, err, result.Status)
			return err
		}

		values := url.Values{}
		for k, v := range form.values {
			values[k] = v
		}
		values.Set(form.fileField, result.FileId)
		if form.titleField != "" {
			values.Set(form.titleField, file.Name)
		}
		err = c.SubmitForm(ctx, form.finish, values)
		if err != nil {
			c.tel.ReportBroken(report_folder_upload, err, file.Name)
			return fmt.Errorf("finish upload of %s: %w", file.Name, err)
		}
	}
	return nil
}

func (c *Client) folderUploadForm(ctx context.Context, qp string) (folderUploadForm, error) {
	doc, err := c.Fetch(ctx, qp)
	if err != nil {
		return folderUploadForm{}, err
	}
	page := doc.Url.String()

	endpoint, ok := uploadEndpoint(htmlutil.ScriptTexts(doc.Selection))
	if !ok {
		return folderUploadForm{}, missing(page, "il.UI.Input.File.init upload url")
	}
	endpoint, err = querypath.FromLink(endpoint)
	if err != nil {
		return folderUploadForm{}, fmt.Errorf("%w: upload url: %w", ErrParse, err)
	}

	form := doc.FindMatcher(c.sel.contentForm).First()
	action, ok := form.Attr("action")
	if !ok {
		return folderUploadForm{}, missing(page, "div#ilContentContainer form[action]")
	}
	finish, err := querypath.FromLink(action)
	if err != nil {
		return folderUploadForm{}, fmt.Errorf("%w: upload form action: %w", ErrParse, err)
	}
	fileField, ok := form.FindMatcher(c.sel.fileInput).Attr("name")
	if !ok {
		return folderUploadForm{}, missing(page, "input[type=file][name]")
	}

	values := hiddenValues(form, c)
	if button := form.FindMatcher(c.sel.submitButton).First(); button.Length() > 0 {
		values.Set(button.AttrOr("name", ""), button.AttrOr("value", ""))
	}

	return folderUploadForm{
		endpoint:   endpoint,
		finish:     finish,
		fileField:  fileField,
		titleField: form.FindMatcher(c.sel.textInput).AttrOr("name", ""),
		values:     values,
	}, nil
}
