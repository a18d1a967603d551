package ilias

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"ilias-uploader/lib/htmlutil"
	"ilias-uploader/lib/querypath"

	"github.com/PuerkitoBio/goquery"
)

// ElementInfo is what every folder entry shows regardless of its kind.
type ElementInfo struct {
	Name        string
	Description string
	// Querypath the entry's title links to.
	Querypath string
	// DeletionQuerypath leads to the delete confirmation page, it is empty
	// when the account may not delete the entry.
	DeletionQuerypath string
}

func (e ElementInfo) Info() ElementInfo {
	return e
}

// FolderElement is one of FileElement, ExerciseElement, OpencastElement or
// ViewableElement.
type FolderElement interface {
	Info() ElementInfo
	folderElement()
}

type FileElement struct {
	ElementInfo
	File File
}

type ExerciseElement struct {
	ElementInfo
	Id string
}

// OpencastElement is a video series served through the Opencast plugin.
type OpencastElement struct {
	ElementInfo
	RefId string
}

// ViewableElement is any other repository object opened with the generic
// view command (weblinks, wikis, subfolders, ...).
type ViewableElement struct {
	ElementInfo
	RefId string
}

func (FileElement) folderElement()     {}
func (ExerciseElement) folderElement() {}
func (OpencastElement) folderElement() {}
func (ViewableElement) folderElement() {}

var (
	fileTargetRegex     = regexp.MustCompile(`target=file_(\d+)`)
	exerciseTargetRegex = regexp.MustCompile(`target=exc_(\d+)`)
)

// ClassifyFolderElement reads one entry of a folder listing. Entries of a
// kind that is not modelled report false and no error.
func ClassifyFolderElement(sel *goquery.Selection, c *Client) (FolderElement, bool, error) {
	title := sel.FindMatcher(c.sel.folderItemTitle).First()
	href, ok := title.Attr("href")
	if !ok {
		return nil, false, nil
	}
	qp, err := querypath.FromLink(href)
	if err != nil {
		return nil, false, fmt.Errorf("%w: folder entry link: %w", ErrParse, err)
	}

	info := ElementInfo{
		Name:        htmlutil.Text(title),
		Description: htmlutil.Text(sel.FindMatcher(c.sel.folderItemDesc)),
		Querypath:   qp,
	}
	if info.Name == "" {
		return nil, false, missing("", ".il_ContainerItemTitle a text")
	}
	for _, action := range htmlutil.GetAnchors(sel.FindMatcher(c.sel.folderItemAction)) {
		if strings.Contains(action.Href, "cmd=delete") {
			info.DeletionQuerypath, err = querypath.FromLink(action.Href)
			if err != nil {
				return nil, false, fmt.Errorf("%w: %s delete link: %w", ErrParse, info.Name, err)
			}
			break
		}
	}

	if groups := fileTargetRegex.FindStringSubmatch(qp); groups != nil {
		file, err := c.parseFolderFile(sel, info, groups[1])
		if err != nil {
			return nil, false, err
		}
		return FileElement{ElementInfo: info, File: file}, true, nil
	}
	if groups := exerciseTargetRegex.FindStringSubmatch(qp); groups != nil {
		return ExerciseElement{ElementInfo: info, Id: groups[1]}, true, nil
	}

	var query url.Values
	if _, rawQuery, found := strings.Cut(qp, "?"); found {
		query, err = url.ParseQuery(rawQuery)
		if err != nil {
			return nil, false, nil
		}
	}
	refId := query.Get("ref_id")
	if refId == "" {
		return nil, false, nil
	}
	baseClass := strings.ToLower(query.Get("baseClass"))
	switch {
	case baseClass == "ilobjplugindispatchgui" &&
		query.Get("cmd") == "forward" &&
		query.Get("forwardCmd") == "showContent":
		return OpencastElement{ElementInfo: info, RefId: refId}, true, nil
	case baseClass == "ilrepositorygui" && query.Get("cmd") == "view":
		return ViewableElement{ElementInfo: info, RefId: refId}, true, nil
	}
	return nil, false, nil
}

// parseFolderFile reads the metadata of a file entry. The first property is
// the extension, the date is the first later property that parses as one
// since entries differ in which properties they show.
func (c *Client) parseFolderFile(sel *goquery.Selection, info ElementInfo, id string) (File, error) {
	props := sel.FindMatcher(c.sel.folderItemProp)
	if props.Length() == 0 {
		return File{}, missing("", fmt.Sprintf("%s .il_ItemProperty", info.Name))
	}

	file := File{
		Name:              info.Name,
		Description:       info.Description,
		DownloadQuerypath: info.Querypath,
		Id:                id,
	}
	if extension := htmlutil.Text(props.Eq(0)); extension != "" {
		file.Name = info.Name + "." + extension
	}

	now := c.clock.Now()
	for i := 1; i < props.Length(); i++ {
		date, err := ParseDate(htmlutil.Text(props.Eq(i)), now)
		if err == nil {
			file.Date = date
			break
		}
	}
	return file, nil
}
