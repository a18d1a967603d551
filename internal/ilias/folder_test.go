package ilias

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"ilias-uploader/internal/ilias/iliastest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const (
	folderDeletePageQuerypath = "ilias.php?ref_id=301&item_ref_id=42&cmd=delete&baseClass=ilrepositorygui"
	folderConfirmQuerypath    = "ilias.php?ref_id=301&cmd=post&baseClass=ilrepositorygui"
	folderAddFileQuerypath    = "ilias.php?ref_id=301&new_type=file&cmd=create&baseClass=ilrepositorygui"
	folderEndpointQuerypath   = "ilias.php?ref_id=301&cmd=uploadFiles&cmdClass=ilfileuploadhandlergui&baseClass=iluploadgui"
	folderFinishQuerypath     = "ilias.php?ref_id=301&new_type=file&cmd=post&baseClass=ilrepositorygui&fallbackCmd=save"
)

func TestParseFolder(t *testing.T) {
	client, tel := newTestClient(t, ClientOptions{})
	folder, err := ParseFolder(parseHTML(t, fixture(t, "folder.html")).Selection, client)
	require.NoError(t, err)

	require.Equal(t, "Abgaben", folder.Name)
	require.Equal(t, "Gruppenabgaben", folder.Description)
	require.Equal(t, "301", folder.Id)
	require.True(t, folder.CanUpload())
	require.Equal(t, folderAddFileQuerypath, folder.uploadQuerypath)

	expected := []FolderElement{
		FileElement{
			ElementInfo: ElementInfo{
				Name:              "report",
				Description:       "Endbericht",
				Querypath:         "goto.php?target=file_42_download&client_id=produktiv",
				DeletionQuerypath: folderDeletePageQuerypath,
			},
			File: File{
				Name:              "report.pdf",
				Description:       "Endbericht",
				Date:              time.Date(2024, time.June, 10, 10, 15, 0, 0, time.UTC),
				DownloadQuerypath: "goto.php?target=file_42_download&client_id=produktiv",
				Id:                "42",
			},
		},
		FileElement{
			ElementInfo: ElementInfo{
				Name:      "slides",
				Querypath: "goto.php?target=file_43_download&client_id=produktiv",
			},
			File: File{
				Name:              "slides.pptx",
				DownloadQuerypath: "goto.php?target=file_43_download&client_id=produktiv",
				Id:                "43",
			},
		},
		ExerciseElement{
			ElementInfo: ElementInfo{Name: "Übungen", Querypath: "goto.php?target=exc_100&client_id=produktiv"},
			Id:          "100",
		},
		OpencastElement{
			ElementInfo: ElementInfo{
				Name:      "Vorlesungsaufzeichnungen",
				Querypath: "ilias.php?baseClass=ilObjPluginDispatchGUI&cmd=forward&ref_id=7&forwardCmd=showContent",
			},
			RefId: "7",
		},
		ViewableElement{
			ElementInfo: ElementInfo{Name: "Material", Querypath: "ilias.php?baseClass=ilrepositorygui&cmd=view&ref_id=8"},
			RefId:       "8",
		},
	}
	require.Empty(t, cmp.Diff(expected, folder.Elements))
	require.Len(t, folder.Files(), 2)
	require.True(t, tel.Has("debug", "skipped folder entry"))
}

func TestParseFolderMissingBreadcrumb(t *testing.T) {
	client, _ := newTestClient(t, ClientOptions{})
	_, err := ParseFolder(parseHTML(t, `<div class="il-page-content-header">Abgaben</div>`).Selection, client)

	var missingErr *MissingElementError
	require.ErrorAs(t, err, &missingErr)
	require.Contains(t, missingErr.Element, "breadcrumb")
}

func TestClassifyFolderElement(t *testing.T) {
	client, _ := newTestClient(t, ClientOptions{})

	item := func(href string) string {
		return fmt.Sprintf(`<div class="ilContainerListItemOuter">
			<div class="il_ContainerItemTitle"><a href="%s">entry</a></div>
			<div class="il_ItemProperties"><span class="il_ItemProperty">txt</span></div>
		</div>`, href)
	}

	table := []struct {
		href     string
		expected FolderElement
	}{
		{
			href: "goto.php?target=file_42_download&client_id=produktiv",
			expected: FileElement{
				ElementInfo: ElementInfo{Name: "entry", Querypath: "goto.php?target=file_42_download&client_id=produktiv"},
				File:        File{Name: "entry.txt", DownloadQuerypath: "goto.php?target=file_42_download&client_id=produktiv", Id: "42"},
			},
		},
		{
			href: "ilias.php?baseClass=ilObjPluginDispatchGUI&amp;cmd=forward&amp;forwardCmd=showContent&amp;ref_id=7",
			expected: OpencastElement{
				ElementInfo: ElementInfo{Name: "entry", Querypath: "ilias.php?baseClass=ilObjPluginDispatchGUI&cmd=forward&forwardCmd=showContent&ref_id=7"},
				RefId:       "7",
			},
		},
		{
			href: "/ilias.php?ref_id=12&amp;cmd=view&amp;baseClass=ilRepositoryGUI",
			expected: ViewableElement{
				ElementInfo: ElementInfo{Name: "entry", Querypath: "ilias.php?ref_id=12&cmd=view&baseClass=ilRepositoryGUI"},
				RefId:       "12",
			},
		},
		{
			href: "goto.php?target=exc_5&amp;client_id=produktiv",
			expected: ExerciseElement{
				ElementInfo: ElementInfo{Name: "entry", Querypath: "goto.php?target=exc_5&client_id=produktiv"},
				Id:          "5",
			},
		},
		{href: "ilias.php?baseClass=ilForumGUI&amp;ref_id=9"},
		{href: "ilias.php?baseClass=ilObjPluginDispatchGUI&amp;cmd=forward&amp;forwardCmd=edit&amp;ref_id=7"},
		{href: "https://example.org/elsewhere"},
	}

	for _, row := range table {
		doc := parseHTML(t, item(row.href))
		element, ok, err := ClassifyFolderElement(doc.Find(".ilContainerListItemOuter"), client)
		require.NoError(t, err, row.href)
		if row.expected == nil {
			require.False(t, ok, row.href)
			require.Nil(t, element, row.href)
			continue
		}
		require.True(t, ok, row.href)
		require.Empty(t, cmp.Diff(row.expected, element), row.href)
	}
}

func TestClassifyFolderFileWithoutProperties(t *testing.T) {
	client, _ := newTestClient(t, ClientOptions{})
	doc := parseHTML(t, `<div class="ilContainerListItemOuter">
		<div class="il_ContainerItemTitle"><a href="goto.php?target=file_42_download">report</a></div>
	</div>`)

	_, _, err := ClassifyFolderElement(doc.Find(".ilContainerListItemOuter"), client)
	require.ErrorIs(t, err, ErrParse)
}

func newFolderPortal(t *testing.T) (*iliastest.Portal, *Client, Folder) {
	portal := iliastest.NewPortal(t)
	portal.HandleHTML("goto.php?target=fold_301&client_id=produktiv", fixture(t, "folder.html"))
	portal.HandleHTML(folderDeletePageQuerypath, fixture(t, "folder_delete.html"))
	portal.HandleHTML(folderConfirmQuerypath, "<html>ok</html>")
	portal.HandleHTML(folderAddFileQuerypath, fixture(t, "folder_upload.html"))
	portal.HandleHTML(folderFinishQuerypath, "<html>ok</html>")

	var uploads atomic.Int64
	portal.Handle(folderEndpointQuerypath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		fmt.Fprintf(w, `{"status":1,"message":"","file_id":"f-%d"}`, uploads.Add(1))
	})

	client, _ := newTestClient(t, ClientOptions{BaseUrl: portal.URL()})
	folder, err := client.Folder(context.Background(), "301")
	require.NoError(t, err)
	return portal, client, folder
}

func TestFolderDeleteFiles(t *testing.T) {
	portal, client, folder := newFolderPortal(t)
	files := folder.Files()

	err := folder.DeleteFiles(context.Background(), client, []File{files[0].File})
	require.NoError(t, err)

	requests := portal.RequestsTo(folderConfirmQuerypath)
	require.Len(t, requests, 1)
	require.Equal(t, []string{"42"}, requests[0].Form["id[]"])
	require.Equal(t, "Löschen", requests[0].Form.Get("cmd[confirmedDelete]"))
	require.NotContains(t, requests[0].Form, "cmd[cancelDelete]")

	// slides has no delete action for this account
	err = folder.DeleteFiles(context.Background(), client, []File{files[1].File})
	require.ErrorIs(t, err, ErrParse)

	err = folder.DeleteFiles(context.Background(), client, []File{{Name: "unknown.pdf", Id: "999"}})
	require.Error(t, err)
	require.Len(t, portal.RequestsTo(folderConfirmQuerypath), 1)
}

func TestFolderUploadFiles(t *testing.T) {
	portal, client, folder := newFolderPortal(t)
	files := writeLocalFiles(t, map[string]string{"a.txt": "alpha", "b.txt": "beta"})

	err := folder.UploadFiles(context.Background(), client, files)
	require.NoError(t, err)

	uploads := portal.RequestsTo(folderEndpointQuerypath)
	require.Len(t, uploads, 2)
	require.Equal(t, []iliastest.File{{Name: "a.txt", Content: "alpha"}}, uploads[0].Files["form_input_1[]"])
	require.Equal(t, []iliastest.File{{Name: "b.txt", Content: "beta"}}, uploads[1].Files["form_input_1[]"])

	finishes := portal.RequestsTo(folderFinishQuerypath)
	require.Len(t, finishes, 2)
	for i, finish := range finishes {
		require.Equal(t, fmt.Sprintf("f-%d", i+1), finish.Form.Get("form_input_1[]"))
		require.Equal(t, files[i].Name, finish.Form.Get("form_input_2"))
		require.Equal(t, "abc123", finish.Form.Get("rtoken"))
		require.Equal(t, "Datei hochladen", finish.Form.Get("cmd[save]"))
	}
}

func TestFolderUploadRejected(t *testing.T) {
	portal, client, folder := newFolderPortal(t)
	portal.Handle(folderEndpointQuerypath, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":2,"message":"Die Datei ist zu groß.","file_id":""}`)
	})

	err := folder.UploadFiles(context.Background(), client, writeLocalFiles(t, map[string]string{"a.txt": "alpha"}))
	require.ErrorContains(t, err, "Die Datei ist zu groß.")
	require.Empty(t, portal.RequestsTo(folderFinishQuerypath))
}

func TestFolderUploadUnsupported(t *testing.T) {
	client, _ := newTestClient(t, ClientOptions{})
	folder := Folder{Name: "Material", Id: "8"}

	require.False(t, folder.CanUpload())
	err := folder.UploadFiles(context.Background(), client, []LocalFile{{Path: "a.txt", Name: "a.txt"}})
	require.ErrorIs(t, err, ErrUploadUnsupported)
}

func TestUploadEndpoint(t *testing.T) {
	table := []struct {
		scripts  []string
		expected string
		found    bool
	}{
		{
			scripts:  []string{`il.UI.Input.File.init('id', '.\/ilias.php?ref_id=1&amp;cmd=upload', 'x');`},
			expected: "./ilias.php?ref_id=1&cmd=upload",
			found:    true,
		},
		{
			scripts:  []string{`console.log(1);`, `il.UI.Input.File.init("id", "ilias.php?cmd=upload&ref_id=2");`},
			expected: "ilias.php?cmd=upload&ref_id=2",
			found:    true,
		},
		{scripts: []string{`il.Util.addOnLoad(function() {});`}},
		{scripts: []string{`il.UI.Input.File.init('id', 'upload.php');`}},
	}

	for _, row := range table {
		endpoint, found := uploadEndpoint(row.scripts)
		require.Equal(t, row.found, found, row.scripts)
		require.Equal(t, row.expected, endpoint)
	}
}
