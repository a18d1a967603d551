// Package iliastest provides a fake portal for tests that drive an
// ilias.Client against canned pages.
package iliastest

import (
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"ilias-uploader/lib/querypath"
)

type File struct {
	Name    string
	Content string
}

// Request is a request received by the portal with its decoded body.
type Request struct {
	Method    string
	Querypath string
	Form      url.Values
	Files     map[string][]File
}

// Portal routes requests by their exact querypath.
type Portal struct {
	Server *httptest.Server

	t        testing.TB
	mutex    sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []Request
}

func NewPortal(t testing.TB) *Portal {
	p := &Portal{t: t, routes: map[string]http.HandlerFunc{}}
	p.Server = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.Server.Close)
	return p
}

func (p *Portal) URL() string {
	return p.Server.URL
}

func (p *Portal) Handle(qp string, handler http.HandlerFunc) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.routes[qp] = handler
}

// HandleHTML answers every request to qp with body.
func (p *Portal) HandleHTML(qp, body string) {
	p.Handle(qp, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/html; charset=utf-8")
		io.WriteString(w, body)
	})
}

func (p *Portal) HandleRedirect(qp, location string) {
	p.Handle(qp, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, location, http.StatusFound)
	})
}

// Requests returns every request received so far in arrival order.
func (p *Portal) Requests() []Request {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	out := make([]Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// RequestsTo returns the requests received for qp.
func (p *Portal) RequestsTo(qp string) []Request {
	var out []Request
	for _, r := range p.Requests() {
		if r.Querypath == qp {
			out = append(out, r)
		}
	}
	return out
}

func (p *Portal) serve(w http.ResponseWriter, r *http.Request) {
	recorded := Request{
		Method:    r.Method,
		Querypath: querypath.Get(r.URL),
		Form:      url.Values{},
		Files:     map[string][]File{},
	}

	if r.Method == http.MethodPost {
		err := r.ParseMultipartForm(32 << 20)
		if err == http.ErrNotMultipart {
			err = r.ParseForm()
		}
		if err != nil {
			p.t.Errorf("iliastest: parse body of %s: %v", recorded.Querypath, err)
		}
		for k, v := range r.PostForm {
			recorded.Form[k] = v
		}
		if r.MultipartForm != nil {
			for field, headers := range r.MultipartForm.File {
				for _, h := range headers {
					recorded.Files[field] = append(recorded.Files[field], readFile(p.t, h))
				}
			}
		}
	}

	p.mutex.Lock()
	p.requests = append(p.requests, recorded)
	handler, ok := p.routes[recorded.Querypath]
	p.mutex.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	handler(w, r)
}

func readFile(t testing.TB, header *multipart.FileHeader) File {
	f, err := header.Open()
	if err != nil {
		t.Errorf("iliastest: open %s: %v", header.Filename, err)
		return File{Name: header.Filename}
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		t.Errorf("iliastest: read %s: %v", header.Filename, err)
	}
	return File{Name: header.Filename, Content: string(content)}
}
