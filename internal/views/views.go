package views

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates
var templates embed.FS

// Layout wraps every admin page.
const Layout = "layouts/main"

// NewEngine builds the HTML engine over the embedded templates.
func NewEngine() *html.Engine {
	root, err := fs.Sub(templates, "templates")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(root), ".html")
	engine.AddFunc("join", strings.Join)
	engine.AddFunc("path", Path)
	return engine
}

// Path appends segments to a mount path without doubling slashes, so a
// collection mounted at "/" yields "/create" rather than "//create".
func Path(base string, segments ...any) string {
	elems := make([]string, 0, len(segments)+1)
	elems = append(elems, "/"+strings.TrimPrefix(base, "/"))
	for _, seg := range segments {
		elems = append(elems, fmt.Sprint(seg))
	}
	return path.Join(elems...)
}
