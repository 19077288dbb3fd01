package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/rpupo63/hundred-days/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names, one template file each.
const (
	pageIndex          = "index"
	pageProject        = "project"
	pageAbout          = "about"
	pageLogin          = "login"
	pageAdminDashboard = "admin_dashboard"
	pageAdminEdit      = "admin_edit"
	pageError          = "error"
)

var allPages = []string{
	pageIndex, pageProject, pageAbout, pageLogin,
	pageAdminDashboard, pageAdminEdit, pageError,
}

// markdown has raw HTML disabled, so project content cannot inject markup.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// projectForm holds the raw create/edit inputs so a rejected form comes back
// as the admin typed it.
type projectForm struct {
	Title     string
	DayNumber string
	Content   string
}

func formFromProject(p *models.Project) projectForm {
	return projectForm{
		Title:     p.Title,
		DayNumber: strconv.Itoa(p.DayNumber),
		Content:   p.Content,
	}
}

type viewData struct {
	Title    string
	LoggedIn bool
	Flashes  []Flash

	Projects []*models.Project
	Project  *models.Project
	Form     projectForm

	Status  int
	Message string
}

type views struct {
	pages map[string]*template.Template
}

func newViews() (*views, error) {
	funcs := template.FuncMap{
		"markdown": renderMarkdown,
		"date": func(t time.Time) string {
			return t.UTC().Format("January 2, 2006")
		},
	}

	v := &views{pages: make(map[string]*template.Template, len(allPages))}
	for _, page := range allPages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/base.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", page, err)
		}
		v.pages[page] = tmpl
	}
	return v, nil
}

func (v *views) render(w io.Writer, page string, data viewData) error {
	tmpl, ok := v.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	return nil
}

func renderMarkdown(content string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(content))
	}
	return template.HTML(buf.String())
}
