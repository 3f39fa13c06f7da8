package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"mysite/internal/domain/config"
	"mysite/internal/domain/content"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

type TemplateRenderer struct {
	tpl *template.Template
}

func NewTemplateRenderer() (*TemplateRenderer, error) {
	tpl, err := template.New("").Funcs(templateFuncs()).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	return &TemplateRenderer{tpl: tpl}, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"date": func(p content.Post, layout string) string {
			t, err := p.PublishedAt()
			if err != nil {
				return p.Date
			}
			return t.Format(layout)
		},
		"nowYear": func() int {
			return time.Now().Year()
		},
	}
}

// HomePage lists both buckets on the index.
type HomePage struct {
	Site   config.SiteConfig
	Posts  []content.Post
	Photos []content.Post
}

// PostPage renders a single cached post or photo.
type PostPage struct {
	Site      config.SiteConfig
	Post      content.Post
	HTML      template.HTML
	Toc       []content.TocItem
	CoverPath string
}

func (r *TemplateRenderer) RenderHome(page HomePage) ([]byte, error) {
	return r.exec("home.tmpl", page)
}

func (r *TemplateRenderer) RenderPost(page PostPage) ([]byte, error) {
	return r.exec("post.tmpl", page)
}

func (r *TemplateRenderer) exec(name string, data interface{}) ([]byte, error) {
	t := r.tpl.Lookup(name)
	if t == nil {
		return nil, fmt.Errorf("template %s not found", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
