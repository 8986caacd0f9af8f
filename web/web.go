package web

import (
	"embed"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates 解析嵌入的页面模板
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"inc":   func(i int) int { return i + 1 },
		"isPDF": isPDF,
	}).ParseFS(templateFS, "templates/*.html")
}

// MustTemplates 解析失败时 panic，模板随二进制发布
func MustTemplates() *template.Template {
	t, err := Templates()
	if err != nil {
		panic(err)
	}
	return t
}

func isPDF(u string) bool {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.HasSuffix(strings.ToLower(u), ".pdf")
}
