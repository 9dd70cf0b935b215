package templates

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"sort"
	"sync"
	"time"

	"git.handmade.network/hmn/syllabus/src/auth"
	"git.handmade.network/hmn/syllabus/src/config"
	"git.handmade.network/hmn/syllabus/src/hmnurl"
	"git.handmade.network/hmn/syllabus/src/lang"
	"git.handmade.network/hmn/syllabus/src/logging"
	"git.handmade.network/hmn/syllabus/src/oops"
	"git.handmade.network/hmn/syllabus/src/utils"
	"github.com/Masterminds/sprig"
)

//go:embed src
var embeddedTemplateFs embed.FS

//go:embed public
var embeddedPublicFs embed.FS

var (
	embeddedTemplates map[string]*template.Template
	initOnce          sync.Once
)

// Pages live at the top of src/. Every page is parsed together with all
// layouts and includes, so any of them can be used from any page.
func getTemplatesFromFS(templateFS fs.FS) (map[string]*template.Template, map[string]error) {
	pages := utils.Must1(fs.Glob(templateFS, "src/*.html"))

	templates := make(map[string]*template.Template, len(pages))
	errs := make(map[string]error)
	for _, page := range pages {
		name := path.Base(page)
		t, err := template.New(name).
			Funcs(sprig.FuncMap()).
			Funcs(SyllabusTemplateFuncs).
			ParseFS(templateFS, "src/layouts/*", "src/include/*", page)
		if err != nil {
			errs[name] = err
			continue
		}
		templates[name] = t
	}
	return templates, errs
}

// Parses the embedded templates, panicking if any of them are broken.
func Init() {
	initOnce.Do(func() {
		var errs map[string]error
		embeddedTemplates, errs = getTemplatesFromFS(embeddedTemplateFs)
		if len(errs) == 0 {
			return
		}

		names := make([]string, 0, len(errs))
		for name := range errs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			logging.Error().Str("filename", name).Err(errs[name]).Msg("Failed to parse template")
		}
		panic("Failed to parse templates; see above")
	})
}

// With live templates on, pages are re-read from disk on every call.
func GetTemplate(name string) *template.Template {
	templates := embeddedTemplates
	if config.Config.DevConfig.LiveTemplates {
		var errs map[string]error
		templates, errs = getTemplatesFromFS(os.DirFS("src/templates"))
		if errs[name] != nil {
			panic(oops.New(errs[name], "Error in template %s", name))
		}
	} else {
		Init()
		templates = embeddedTemplates
	}

	t, ok := templates[name]
	if !ok {
		panic(oops.New(nil, "Template not found: %s", name))
	}
	return t
}

// Static files served under /public.
func PublicFS() fs.FS {
	if config.Config.DevConfig.LiveTemplates {
		return os.DirFS("src/templates/public")
	}
	return utils.Must1(fs.Sub(embeddedPublicFs, "public"))
}

var SyllabusTemplateFuncs = template.FuncMap{
	"absolutedate": func(t time.Time) string {
		return lang.FormatDateTime(t.UTC())
	},
	"csrftoken": csrfTokenInput,
	"filesize":  formatFilesize,
	"static":    hmnurl.BuildPublic,
	"t":         lang.T,
	"timehtml":  timeElement,
}

func csrfTokenInput(s Session) template.HTML {
	return template.HTML(fmt.Sprintf(`<input type="hidden" name="%s" value="%s">`,
		auth.CSRFFieldName, template.HTMLEscapeString(s.CSRFToken)))
}

func formatFilesize(numBytes int) string {
	if numBytes <= 1024 {
		return fmt.Sprintf("%d bytes", numBytes)
	}
	size := float64(numBytes)
	for _, unit := range []string{"kb", "mb"} {
		size /= 1024
		if size <= 1024 {
			return fmt.Sprintf("%.2f%s", size, unit)
		}
	}
	return fmt.Sprintf("%.2fgb", size/1024)
}

func timeElement(formatted string, t time.Time) template.HTML {
	return template.HTML(fmt.Sprintf(`<time datetime="%s">%s</time>`,
		t.UTC().Format(time.RFC3339), template.HTMLEscapeString(formatted)))
}
