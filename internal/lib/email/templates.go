package email

// Template names an embedded email template.
type Template string

const (
	// TemplateServerError corresponds to templates/server_error.html
	TemplateServerError Template = "server_error"
)

// File returns the template's file name inside the embedded FS.
func (t Template) File() string {
	return string(t) + ".html"
}
