package output

// The methods below let a Renderer receive build and conversion progress.
// Nothing is printed in JSON mode so that stdout stays a single document.

// DatasourceStarted announces the datasource being built.
func (r *Renderer) DatasourceStarted(datasource string) {
	if r.EffectiveMode() == ModeJSON {
		return
	}
	r.Println("Processing datasource: " + r.styles.Bold.Render(datasource))
}

// TemplateRendered reports a rendered template.
func (r *Renderer) TemplateRendered(path string) {
	if r.EffectiveMode() == ModeJSON {
		return
	}
	r.Muted("Processing template: " + path)
}

// FileWritten reports a written output file.
func (r *Renderer) FileWritten(path string) {
	if r.EffectiveMode() == ModeJSON {
		return
	}
	r.StatusLine("Saved", path, "success", "")
}

// TemplateWritten reports a template written by a conversion.
func (r *Renderer) TemplateWritten(path string) {
	if r.EffectiveMode() == ModeJSON {
		return
	}
	r.StatusLine("Wrote", path, "success", "")
}
