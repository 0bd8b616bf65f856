package component

import (
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strings"
)

const (
	KindText     = "text"
	KindTemplate = "template"
	KindFrame    = "frame"
)

// RegisterBuiltins installs the kinds every host understands.
func RegisterBuiltins(c *Catalog) {
	c.MustRegister(KindText, newText)
	c.MustRegister(KindTemplate, newTemplate)
	c.MustRegister(KindFrame, newFrame)
}

type textComponent struct {
	text string
}

func newText(props map[string]any) (Component, error) {
	text, err := stringProp(props, "text")
	if err != nil {
		return nil, err
	}
	return &textComponent{text: text}, nil
}

func (c *textComponent) Kind() string { return KindText }

var textTmpl = template.Must(template.New("text").Parse(`<div>{{.}}</div>`))

func (c *textComponent) Render(w io.Writer, _ Props) error {
	return textTmpl.Execute(w, c.text)
}

type templateComponent struct {
	tmpl *template.Template
}

func newTemplate(props map[string]any) (Component, error) {
	body, err := stringProp(props, "template")
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("component").Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse template: %v", ErrInvalidProps, err)
	}
	// Execution errors such as unknown fields only surface at render time.
	if err := tmpl.Execute(io.Discard, Props{Name: "check", Path: "/check"}); err != nil {
		return nil, fmt.Errorf("%w: execute template: %v", ErrInvalidProps, err)
	}
	return &templateComponent{tmpl: tmpl}, nil
}

func (c *templateComponent) Kind() string { return KindTemplate }

func (c *templateComponent) Render(w io.Writer, props Props) error {
	return c.tmpl.Execute(w, props)
}

type frameComponent struct {
	src    string
	height string
}

func newFrame(props map[string]any) (Component, error) {
	src, err := stringProp(props, "src")
	if err != nil {
		return nil, err
	}
	parsed, err := url.Parse(src)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("%w: src must be an absolute http(s) URL", ErrInvalidProps)
	}
	height := "480"
	if raw, ok := props["height"]; ok {
		height = strings.TrimSpace(fmt.Sprint(raw))
	}
	return &frameComponent{src: parsed.String(), height: height}, nil
}

func (c *frameComponent) Kind() string { return KindFrame }

var frameTmpl = template.Must(template.New("frame").Parse(
	`<iframe title="{{.Title}}" src="{{.Src}}" height="{{.Height}}" style="width:100%;border:0"></iframe>`))

func (c *frameComponent) Render(w io.Writer, props Props) error {
	return frameTmpl.Execute(w, struct {
		Title, Src, Height string
	}{Title: props.Name, Src: c.src, Height: c.height})
}

func stringProp(props map[string]any, key string) (string, error) {
	raw, ok := props[key]
	if !ok {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidProps, key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidProps, key, raw)
	}
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: %s cannot be empty", ErrInvalidProps, key)
	}
	return value, nil
}
