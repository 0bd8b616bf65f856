package shell

import "html/template"

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<div id="root">
{{- if .Error}}
<div>Error: {{.Error}}</div>
{{- else}}
<div>
<nav>
<ul>
<li><a href="/">Home</a></li>
<li><a href="/about">About</a></li>
{{- range .Nav}}
<li><a href="{{.Path}}">{{.Label}}</a></li>
{{- end}}
</ul>
</nav>
<main>{{if .Loading}}<div>Loading plugins...</div>{{else}}{{.Content}}{{end}}</main>
</div>
{{- end}}
</div>
</body>
</html>
`

const homeContent = `<h1>Home</h1>
<p>Welcome to the micro-frontend portal. Plugins discovered at startup appear in the navigation above.</p>`

const aboutContent = `<h1>About</h1>
<p>This host application loads independently deployed plugins and mounts their routes at runtime.</p>`

const notFoundContent = `<h1>Not Found</h1>
<p>No page is registered for this path.</p>`

var pages = template.Must(template.New("page").Parse(pageTemplate))

type navItem struct {
	Label string
	Path  string
}

type pageData struct {
	Title   string
	Error   string
	Loading bool
	Nav     []navItem
	Content template.HTML
}
