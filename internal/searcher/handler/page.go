package handler

import "html/template"

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
<form method="get" action="/">
  <input type="text" name="q" value="{{.Query}}" size="50" autofocus>
  <label><input type="checkbox" name="exact" value="1"{{if .Exact}} checked{{end}}> exact</label>
  <button type="submit">Search</button>
</form>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if .Searched}}
<h2>{{.Total}} result{{if ne .Total 1}}s{{end}} for "{{.Key}}"</h2>
<ol>
{{range .Results}}  <li><a href="{{.Where}}">{{.Where}}</a> <small>count {{.Count}}, score {{printf "%.8f" .Score}}</small></li>
{{end}}</ol>
{{end}}
<h2>History</h2>
<ul>
{{range .History}}  <li><a href="/?q={{.Query}}{{if .Exact}}&exact=1{{end}}">{{.Query}}</a> <small>{{.At.Format "15:04 Mon, Jan 02 2006"}}</small></li>
{{end}}</ul>
<form method="post" action="/history/clear"><button type="submit">Clear history</button></form>
<p><small>Updated {{.Now.Format "03:04 PM on Monday, January 02 2006"}}</small></p>
</body>
</html>
`))
