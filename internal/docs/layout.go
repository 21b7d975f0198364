package docs

import (
	"bytes"
	"html/template"

	"github.com/diplodoc-platform/testpack/internal/search"
)

// SuggestEndpoint is the site-absolute path the search box queries.
const SuggestEndpoint = search.SuggestPath

// SearchPage is the source of the page the suggest footer links to.
const SearchPage = "ru/search/index.md"

type layoutData struct {
	Lang      string
	Title     string
	SiteTitle string
	Root      string
	Home      string
	Links     []Link
	Dropdown  *Dropdown
	Search    string
	Endpoint  string
	Nav       []NavItem
	Content   template.HTML
}

var layout = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<link rel="stylesheet" href="{{.Root}}_assets/widgets.css">
<script src="{{.Root}}_assets/widgets.js" defer></script>
</head>
<body>
<header class="dc-header">
<div class="dc-header__left"><a class="dc-header__logo" href="{{.Home}}">{{.SiteTitle}}</a></div>
<nav class="dc-header__center">
{{- range .Links}}
<a class="dc-header__nav-link" href="{{.Href}}">{{.Text}}</a>
{{- end}}
{{- with .Dropdown}}
<div class="dc-header__nav-dropdown">
<button type="button" class="dc-header__nav-dropdown-button" aria-haspopup="true" aria-expanded="false">{{.Text}}</button>
<div class="dc-header__nav-dropdown-menu" hidden>
{{- range .Items}}
<a class="dc-header__nav-dropdown-item" href="{{.Href}}">{{.Text}}</a>
{{- end}}
</div>
</div>
{{- end}}
</nav>
<div class="dc-header__right">
<div class="dc-search-suggest" data-endpoint="{{.Endpoint}}" data-lang="{{.Lang}}">
<input id="search-input" class="dc-search-suggest__input" type="search" autocomplete="off" placeholder="Поиск по документации" aria-autocomplete="list" aria-controls="search-suggest-list" aria-expanded="false">
<div class="dc-search-suggest__popup" hidden>
<div class="dc-search-suggest__loader" hidden>Загрузка…</div>
<div class="dc-search-suggest__list">
<ul id="search-suggest-list" class="g-list__items" role="listbox"></ul>
<div class="dc-search-suggest__empty">Ничего не найдено</div>
</div>
<div class="dc-search-suggest__footer"><a href="{{.Search}}">Все результаты</a></div>
</div>
</div>
</div>
</header>
<div class="dc-doc-layout">
<aside class="dc-doc-layout__toc">
<nav class="dc-toc" aria-label="Содержание">
{{template "toc" .Nav}}
</nav>
</aside>
<main class="dc-doc-page__main">
{{.Content}}
</main>
</div>
</body>
</html>
{{define "toc"}}<ul class="dc-toc__list">
{{- range .}}
<li class="dc-toc__list-item">
{{- if .Href}}<a href="{{.Href}}"{{if .Active}} class="active" aria-current="page"{{end}}>{{.Name}}</a>
{{- else}}<span class="dc-toc__section">{{.Name}}</span>{{end}}
{{- if .Items}}{{template "toc" .Items}}{{end}}</li>
{{- end}}
</ul>{{end}}`))

func renderLayout(d layoutData) ([]byte, error) {
	var buf bytes.Buffer
	if err := layout.Execute(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
