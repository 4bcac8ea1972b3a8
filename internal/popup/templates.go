package popup

import "html/template"

var templates = template.Must(template.New("popup").Parse(`
{{define "badges"}}<div class="bantay-popup__badges">{{range .}}<span class="bantay-badge bantay-badge--{{.Class}}" style="background:{{.Color}}">{{if .Outline}}<svg viewBox="0 0 24 24" width="14" height="14" aria-hidden="true">{{range .Outline}}<path d="{{.D}}"{{if .FillRule}} fill-rule="{{.FillRule}}"{{end}} fill="currentColor"></path>{{end}}</svg>{{end}}{{.Label}}</span>{{end}}</div>{{end}}

{{define "body"}}{{template "badges" .Badges}}{{if .Title}}<h3 class="bantay-popup__title">{{.Title}}</h3>{{end}}{{if .Location}}<p class="bantay-popup__location">{{.Location}}</p>{{end}}<p class="bantay-popup__coords">{{.Coords}}</p>{{end}}

{{define "click"}}<div class="bantay-popup bantay-popup--click" data-pin-id="{{.ID}}">{{template "body" .}}
{{- with .Travel}}<div class="bantay-popup__travel">{{if .Loading}}<span class="bantay-popup__travel-loading">Calculating route…</span>{{else}}<span class="bantay-popup__duration">{{.Duration}}</span> <span class="bantay-popup__distance">{{.Distance}}</span>{{end}}</div>{{end}}
{{- if .Actions}}<div class="bantay-popup__actions"><button type="button" data-action="edit" data-pin-id="{{.ID}}">Edit</button><button type="button" data-action="delete" data-pin-id="{{.ID}}">Delete</button></div>{{end -}}
</div>{{end}}

{{define "hover"}}<div class="bantay-popup bantay-popup--hover">{{template "body" .}}{{if .Description}}<p class="bantay-popup__description">{{.Description}}</p>{{end}}</div>{{end}}

{{define "tileset"}}<div class="bantay-popup bantay-popup--tileset">{{if .Layer}}<span class="bantay-badge bantay-badge--layer">{{.Layer}}</span>{{end}}
{{- if .Name}}<h3 class="bantay-popup__title">{{.Name}}</h3>{{end}}
{{- if .Address}}<p class="bantay-popup__address">{{.Address}}</p>{{end}}
{{- if .Description}}<p class="bantay-popup__description">{{.Description}}</p>{{end}}
{{- if .Capacity}}<p class="bantay-popup__capacity">Capacity: {{.Capacity}}</p>{{end}}
{{- if .Contact}}<p class="bantay-popup__contact">Contact: {{.Contact}}</p>{{end -}}
</div>{{end}}
`))
