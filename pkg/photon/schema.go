package photon

import (
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// Operation builds the OpenAPI operation of a typed handler.
func Operation(h Handler) *huma.Operation {
	path := NormalizePath(h.Path)
	summary := h.Summary
	if summary == "" {
		summary = "Run " + path
	}
	return &huma.Operation{
		OperationID: operationID(path),
		Method:      http.MethodPost,
		Path:        path,
		Summary:     summary,
		RequestBody: &huma.RequestBody{
			Required: true,
			Content: map[string]*huma.MediaType{
				"application/json": {Schema: requestSchema(h.Params)},
			},
		},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Successful Response",
				Content:     map[string]*huma.MediaType{"application/json": {}},
			},
			"422": {Description: "Validation Error"},
			"500": {Description: "Handler Error"},
		},
	}
}

func operationID(path string) string {
	id := strings.Trim(strings.ReplaceAll(path, "/", "-"), "-")
	if id == "" {
		return "run-root"
	}
	return "run-" + id
}

// DeriveSchema emits one POST path per typed handler. Mounted handlers are
// left out of the document.
func DeriveSchema(title, version string, handlers []Handler) *huma.OpenAPI {
	doc := &huma.OpenAPI{
		OpenAPI: "3.1.0",
		Info: &huma.Info{
			Title:   title,
			Version: version,
		},
		Paths: map[string]*huma.PathItem{},
	}
	for _, h := range handlers {
		if h.IsMounted() {
			continue
		}
		doc.AddOperation(Operation(h))
	}
	return doc
}
