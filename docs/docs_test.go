package docs

import (
	"encoding/json"
	"testing"

	"github.com/swaggo/swag"
)

func TestSwaggerDocIsValidJSON(t *testing.T) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		t.Fatalf("ReadDoc: %v", err)
	}
	var api struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]any `json:"paths"`
	}
	if err := json.Unmarshal([]byte(doc), &api); err != nil {
		t.Fatalf("doc is not JSON: %v", err)
	}
	if api.Info.Title != "predictd API" {
		t.Fatalf("title=%q", api.Info.Title)
	}
	for _, p := range []string{"/predictions", "/schema", "/models", "/status"} {
		if _, ok := api.Paths[p]; !ok {
			t.Fatalf("missing path %s", p)
		}
	}
}
