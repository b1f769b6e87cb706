package apidocs

import (
	"encoding/json"
	"testing"

	"github.com/swaggo/swag"
)

func TestDocIsValidJSON(t *testing.T) {
	doc, err := swag.ReadDoc()
	if err != nil {
		t.Fatalf("read doc: %v", err)
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		t.Fatalf("doc is not JSON: %v", err)
	}
	paths, _ := v["paths"].(map[string]any)
	if _, ok := paths["/tryon"]; !ok {
		t.Fatalf("missing /tryon in %v", paths)
	}
}
