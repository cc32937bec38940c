package graphql

import "testing"

func TestSchema_LoadsWithoutPanicking(t *testing.T) {
	if Schema == nil {
		t.Fatal("Schema must be populated by init()")
	}
	if _, ok := Schema.Types["Query"]; !ok {
		t.Fatal("schema must define a Query type")
	}
}
