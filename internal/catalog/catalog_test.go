package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadEmbedded(t *testing.T) {
	c, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded failed: %v", err)
	}
	if c.Len() != 10 {
		t.Errorf("Expected 10 sample products, got %d", c.Len())
	}
}

func TestGetByID(t *testing.T) {
	c, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded failed: %v", err)
	}

	p, ok := c.GetByID("3")
	if !ok {
		t.Fatal("Expected product id 3 to exist")
	}
	if p.Name != "Lightweight Running Sneakers" {
		t.Errorf("Unexpected product for id 3: %q", p.Name)
	}

	if _, ok := c.GetByID("999"); ok {
		t.Error("Expected id 999 to be absent")
	}
}

func TestGetByName_CaseInsensitiveExact(t *testing.T) {
	c, _ := LoadEmbedded()

	p, ok := c.GetByName("slim fit denim jeans")
	if !ok || p.ID != "2" {
		t.Errorf("Expected exact-name match to resolve id 2, got %+v ok=%v", p, ok)
	}

	// Substring is not enough for the enrichment lookup
	if _, ok := c.GetByName("denim"); ok {
		t.Error("GetByName must require full-name equality")
	}
}

func TestSearch(t *testing.T) {
	c, _ := LoadEmbedded()

	tests := []struct {
		name  string
		query string
		ids   []string
	}{
		{"empty query returns full catalog", "", []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}},
		{"name substring", "sneakers", []string{"3"}},
		{"category match", "accessories", []string{"7", "8"}},
		{"description match", "breathable", []string{"3"}},
		{"case insensitive", "DENIM", []string{"2"}},
		{"no match yields empty", "hoverboard", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, p := range c.Search(tt.query) {
				ids = append(ids, p.ID)
			}
			if diff := cmp.Diff(tt.ids, ids); diff != "" {
				t.Errorf("Search(%q) mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}
}

func TestSearch_PreservesCatalogOrder(t *testing.T) {
	c := New([]Product{
		{ID: "b", Name: "Blue Shirt", Category: "Tops"},
		{ID: "a", Name: "Another Shirt", Category: "Tops"},
	})

	got := c.Search("shirt")
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("Search must preserve listed order, got %+v", got)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "products.json")
	if err := os.WriteFile(path, []byte(`[{"name":"no id"}]`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("Expected error for product without id")
	}

	if err := os.WriteFile(path, []byte(`not json`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

func TestNew_DuplicateIDKeepsFirst(t *testing.T) {
	c := New([]Product{
		{ID: "1", Name: "First"},
		{ID: "1", Name: "Second"},
	})
	if c.Len() != 1 {
		t.Fatalf("Expected duplicate id to be dropped, len=%d", c.Len())
	}
	p, _ := c.GetByID("1")
	if p.Name != "First" {
		t.Errorf("Expected first entry to win, got %q", p.Name)
	}
}
