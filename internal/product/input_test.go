package product

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/lienzo/internal/model"
)

func identity(s string) string { return s }

func assertFieldError(t *testing.T, err error, wantCode string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *model.APIError", err)
	}
	if apiErr.Code != wantCode {
		t.Errorf("Code = %q, want %q", apiErr.Code, wantCode)
	}
}

func TestNormalizeFields_Create(t *testing.T) {
	raw := RawFields{
		"id":          "99",
		"created_at":  "2020-01-01",
		"name":        "  Blue Mug!! ",
		"price":       " 12.50 ",
		"stock":       "3",
		"description": "<p>Handmade</p>",
		"category":    "",
		"color":       "blue",
	}

	fields, err := normalizeFields(raw, strings.ToUpper, true)
	if err != nil {
		t.Fatalf("normalizeFields() error = %v", err)
	}

	if fields.Name == nil || *fields.Name != "Blue Mug!!" {
		t.Errorf("Name = %v", fields.Name)
	}
	if fields.Slug == nil || *fields.Slug != "blue-mug" {
		t.Errorf("Slug = %v, want blue-mug", fields.Slug)
	}
	if fields.Price == nil || *fields.Price != 12.5 {
		t.Errorf("Price = %v, want 12.5", fields.Price)
	}
	if fields.Stock == nil || *fields.Stock != 3 {
		t.Errorf("Stock = %v, want 3", fields.Stock)
	}
	if fields.Description == nil || *fields.Description != "<P>HANDMADE</P>" {
		t.Errorf("Description = %v, want sanitized value", fields.Description)
	}
	if fields.Category != nil {
		t.Errorf("Category = %v, want nil for empty input", *fields.Category)
	}
	if len(fields.Attributes) != 1 || fields.Attributes["color"] != "blue" {
		t.Errorf("Attributes = %v, want only color", fields.Attributes)
	}
}

// TestNormalizeFields_ExplicitSlug は明示されたスラッグを優先し正規化することを検証する。
func TestNormalizeFields_ExplicitSlug(t *testing.T) {
	fields, err := normalizeFields(RawFields{"name": "Blue Mug", "slug": "Mug Azul"}, identity, true)
	if err != nil {
		t.Fatalf("normalizeFields() error = %v", err)
	}
	if *fields.Slug != "mug-azul" {
		t.Errorf("Slug = %q, want mug-azul", *fields.Slug)
	}
}

func TestNormalizeFields_UpdateWithoutName(t *testing.T) {
	fields, err := normalizeFields(RawFields{"stock": "0"}, identity, false)
	if err != nil {
		t.Fatalf("normalizeFields() error = %v", err)
	}
	if fields.Slug != nil || fields.Name != nil {
		t.Errorf("slug/name should stay unset, got %v / %v", fields.Slug, fields.Name)
	}
	if fields.Stock == nil || *fields.Stock != 0 {
		t.Errorf("Stock = %v, want 0", fields.Stock)
	}
}

// TestNormalizeFields_NumericBounds は列の範囲内の境界値が受け付けられ、priceが小数2桁に丸められることを検証する。
func TestNormalizeFields_NumericBounds(t *testing.T) {
	fields, err := normalizeFields(RawFields{"price": "9999999999.99", "stock": "2147483647"}, identity, false)
	if err != nil {
		t.Fatalf("normalizeFields() error = %v", err)
	}
	if *fields.Price != 9999999999.99 {
		t.Errorf("Price = %v, want 9999999999.99", *fields.Price)
	}
	if *fields.Stock != 2147483647 {
		t.Errorf("Stock = %v, want 2147483647", *fields.Stock)
	}

	fields, err = normalizeFields(RawFields{"price": "12.345"}, identity, false)
	if err != nil {
		t.Fatalf("normalizeFields() error = %v", err)
	}
	if *fields.Price != 12.35 {
		t.Errorf("Price = %v, want 12.35", *fields.Price)
	}
}

func TestNormalizeFields_Errors(t *testing.T) {
	tests := []struct {
		name     string
		raw      RawFields
		creating bool
	}{
		{"missing name on create", RawFields{"price": "10"}, true},
		{"non-numeric price", RawFields{"name": "x", "price": "abc"}, true},
		{"NaN price", RawFields{"name": "x", "price": "NaN"}, true},
		{"infinite price", RawFields{"name": "x", "price": "Inf"}, true},
		{"negative price", RawFields{"name": "x", "price": "-1"}, true},
		{"fractional stock", RawFields{"name": "x", "stock": "12.5"}, true},
		{"non-numeric stock", RawFields{"stock": "many"}, false},
		{"negative stock", RawFields{"stock": "-2"}, false},
		{"stock beyond int32", RawFields{"name": "Mug", "stock": "3000000000"}, true},
		{"price beyond column precision", RawFields{"name": "Mug", "price": "99999999999"}, true},
		{"price rounding up to the limit", RawFields{"name": "Mug", "price": "9999999999.999"}, true},
		{"slug without letters", RawFields{"slug": "!!!"}, false},
		{"name without letters", RawFields{"name": "???"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalizeFields(tt.raw, identity, tt.creating)
			assertFieldError(t, err, model.ErrCodeInvalidField)
		})
	}
}

func TestFieldsFromJSON(t *testing.T) {
	var obj map[string]any
	body := `{"name":"Mug","price":12.5,"stock":3,"featured":true,"tags":["a","b"],"category":null}`
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		t.Fatal(err)
	}

	raw, err := FieldsFromJSON(obj)
	if err != nil {
		t.Fatalf("FieldsFromJSON() error = %v", err)
	}

	want := map[string]string{
		"name":     "Mug",
		"price":    "12.5",
		"stock":    "3",
		"featured": "true",
		"tags":     `["a","b"]`,
	}
	if len(raw) != len(want) {
		t.Errorf("raw = %v, want %v", raw, want)
	}
	for k, v := range want {
		if raw[k] != v {
			t.Errorf("raw[%q] = %q, want %q", k, raw[k], v)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := ParseID("42"); err != nil || id != 42 {
		t.Errorf("ParseID(42) = %d, %v", id, err)
	}
	for _, bad := range []string{"", "abc", "0", "-3", "1.5", "images"} {
		_, err := ParseID(bad)
		assertFieldError(t, err, model.ErrCodeInvalidProductID)
	}
}
