package product

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hitoshi/lienzo/internal/model"
)

// RawFields は作成・更新リクエストから受け取った未加工の項目。
type RawFields map[string]string

// maxPrice はpriceの上限(この値を含まない)。
const maxPrice = 1e10

// 書き換えを許可しない項目
var strippedKeys = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// FieldsFromJSON はJSONオブジェクトの値を文字列に変換する。
// nullは未指定として扱い、配列・オブジェクトはJSON文字列として保持する。
func FieldsFromJSON(obj map[string]any) (RawFields, error) {
	raw := make(RawFields, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			raw[k] = val
		case float64:
			raw[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case json.Number:
			raw[k] = val.String()
		case bool:
			raw[k] = strconv.FormatBool(val)
		default:
			b, err := json.Marshal(val)
			if err != nil {
				return nil, model.NewInvalidFieldError(k, "unsupported value")
			}
			raw[k] = string(b)
		}
	}
	return raw, nil
}

// ParseID は商品IDを解析する。正の整数以外はエラーとする。
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewInvalidProductIDError(s)
	}
	return id, nil
}

// normalizeFields は未加工の項目を検証・変換して書き込み項目に変換する。
// 空の値は未指定として扱う。creatingがtrueの場合はnameを必須とする。
// slugが指定されていればそれを、なければnameからスラッグを生成する。
func normalizeFields(raw RawFields, sanitize func(string) string, creating bool) (*model.ProductFields, error) {
	fields := &model.ProductFields{}

	for key, value := range raw {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" || strippedKeys[key] {
			continue
		}

		switch key {
		case "name":
			fields.Name = &value
		case "slug":
			fields.Slug = &value
		case "description":
			d := sanitize(value)
			fields.Description = &d
		case "category":
			fields.Category = &value
		case "price":
			price, err := parsePrice(value)
			if err != nil {
				return nil, err
			}
			fields.Price = &price
		case "stock":
			stock, err := parseStock(value)
			if err != nil {
				return nil, err
			}
			fields.Stock = &stock
		case "image_url":
			fields.ImageURL = &value
		case "image_path":
			fields.ImagePath = &value
		default:
			if fields.Attributes == nil {
				fields.Attributes = map[string]string{}
			}
			fields.Attributes[key] = value
		}
	}

	if creating && fields.Name == nil {
		return nil, model.NewInvalidFieldError("name", "required")
	}

	switch {
	case fields.Slug != nil:
		slug := Slugify(*fields.Slug)
		if slug == "" {
			return nil, model.NewInvalidFieldError("slug", "must contain at least one letter or digit")
		}
		fields.Slug = &slug
	case fields.Name != nil:
		slug := Slugify(*fields.Name)
		if slug == "" {
			return nil, model.NewInvalidFieldError("name", "must contain at least one letter or digit")
		}
		fields.Slug = &slug
	}

	return fields, nil
}

func parsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, model.NewInvalidFieldError("price", fmt.Sprintf("%q is not a number", s))
	}
	if v < 0 {
		return 0, model.NewInvalidFieldError("price", "must not be negative")
	}
	// price列はNUMERIC(12,2)
	v = math.Round(v*100) / 100
	if v >= maxPrice {
		return 0, model.NewInvalidFieldError("price", "is too large")
	}
	return v, nil
}

func parseStock(s string) (int, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if errors.Is(err, strconv.ErrRange) {
		return 0, model.NewInvalidFieldError("stock", "is out of range")
	}
	if err != nil {
		return 0, model.NewInvalidFieldError("stock", fmt.Sprintf("%q is not an integer", s))
	}
	if v < 0 {
		return 0, model.NewInvalidFieldError("stock", "must not be negative")
	}
	return int(v), nil
}
