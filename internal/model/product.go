package model

import "time"

// Product は商品カタログのレコードを表す。
// 任意項目はポインタで保持し、未設定（NULL）とゼロ値を区別する。
type Product struct {
	ID          int64
	Name        string
	Slug        string
	Description *string
	Category    *string
	Price       *float64
	Stock       *int
	ImageURL    *string
	ImagePath   *string
	Attributes  map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductFields は作成・部分更新で書き込む項目の集合を表す。
// nilの項目は書き込み対象外。
type ProductFields struct {
	Name        *string
	Slug        *string
	Description *string
	Category    *string
	Price       *float64
	Stock       *int
	ImageURL    *string
	ImagePath   *string
	Attributes  map[string]string
}

// IsEmpty は書き込み対象の項目が1つもない場合にtrueを返す。
func (f *ProductFields) IsEmpty() bool {
	return f.Name == nil && f.Slug == nil && f.Description == nil && f.Category == nil &&
		f.Price == nil && f.Stock == nil && f.ImageURL == nil && f.ImagePath == nil &&
		len(f.Attributes) == 0
}
