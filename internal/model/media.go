package model

import "time"

// StoredImage はオブジェクトストレージにアップロードされた画像を表す。
type StoredImage struct {
	URL          string
	Path         string
	OriginalName string
}

// MediaItem はメディアライブラリに表示する画像の記述子。
type MediaItem struct {
	ID          string
	Name        string
	Type        string
	URL         string
	Size        string
	Date        string
	Description string
	MimeType    string
	StoragePath string
	CreatedAt   time.Time
}
