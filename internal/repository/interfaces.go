// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/lienzo/internal/model"
)

// ErrDuplicateSlug はスラッグが既存の商品と重複していることを表す。
var ErrDuplicateSlug = errors.New("duplicate product slug")

// ProductRepository は商品データの永続化インターフェース。
//
// 読み取りはrestricted接続、書き込みと削除前の読み取りはelevated接続で行う。
type ProductRepository interface {
	// List は全商品をID昇順で取得する。
	List(ctx context.Context) ([]*model.Product, error)

	// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Product, error)

	// FindBySlug は指定スラッグの商品を取得する。見つからない場合はnilを返す。
	// 問い合わせ自体の失敗はエラーとして返し、未検出と区別する。
	FindBySlug(ctx context.Context, slug string) (*model.Product, error)

	// FindByIDElevated はelevated接続で指定IDの商品を取得する。見つからない場合はnilを返す。
	// 更新・削除の前に現在の画像パスを得るために使用する。
	FindByIDElevated(ctx context.Context, id int64) (*model.Product, error)

	// Create は商品を作成し、作成された行を返す。
	// スラッグが重複する場合はErrDuplicateSlugを返す。
	Create(ctx context.Context, fields *model.ProductFields) (*model.Product, error)

	// Update は指定された項目のみを更新し、更新後の行を返す。
	// attributesは既存の値にマージする。見つからない場合はnilを返す。
	Update(ctx context.Context, id int64, fields *model.ProductFields) (*model.Product, error)

	// Delete は指定IDの商品を削除する。見つからない場合はfalseを返す。
	Delete(ctx context.Context, id int64) (bool, error)
}

// ProfileRepository はプロフィールの読み取りインターフェース。
// ログイン前の利用者のロールを解決するため、elevated接続で読み取る。
type ProfileRepository interface {
	// FindByID は指定ユーザーIDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)
}
