package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/lienzo/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const uniqueViolation = "23505"

const productColumns = `id, name, slug, description, category, price, stock, image_url, image_path, attributes, created_at, updated_at`

// PostgresProductRepo はPostgreSQLを使用した商品リポジトリ。
// 読み取り用のrestricted接続と、書き込み用のelevated接続を保持する。
type PostgresProductRepo struct {
	reader *sql.DB
	writer *sql.DB
}

// NewPostgresProductRepo はPostgresProductRepoを生成する。
func NewPostgresProductRepo(restricted, elevated *sql.DB) *PostgresProductRepo {
	return &PostgresProductRepo{reader: restricted, writer: elevated}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanProduct は1行を商品として読み取る。
func scanProduct(s rowScanner) (*model.Product, error) {
	p := &model.Product{}
	var (
		description, category, imageURL, imagePath sql.NullString
		price                                      sql.NullFloat64
		stock                                      sql.NullInt64
		attributes                                 []byte
	)

	if err := s.Scan(
		&p.ID, &p.Name, &p.Slug, &description, &category, &price, &stock,
		&imageURL, &imagePath, &attributes, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.Description = nullStringPtr(description)
	p.Category = nullStringPtr(category)
	p.ImageURL = nullStringPtr(imageURL)
	p.ImagePath = nullStringPtr(imagePath)
	if price.Valid {
		v := price.Float64
		p.Price = &v
	}
	if stock.Valid {
		v := int(stock.Int64)
		p.Stock = &v
	}

	attrs, err := decodeAttributes(attributes)
	if err != nil {
		return nil, err
	}
	p.Attributes = attrs

	return p, nil
}

// List は全商品をID昇順で取得する。
func (r *PostgresProductRepo) List(ctx context.Context) ([]*model.Product, error) {
	rows, err := r.reader.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("商品一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	products := []*model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("商品の読み取りに失敗しました: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("商品一覧の走査に失敗しました: %w", err)
	}

	return products, nil
}

// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
func (r *PostgresProductRepo) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	return r.findOne(ctx, r.reader, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// FindBySlug は指定スラッグの商品を取得する。見つからない場合はnilを返す。
func (r *PostgresProductRepo) FindBySlug(ctx context.Context, slug string) (*model.Product, error) {
	return r.findOne(ctx, r.reader, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
}

// FindByIDElevated はelevated接続で指定IDの商品を取得する。見つからない場合はnilを返す。
func (r *PostgresProductRepo) FindByIDElevated(ctx context.Context, id int64) (*model.Product, error) {
	return r.findOne(ctx, r.writer, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

func (r *PostgresProductRepo) findOne(ctx context.Context, db *sql.DB, query string, arg any) (*model.Product, error) {
	p, err := scanProduct(db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	return p, nil
}

// Create は商品を作成し、作成された行を返す。
func (r *PostgresProductRepo) Create(ctx context.Context, fields *model.ProductFields) (*model.Product, error) {
	cols, args, err := fieldColumns(fields)
	if err != nil {
		return nil, err
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := `INSERT INTO products (` + strings.Join(cols, ", ") + `) VALUES (` +
		strings.Join(placeholders, ", ") + `) RETURNING ` + productColumns

	p, err := scanProduct(r.writer.QueryRowContext(ctx, query, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateSlug, err)
		}
		return nil, fmt.Errorf("商品の作成に失敗しました: %w", err)
	}
	return p, nil
}

// Update は指定された項目のみを更新し、更新後の行を返す。見つからない場合はnilを返す。
func (r *PostgresProductRepo) Update(ctx context.Context, id int64, fields *model.ProductFields) (*model.Product, error) {
	cols, args, err := fieldColumns(fields)
	if err != nil {
		return nil, err
	}

	sets := make([]string, 0, len(cols)+1)
	for i, col := range cols {
		if col == "attributes" {
			// 既存の属性にマージする
			sets = append(sets, fmt.Sprintf("attributes = attributes || $%d::jsonb", i+1))
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+1))
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	query := `UPDATE products SET ` + strings.Join(sets, ", ") +
		fmt.Sprintf(` WHERE id = $%d RETURNING `, len(args)) + productColumns

	p, err := scanProduct(r.writer.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateSlug, err)
		}
		return nil, fmt.Errorf("商品の更新に失敗しました: %w", err)
	}
	return p, nil
}

// Delete は指定IDの商品を削除する。見つからない場合はfalseを返す。
func (r *PostgresProductRepo) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.writer.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("商品の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// fieldColumns は設定済みの項目をカラム名と値の組に変換する。
// カラムの順序は固定。
func fieldColumns(f *model.ProductFields) ([]string, []any, error) {
	var (
		cols []string
		args []any
	)
	add := func(col string, v any) {
		cols = append(cols, col)
		args = append(args, v)
	}

	if f.Name != nil {
		add("name", *f.Name)
	}
	if f.Slug != nil {
		add("slug", *f.Slug)
	}
	if f.Description != nil {
		add("description", *f.Description)
	}
	if f.Category != nil {
		add("category", *f.Category)
	}
	if f.Price != nil {
		add("price", *f.Price)
	}
	if f.Stock != nil {
		add("stock", *f.Stock)
	}
	if f.ImageURL != nil {
		add("image_url", *f.ImageURL)
	}
	if f.ImagePath != nil {
		add("image_path", *f.ImagePath)
	}
	if len(f.Attributes) > 0 {
		b, err := json.Marshal(f.Attributes)
		if err != nil {
			return nil, nil, fmt.Errorf("属性のエンコードに失敗しました: %w", err)
		}
		add("attributes", string(b))
	}

	if len(cols) == 0 {
		return nil, nil, errors.New("書き込む項目がありません")
	}
	return cols, args, nil
}

// decodeAttributes はJSONBの属性を文字列マップに変換する。
// 文字列以外の値は文字列表現に変換する。
func decodeAttributes(b []byte) (map[string]string, error) {
	attrs := map[string]string{}
	if len(b) == 0 {
		return attrs, nil
	}

	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("属性のデコードに失敗しました: %w", err)
	}
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			attrs[k] = val
		case nil:
			continue
		default:
			attrs[k] = fmt.Sprint(val)
		}
	}
	return attrs, nil
}

// nullStringPtr はsql.NullStringを*stringに変換する。
func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// compile-time interface check
var _ ProductRepository = (*PostgresProductRepo)(nil)
