// Package product は商品の一覧・取得・作成・更新・削除を提供する。
// 添付画像のアップロードと削除をレコードの作成・更新・削除に同期させる。
package product

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/lienzo/internal/media"
	"github.com/hitoshi/lienzo/internal/model"
	"github.com/hitoshi/lienzo/internal/repository"
	"github.com/hitoshi/lienzo/internal/security"
)

// ImageStore は商品画像の保存と削除のインターフェース。
type ImageStore interface {
	Upload(ctx context.Context, file *media.File) (*model.StoredImage, error)
	RemoveBestEffort(ctx context.Context, path string)
}

// Service は商品操作のオーケストレーションを行う。
type Service struct {
	repo      repository.ProductRepository
	images    ImageStore
	sanitizer security.DescriptionSanitizer
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	repo repository.ProductRepository,
	images ImageStore,
	sanitizer security.DescriptionSanitizer,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		images:    images,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// List は全商品をID昇順で返す。
func (s *Service) List(ctx context.Context) ([]*model.Product, error) {
	return s.repo.List(ctx)
}

// GetByID は指定IDの商品を返す。
func (s *Service) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, model.NewProductNotFoundError()
	}
	return p, nil
}

// GetBySlug は指定スラッグの商品を返す。
// 問い合わせの失敗は未検出とは区別してエラーを返す。
func (s *Service) GetBySlug(ctx context.Context, slug string) (*model.Product, error) {
	p, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, model.NewProductNotFoundError()
	}
	return p, nil
}

// Create は商品を作成する。fileが指定されていれば先にアップロードし、
// 作成に失敗した場合はアップロードした画像を削除する。
func (s *Service) Create(ctx context.Context, raw RawFields, file *media.File) (*model.Product, error) {
	fields, err := normalizeFields(raw, s.sanitizer.Sanitize, true)
	if err != nil {
		return nil, err
	}

	img, err := s.attachImage(ctx, fields, file)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.Create(ctx, fields)
	if err != nil {
		s.discardImage(ctx, img)
		return nil, translateWriteError(err, fields)
	}
	return p, nil
}

// Update は指定された項目のみを更新する。fileが指定されていれば画像を置き換え、
// 更新に成功した後で以前の画像を削除する。
func (s *Service) Update(ctx context.Context, id int64, raw RawFields, file *media.File) (*model.Product, error) {
	fields, err := normalizeFields(raw, s.sanitizer.Sanitize, false)
	if err != nil {
		return nil, err
	}
	if fields.IsEmpty() && file == nil {
		return nil, model.NewInvalidRequestError("no fields to update")
	}

	existing, err := s.repo.FindByIDElevated(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, model.NewProductNotFoundError()
	}

	img, err := s.attachImage(ctx, fields, file)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		s.discardImage(ctx, img)
		return nil, translateWriteError(err, fields)
	}
	if p == nil {
		s.discardImage(ctx, img)
		return nil, model.NewProductNotFoundError()
	}

	if img != nil && existing.ImagePath != nil && *existing.ImagePath != img.Path {
		s.images.RemoveBestEffort(ctx, *existing.ImagePath)
	}
	return p, nil
}

// Delete は商品を削除する。関連する画像の削除は失敗しても処理を継続する。
func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.FindByIDElevated(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return model.NewProductNotFoundError()
	}

	if existing.ImagePath != nil {
		s.images.RemoveBestEffort(ctx, *existing.ImagePath)
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewProductNotFoundError()
	}

	s.logger.Info("product deleted", slog.Int64("product_id", id))
	return nil
}

// attachImage は画像をアップロードし、そのURLとパスを書き込み項目に設定する。
func (s *Service) attachImage(ctx context.Context, fields *model.ProductFields, file *media.File) (*model.StoredImage, error) {
	if file == nil {
		return nil, nil
	}
	img, err := s.images.Upload(ctx, file)
	if err != nil {
		return nil, err
	}
	fields.ImageURL = &img.URL
	fields.ImagePath = &img.Path
	return img, nil
}

// discardImage は書き込みに失敗した操作でアップロードした画像を削除する。
func (s *Service) discardImage(ctx context.Context, img *model.StoredImage) {
	if img == nil {
		return
	}
	s.images.RemoveBestEffort(context.WithoutCancel(ctx), img.Path)
}

func translateWriteError(err error, fields *model.ProductFields) error {
	if errors.Is(err, repository.ErrDuplicateSlug) {
		slug := ""
		if fields.Slug != nil {
			slug = *fields.Slug
		}
		return model.NewSlugTakenError(slug)
	}
	return err
}
