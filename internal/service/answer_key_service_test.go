package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chief-impact7/OCRvKing/internal/models"
	"github.com/chief-impact7/OCRvKing/pkg/pdfimg"
)

type stubAnswerKeyRepo struct {
	key      *models.AnswerKey
	replaced int
}

func (s *stubAnswerKeyRepo) Current(ctx context.Context) (models.AnswerKey, error) {
	if s.key == nil {
		return models.AnswerKey{}, gorm.ErrRecordNotFound
	}
	return *s.key, nil
}

func (s *stubAnswerKeyRepo) Replace(ctx context.Context, key *models.AnswerKey) error {
	s.replaced++
	stored := *key
	s.key = &stored
	return nil
}

func TestRegisterImageKeyBecomesSinglePage(t *testing.T) {
	repo := &stubAnswerKeyRepo{}
	svc := NewAnswerKeyService(repo, &stubRasterizer{}, 1, zerolog.Nop())

	response, err := svc.Register(context.Background(), "key.jpg", jpegBytes)
	require.NoError(t, err)
	require.Equal(t, "key.jpg", response.FileName)
	require.Equal(t, 1, response.PageCount)
	require.Equal(t, 1, repo.replaced)

	pages, err := svc.ReferencePages(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Equal(t, "image/jpeg", pages[0].MIME)
}

func TestRegisterPDFKeyRasterizesAllPages(t *testing.T) {
	rendered := []pdfimg.Page{
		{Name: "key_page_1.jpg", Data: jpegBytes},
		{Name: "key_page_2.jpg", Data: jpegBytes},
	}
	svc := NewAnswerKeyService(&stubAnswerKeyRepo{}, &stubRasterizer{pages: rendered}, 1, zerolog.Nop())

	response, err := svc.Register(context.Background(), "key.pdf", pdfBytes)
	require.NoError(t, err)
	require.Equal(t, 2, response.PageCount)

	pages, err := svc.ReferencePages(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 2)
	require.Equal(t, "key_page_1.jpg", pages[0].Name)
}

func TestRegisterRejectsRenderFailure(t *testing.T) {
	repo := &stubAnswerKeyRepo{}
	svc := NewAnswerKeyService(repo, &stubRasterizer{err: pdfimg.ErrRenderFailed}, 1, zerolog.Nop())

	_, err := svc.Register(context.Background(), "key.pdf", pdfBytes)
	require.ErrorIs(t, err, pdfimg.ErrRenderFailed)
	require.Zero(t, repo.replaced)
}

func TestReferencePagesRestoresFromRepo(t *testing.T) {
	repo := &stubAnswerKeyRepo{key: &models.AnswerKey{
		FileName:  "key.jpg",
		MimeType:  "image/jpeg",
		Data:      jpegBytes,
		PageCount: 1,
	}}
	svc := NewAnswerKeyService(repo, &stubRasterizer{}, 1, zerolog.Nop())

	pages, err := svc.ReferencePages(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Equal(t, "key.jpg", pages[0].Name)
}

func TestReferencePagesMissingKey(t *testing.T) {
	svc := NewAnswerKeyService(&stubAnswerKeyRepo{}, &stubRasterizer{}, 1, zerolog.Nop())

	_, err := svc.ReferencePages(context.Background())
	require.ErrorIs(t, err, ErrAnswerKeyMissing)

	_, err = svc.Current(context.Background())
	require.ErrorIs(t, err, ErrAnswerKeyMissing)
}
