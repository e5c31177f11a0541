package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/cbt-marketplace/apiserver/internal/policy"
	"github.com/cbt-marketplace/apiserver/internal/storage"
	"github.com/cbt-marketplace/apiserver/types"
	"github.com/google/uuid"
)

// MaxImageSize is the largest accepted upload, in bytes.
const MaxImageSize = 5 << 20

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

var mediaPrefixes = []string{"articles/", "avatars/"}

// ErrMediaDisabled is returned when no object storage is configured.
var ErrMediaDisabled = errors.New("media storage is not configured")

// ObjectStore is the subset of object storage used for media.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (storage.Object, error)
	Delete(ctx context.Context, key string) error
}

// MediaService uploads article covers and avatars and serves them back.
type MediaService struct {
	objects  ObjectStore
	articles ArticleRepository
	users    UserRepository
	policy   *policy.Policy
	baseURL  string
	logger   *slog.Logger
}

// NewMediaService constructs a MediaService. A nil objects store disables
// every operation.
func NewMediaService(objects ObjectStore, articles ArticleRepository, users UserRepository, pol *policy.Policy, baseURL string, logger *slog.Logger) *MediaService {
	return &MediaService{
		objects:  objects,
		articles: articles,
		users:    users,
		policy:   pol,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

func (s *MediaService) Enabled() bool {
	return s != nil && s.objects != nil
}

// UploadArticleImage stores a cover image and points the article at it.
func (s *MediaService) UploadArticleImage(ctx context.Context, actor types.User, articleID string, file io.Reader) (types.Article, error) {
	if !s.Enabled() {
		return types.Article{}, ErrMediaDisabled
	}
	article, err := s.articles.Get(ctx, articleID)
	if err != nil {
		return types.Article{}, err
	}
	if err := s.policy.Authorize(actor, policy.ActionUpdate, policy.ResourceArticle, article); err != nil {
		return types.Article{}, err
	}

	key, url, err := s.upload(ctx, "articles/"+article.ID, file)
	if err != nil {
		return types.Article{}, err
	}
	previous := article.Image
	article.Image = url
	updated, err := s.articles.Update(ctx, article)
	if err != nil {
		s.discard(ctx, key)
		return types.Article{}, err
	}
	s.discardReplaced(ctx, previous)
	return updated, nil
}

// UploadAvatar stores the actor's profile picture.
func (s *MediaService) UploadAvatar(ctx context.Context, actor types.User, file io.Reader) (types.User, error) {
	if !s.Enabled() {
		return types.User{}, ErrMediaDisabled
	}
	if err := s.policy.Authorize(actor, policy.ActionUpdate, policy.ResourceUser, actor); err != nil {
		return types.User{}, err
	}

	key, url, err := s.upload(ctx, "avatars/"+actor.ID, file)
	if err != nil {
		return types.User{}, err
	}
	var previous string
	user, err := s.users.GetByID(ctx, actor.ID)
	if err == nil {
		previous = user.Avatar
		user.Avatar = url
		user, err = s.users.Update(ctx, user)
	}
	if err != nil {
		s.discard(ctx, key)
		return types.User{}, err
	}
	s.discardReplaced(ctx, previous)
	return user, nil
}

// Open returns a stored media object. Keys outside the media prefixes are
// reported as missing.
func (s *MediaService) Open(ctx context.Context, key string) (storage.Object, error) {
	if !s.Enabled() {
		return storage.Object{}, ErrMediaDisabled
	}
	if !validMediaKey(key) {
		return storage.Object{}, storage.ErrObjectNotFound
	}
	return s.objects.Get(ctx, key)
}

func (s *MediaService) upload(ctx context.Context, dir string, file io.Reader) (string, string, error) {
	data, err := io.ReadAll(io.LimitReader(file, MaxImageSize+1))
	if err != nil {
		return "", "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", "", invalidField("file", "required")
	}
	if len(data) > MaxImageSize {
		return "", "", invalidField("file", "too_large")
	}
	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", "", invalidField("file", "unsupported_type")
	}

	key := fmt.Sprintf("%s/%s.%s", dir, uuid.NewString(), ext)
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", "", fmt.Errorf("store %s: %w", key, err)
	}
	return key, s.baseURL + "/" + key, nil
}

func (s *MediaService) discard(ctx context.Context, key string) {
	if err := s.objects.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "orphaned media object", "key", key, "error", err)
	}
}

// discardReplaced deletes the object behind a media URL this service issued.
// Foreign URLs are left alone.
func (s *MediaService) discardReplaced(ctx context.Context, oldURL string) {
	key, ok := strings.CutPrefix(oldURL, s.baseURL+"/")
	if !ok || !validMediaKey(key) {
		return
	}
	s.discard(ctx, key)
}

func validMediaKey(key string) bool {
	if key == "" || path.Clean(key) != key {
		return false
	}
	for _, prefix := range mediaPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
