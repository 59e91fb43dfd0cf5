package article

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/owenshapw/poemVerse/internal/generation"
	"github.com/owenshapw/poemVerse/internal/imageurl"
	"github.com/owenshapw/poemVerse/internal/user"
)

// Errors returned by Service.
var (
	// ErrArticleNotFound means no article has the given id.
	ErrArticleNotFound = errors.New("article: not found")
	// ErrCommentNotFound means no comment has the given id.
	ErrCommentNotFound = errors.New("article: comment not found")
	// ErrForbidden means the caller does not own the resource.
	ErrForbidden = errors.New("article: not the owner")
	// ErrInvalid marks a validation failure on caller input.
	ErrInvalid = errors.New("article: invalid input")
	// ErrNoCover means no cover image could be generated or stored.
	ErrNoCover = errors.New("article: cover could not be produced")
)

// Covers produces a stored, normalized cover URL from text.
type Covers interface {
	Produce(ctx context.Context, req generation.Request) (string, error)
}

// ImageRemover deletes a stored image; unknown URLs are ignored.
type ImageRemover interface {
	Remove(ctx context.Context, url string) error
}

type CreateInput struct {
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Tags            []string `json:"tags"`
	Author          string   `json:"author"`
	Visibility      string   `json:"visibility"`
	PreviewImageURL string   `json:"preview_image_url"`
	TextOffset      *float64 `json:"text_offset"`
	ImageOffset     *float64 `json:"image_offset"`
}

type UpdateInput struct {
	Title           *string   `json:"title"`
	Content         *string   `json:"content"`
	Tags            *[]string `json:"tags"`
	Author          *string   `json:"author"`
	Visibility      *string   `json:"visibility"`
	PreviewImageURL *string   `json:"preview_image_url"`
	TextOffset      *float64  `json:"text_offset"`
	ImageOffset     *float64  `json:"image_offset"`
}

type PreviewInput struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Author  string   `json:"author"`
	Tags    []string `json:"tags"`
}

// Service implements article and comment CRUD with ownership checks and cover
// generation.
type Service struct {
	repo       Repository
	users      user.Repository
	covers     Covers
	images     ImageRemover
	normalizer imageurl.Normalizer
	log        *zap.Logger
}

func NewService(repo Repository, users user.Repository, covers Covers, images ImageRemover, normalizer imageurl.Normalizer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		users:      users,
		covers:     covers,
		images:     images,
		normalizer: normalizer,
		log:        log,
	}
}

// Create persists the article and, when no preview image was supplied, produces
// a cover before returning. A cover failure leaves image_url null.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (*Article, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return nil, fmt.Errorf("%w: title and content are required", ErrInvalid)
	}
	visibility := in.Visibility
	if visibility == "" {
		visibility = VisibilityPublic
	}
	if !ValidVisibility(visibility) {
		return nil, fmt.Errorf("%w: visibility must be public or private", ErrInvalid)
	}

	now := time.Now()
	a := &Article{
		ID:          uuid.New().String(),
		UserID:      ownerID,
		Title:       title,
		Content:     content,
		Tags:        cleanTags(in.Tags),
		Author:      s.authorFor(ctx, ownerID, in.Author),
		Visibility:  visibility,
		TextOffset:  in.TextOffset,
		ImageOffset: in.ImageOffset,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if preview := strings.TrimSpace(in.PreviewImageURL); preview != "" {
		url := s.normalizer.Normalize(preview)
		a.ImageURL = &url
	} else if url, err := s.produceCover(ctx, a); err == nil {
		a.ImageURL = &url
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}
	return a, nil
}

// Get hides private articles from everyone but their owner.
func (s *Service) Get(ctx context.Context, id, viewerID string) (*Article, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.VisibleTo(viewerID) {
		return nil, ErrArticleNotFound
	}
	a.ImageURL = s.normalizer.NormalizePtr(a.ImageURL)
	return a, nil
}

func (s *Service) Update(ctx context.Context, id, userID string, in UpdateInput) (*Article, error) {
	a, err := s.owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalid)
		}
		a.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		if strings.TrimSpace(*in.Content) == "" {
			return nil, fmt.Errorf("%w: content cannot be empty", ErrInvalid)
		}
		a.Content = strings.TrimSpace(*in.Content)
	}
	if in.Tags != nil {
		a.Tags = cleanTags(*in.Tags)
	}
	if in.Author != nil {
		a.Author = s.authorFor(ctx, userID, *in.Author)
	}
	if in.Visibility != nil {
		if !ValidVisibility(*in.Visibility) {
			return nil, fmt.Errorf("%w: visibility must be public or private", ErrInvalid)
		}
		a.Visibility = *in.Visibility
	}
	if in.PreviewImageURL != nil && strings.TrimSpace(*in.PreviewImageURL) != "" {
		url := s.normalizer.Normalize(strings.TrimSpace(*in.PreviewImageURL))
		a.ImageURL = &url
	}
	if in.TextOffset != nil {
		a.TextOffset = in.TextOffset
	}
	if in.ImageOffset != nil {
		a.ImageOffset = in.ImageOffset
	}
	a.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update article: %w", err)
	}
	a.ImageURL = s.normalizer.NormalizePtr(a.ImageURL)
	return a, nil
}

// Delete removes the article, its comments and likes, then its cover image.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	a, err := s.owned(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	if a.ImageURL != nil && s.images != nil {
		if err := s.images.Remove(context.WithoutCancel(ctx), *a.ImageURL); err != nil {
			s.log.Warn("cover image not removed", zap.String("articleID", id), zap.Error(err))
		}
	}
	return nil
}

// Regenerate replaces the cover of an owned article.
func (s *Service) Regenerate(ctx context.Context, id, userID string) (*Article, error) {
	a, err := s.owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.produceCover(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCover, err)
	}
	if err := s.repo.SetImageURL(ctx, id, &url); err != nil {
		return nil, fmt.Errorf("save cover: %w", err)
	}

	old := a.ImageURL
	a.ImageURL = &url
	if old != nil && *old != url && s.images != nil {
		if err := s.images.Remove(context.WithoutCancel(ctx), *old); err != nil {
			s.log.Warn("previous cover not removed", zap.String("articleID", id), zap.Error(err))
		}
	}
	return a, nil
}

// Preview produces a cover without persisting anything.
func (s *Service) Preview(ctx context.Context, in PreviewInput) (string, error) {
	if strings.TrimSpace(in.Title) == "" && strings.TrimSpace(in.Content) == "" {
		return "", fmt.Errorf("%w: title or content is required", ErrInvalid)
	}
	if s.covers == nil {
		return "", ErrNoCover
	}
	url, err := s.covers.Produce(ctx, generation.Request{
		Title:  in.Title,
		Body:   in.Content,
		Author: in.Author,
		Tags:   cleanTags(in.Tags),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCover, err)
	}
	return url, nil
}

func (s *Service) ListComments(ctx context.Context, articleID, viewerID string) ([]Comment, error) {
	if _, err := s.Get(ctx, articleID, viewerID); err != nil {
		return nil, err
	}
	comments, err := s.repo.ListComments(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.UserID)
	}
	names := s.displayNames(ctx, ids)
	for i := range comments {
		comments[i].Author = names[comments[i].UserID]
		if comments[i].Author == "" {
			comments[i].Author = AnonymousAuthor
		}
	}
	return comments, nil
}

func (s *Service) AddComment(ctx context.Context, userID, articleID, content string) (*Comment, error) {
	content = strings.TrimSpace(content)
	if articleID == "" || content == "" {
		return nil, fmt.Errorf("%w: article_id and content are required", ErrInvalid)
	}
	if _, err := s.Get(ctx, articleID, userID); err != nil {
		return nil, err
	}

	c := &Comment{
		ID:        uuid.New().String(),
		ArticleID: articleID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateComment(ctx, c); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	c.Author = s.authorFor(ctx, userID, "")
	return c, nil
}

// DeleteComment is allowed to the comment's author only.
func (s *Service) DeleteComment(ctx context.Context, id, userID string) error {
	c, err := s.repo.GetComment(ctx, id)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return ErrForbidden
	}
	if err := s.repo.DeleteComment(ctx, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

func (s *Service) owned(ctx context.Context, id, userID string) (*Article, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		if !a.VisibleTo(userID) {
			return nil, ErrArticleNotFound
		}
		return nil, ErrForbidden
	}
	return a, nil
}

func (s *Service) produceCover(ctx context.Context, a *Article) (string, error) {
	if s.covers == nil {
		return "", ErrNoCover
	}
	url, err := s.covers.Produce(ctx, generation.Request{
		Title:  a.Title,
		Body:   a.Content,
		Author: a.Author,
		Tags:   a.Tags,
	})
	if err != nil {
		s.log.Warn("cover generation failed, article keeps no image",
			zap.String("articleID", a.ID),
			zap.Error(err),
		)
		return "", err
	}
	return url, nil
}

// authorFor picks the explicit name, else the owner's username or email, else 匿名.
func (s *Service) authorFor(ctx context.Context, userID, explicit string) string {
	if name := strings.TrimSpace(explicit); name != "" {
		return name
	}
	if name := s.displayNames(ctx, []string{userID})[userID]; name != "" {
		return name
	}
	return AnonymousAuthor
}

func (s *Service) displayNames(ctx context.Context, ids []string) map[string]string {
	out := make(map[string]string, len(ids))
	if s.users == nil || len(ids) == 0 {
		return out
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		s.log.Warn("user lookup failed", zap.Error(err))
		return out
	}
	for id, u := range users {
		out[id] = u.DisplayName()
	}
	return out
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
