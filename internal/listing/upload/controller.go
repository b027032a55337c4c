// Package upload runs the post-a-listing form: session gate, image selection,
// place choice and the submit sequence.
package upload

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/render"
	"github.com/kolapodev-a11y/PropertyHub/internal/maps"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
	"github.com/kolapodev-a11y/PropertyHub/internal/session"
)

const (
	SubmitLabel     = "Post Listing"
	SubmittingLabel = "Posting…"

	msgUploading     = "Uploading your listing…"
	msgMissingFields = "Please fill in all required fields."
	msgPosted        = "Listing posted successfully! 🎉"
	msgPostFailed    = "Failed to post listing."
	msgNoGeometry    = "No location details for that selection."
)

var ErrSubmitInProgress = errors.New("a submission is already in progress")

type NoticeKind string

const (
	NoticeInfo    NoticeKind = "info"
	NoticeSuccess NoticeKind = "success"
	NoticeWarning NoticeKind = "warning"
	NoticeError   NoticeKind = "error"
)

type Notice struct {
	Kind    NoticeKind
	Message string
}

// View is the form as the controller sees it.
type View interface {
	SetSubmitting(busy bool, label string)
	Notify(Notice)
	NavigateAfter(target string, delay time.Duration)
}

type SessionGate interface {
	RequireSession(ctx context.Context, nav session.Navigator, target string) (*session.Session, error)
	Token(ctx context.Context) (string, error)
}

type Uploader interface {
	UploadBatch(ctx context.Context, files []domain.MediaFile, folder string) ([]string, error)
}

type Creator interface {
	Create(ctx context.Context, draft domain.Draft, token string) (string, error)
}

// Form holds the text fields. Title, Category and Price are required.
type Form struct {
	Title       string
	Category    string
	Price       string
	Description string
	Contact     string
}

type Config struct {
	LoginTarget  string
	Folder       string
	SuccessDelay time.Duration
}

func DefaultConfig() Config {
	return Config{LoginTarget: "/login", Folder: "listings", SuccessDelay: 1500 * time.Millisecond}
}

type Deps struct {
	Gate     SessionGate
	Uploader Uploader
	Creator  Creator
	Places   maps.PlaceResolver
	View     View
	Nav      session.Navigator
}

type Controller struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger

	mu         sync.Mutex
	selection  Selection
	mapState   maps.UploadMap
	submitting bool
}

func NewController(deps Deps, cfg Config, logger *zap.Logger) *Controller {
	return &Controller{
		deps:     deps,
		cfg:      cfg,
		logger:   logger.Named("UploadController"),
		mapState: maps.NewUploadMap(),
	}
}

// Mount gates the page on a session and starts from an empty selection.
// It returns session.ErrRedirected when the user was sent to sign in.
func (c *Controller) Mount(ctx context.Context) (*session.Session, error) {
	s, err := c.deps.Gate.RequireSession(ctx, c.deps.Nav, c.cfg.LoginTarget)
	if err != nil {
		return nil, err
	}
	c.reset()
	return s, nil
}

func (c *Controller) Unmount() { c.reset() }

func (c *Controller) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.Reset()
	c.mapState = maps.NewUploadMap()
	c.submitting = false
}

// SelectFiles replaces the whole pending selection.
func (c *Controller) SelectFiles(files []domain.MediaFile) []Thumbnail {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.Replace(files)
	return c.thumbnailsLocked()
}

// RemoveFile drops one file and returns the re-indexed thumbnails.
func (c *Controller) RemoveFile(index int) []Thumbnail {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.selection.Remove(index) {
		c.logger.Debug("remove ignored", zap.Int("index", index))
	}
	return c.thumbnailsLocked()
}

func (c *Controller) Thumbnails() []Thumbnail {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.thumbnailsLocked()
}

func (c *Controller) thumbnailsLocked() []Thumbnail {
	thumbs := thumbnails(c.selection.files)
	for _, th := range thumbs {
		if th.DataURL == "" {
			c.logger.Debug("no preview for file", zap.String("file", th.Name))
		}
	}
	return thumbs
}

// ChoosePlace resolves input and records it. Without coordinates a warning is
// shown and nothing is recorded.
func (c *Controller) ChoosePlace(ctx context.Context, input string) (maps.Place, error) {
	place, err := c.deps.Places.Resolve(ctx, input)
	if err != nil || place.Coords == nil {
		c.mu.Lock()
		c.selection.ClearPlace()
		c.mu.Unlock()
		if err == nil || errors.Is(err, maps.ErrNoGeometry) {
			c.deps.View.Notify(Notice{Kind: NoticeWarning, Message: msgNoGeometry})
			return place, maps.ErrNoGeometry
		}
		c.deps.View.Notify(Notice{Kind: NoticeWarning, Message: apperr.Message(err, msgNoGeometry)})
		return place, err
	}

	c.mu.Lock()
	c.selection.SetPlace(place)
	c.mapState.Focus(place)
	c.mu.Unlock()
	return place, nil
}

func (c *Controller) Map() maps.UploadMap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mapState
}

// Submit posts the listing. Fields are validated before any file is uploaded.
// On failure the submit control is restored and an error notice is shown.
func (c *Controller) Submit(ctx context.Context, form Form) (string, error) {
	if _, err := c.deps.Gate.RequireSession(ctx, c.deps.Nav, c.cfg.LoginTarget); err != nil {
		return "", err
	}

	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return "", ErrSubmitInProgress
	}
	c.submitting = true
	files := c.selection.Files()
	place := c.selection.Place()
	c.mu.Unlock()

	c.deps.View.SetSubmitting(true, SubmittingLabel)
	c.deps.View.Notify(Notice{Kind: NoticeInfo, Message: msgUploading})

	draft := buildDraft(form, place)
	if len(draft.MissingFields()) > 0 {
		return "", c.fail(apperr.Validation(msgMissingFields))
	}

	if len(files) > 0 {
		urls, err := c.deps.Uploader.UploadBatch(ctx, files, c.cfg.Folder)
		if err != nil {
			return "", c.fail(err)
		}
		draft.Images = urls
	}

	token, err := c.deps.Gate.Token(ctx)
	if err != nil {
		return "", c.fail(err)
	}
	id, err := c.deps.Creator.Create(ctx, draft, token)
	if err != nil {
		return "", c.fail(err)
	}

	c.logger.Info("listing posted", zap.String("listing_id", id), zap.Int("images", len(draft.Images)))
	c.deps.View.Notify(Notice{Kind: NoticeSuccess, Message: msgPosted})
	c.deps.View.NavigateAfter(render.DetailURL(id), c.cfg.SuccessDelay)

	c.mu.Lock()
	c.selection.Reset()
	c.submitting = false
	c.mu.Unlock()
	return id, nil
}

func (c *Controller) fail(err error) error {
	c.logger.Warn("submit failed", zap.Error(err))
	c.mu.Lock()
	c.submitting = false
	c.mu.Unlock()
	c.deps.View.SetSubmitting(false, SubmitLabel)
	c.deps.View.Notify(Notice{Kind: NoticeError, Message: apperr.Message(err, msgPostFailed)})
	return err
}

func buildDraft(form Form, place *maps.Place) domain.Draft {
	d := domain.Draft{
		Title:       strings.TrimSpace(form.Title),
		Category:    domain.Category(strings.TrimSpace(form.Category)),
		Price:       strings.TrimSpace(form.Price),
		Description: strings.TrimSpace(form.Description),
		Contact:     strings.TrimSpace(form.Contact),
		Images:      []string{},
	}
	if place != nil {
		d.LocationName = place.Name
		if place.Coords != nil {
			lat, lng := place.Coords.Lat, place.Coords.Lng
			d.Lat, d.Lng = &lat, &lng
		}
	}
	return d
}
