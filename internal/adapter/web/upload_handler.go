package web

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/upload"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/usecase"
	"github.com/kolapodev-a11y/PropertyHub/internal/maps"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
	"github.com/kolapodev-a11y/PropertyHub/internal/session"
)

const (
	imagesField          = "images"
	msgPlacesUnavailable = "Location search is unavailable, so the location was not saved."
)

type previewView struct {
	Name string
	Src  template.URL
}

type uploadData struct {
	pageData
	Form            upload.Form
	Location        string
	Previews        []previewView
	Map             maps.UploadMap
	SubmitLabel     string
	SubmittingLabel string
	Busy            bool
}

type postedData struct {
	pageData
	Target string
	Delay  time.Duration
}

type thumbnailResponse struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	DataURL string `json:"dataUrl,omitempty"`
}

type placeResponse struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Zoom int     `json:"zoom"`
}

// formView records what the upload controller asked the page to show, so the
// handler can render it in a single response.
type formView struct {
	busy    bool
	label   string
	notices []upload.Notice
	target  string
	delay   time.Duration
}

func (v *formView) SetSubmitting(busy bool, label string) {
	v.busy, v.label = busy, label
}

func (v *formView) Notify(n upload.Notice) {
	v.notices = append(v.notices, n)
}

func (v *formView) NavigateAfter(target string, delay time.Duration) {
	v.target, v.delay = target, delay
}

func (s *Server) newUploadController(r *http.Request, view *formView, nav session.Navigator) *upload.Controller {
	var gate upload.SessionGate
	if sc := scopeFrom(r.Context()); sc != nil {
		gate = sc.gateway
	}
	return upload.NewController(upload.Deps{
		Gate:     gate,
		Uploader: s.deps.Uploader,
		Creator:  s.deps.Catalog,
		Places:   s.deps.Places,
		View:     view,
		Nav:      nav,
	}, upload.Config{
		LoginTarget:  s.loginURL("/upload"),
		Folder:       s.opts.UploadFolder,
		SuccessDelay: s.opts.SuccessDelay,
	}, s.logger)
}

func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	view := &formView{label: upload.SubmitLabel}
	nav := &redirectNav{}
	ctrl := s.newUploadController(r, view, nav)
	defer ctrl.Unmount()

	if _, err := ctrl.Mount(r.Context()); err != nil {
		s.handleGateError(w, r, nav, err)
		return
	}
	form := upload.Form{Category: r.URL.Query().Get("cat")}
	s.renderUploadForm(w, r, http.StatusOK, ctrl, view, form, "")
}

func (s *Server) handleUploadSubmit(w http.ResponseWriter, r *http.Request) {
	view := &formView{label: upload.SubmitLabel}
	nav := &redirectNav{}
	ctrl := s.newUploadController(r, view, nav)
	defer ctrl.Unmount()

	ctx := r.Context()
	if _, err := ctrl.Mount(ctx); err != nil {
		s.handleGateError(w, r, nav, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		s.logger.Info("upload form rejected", zap.Error(err))
		view.Notify(upload.Notice{Kind: upload.NoticeError, Message: "Your photos are too large to upload."})
		s.renderUploadForm(w, r, http.StatusRequestEntityTooLarge, ctrl, view, upload.Form{}, "")
		return
	}
	form := upload.Form{
		Title:       r.PostFormValue("title"),
		Category:    r.PostFormValue("category"),
		Price:       r.PostFormValue("price"),
		Description: r.PostFormValue("description"),
		Contact:     r.PostFormValue("contact"),
	}
	location := r.PostFormValue("location")

	files, err := readMediaFiles(r.MultipartForm.File[imagesField])
	if err != nil {
		s.logger.Warn("failed to read selected files", zap.Error(err))
		view.Notify(upload.Notice{Kind: upload.NoticeError, Message: "Could not read the selected photos."})
		s.renderUploadForm(w, r, http.StatusBadRequest, ctrl, view, form, location)
		return
	}
	if len(files) > usecase.MaxImages {
		view.Notify(upload.Notice{Kind: upload.NoticeWarning, Message: fmt.Sprintf("You can attach at most %d photos.", usecase.MaxImages)})
		s.renderUploadForm(w, r, http.StatusUnprocessableEntity, ctrl, view, form, location)
		return
	}
	if len(files) > 0 && s.deps.Uploader == nil {
		view.Notify(upload.Notice{Kind: upload.NoticeWarning, Message: "Photo uploads are not available right now."})
		s.renderUploadForm(w, r, http.StatusServiceUnavailable, ctrl, view, form, location)
		return
	}
	ctrl.SelectFiles(files)

	switch {
	case location == "":
	case s.deps.Places == nil:
		view.Notify(upload.Notice{Kind: upload.NoticeWarning, Message: msgPlacesUnavailable})
	default:
		if place, err := ctrl.ChoosePlace(ctx, location); err == nil {
			location = place.Name
		}
	}

	if _, err := ctrl.Submit(ctx, form); err != nil {
		if errors.Is(err, session.ErrRedirected) {
			http.Redirect(w, r, nav.target, http.StatusSeeOther)
			return
		}
		s.renderUploadForm(w, r, statusFor(err), ctrl, view, form, location)
		return
	}

	data := postedData{pageData: s.base(r, "Listing posted"), Target: view.target, Delay: view.delay}
	data.Notices = view.notices
	s.renderPage(w, http.StatusOK, "posted", data)
}

// handleUploadPreview returns thumbnails for the posted selection, minus the
// file named by the optional remove index.
func (s *Server) handleUploadPreview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "Your photos are too large to preview.")
		return
	}
	files, err := readMediaFiles(r.MultipartForm.File[imagesField])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Could not read the selected photos.")
		return
	}

	ctrl := s.newUploadController(r, &formView{}, &redirectNav{})
	defer ctrl.Unmount()
	thumbs := ctrl.SelectFiles(files)
	if raw := r.PostFormValue("remove"); raw != "" {
		if idx, err := strconv.Atoi(raw); err == nil {
			thumbs = ctrl.RemoveFile(idx)
		}
	}

	out := make([]thumbnailResponse, 0, len(thumbs))
	for _, th := range thumbs {
		out = append(out, thumbnailResponse{Index: th.Index, Name: th.Name, DataURL: th.DataURL})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePlaceResolve(w http.ResponseWriter, r *http.Request) {
	if s.deps.Places == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "Place search is not configured.")
		return
	}
	input := r.URL.Query().Get("input")
	if input == "" {
		writeJSONError(w, http.StatusBadRequest, "input is required")
		return
	}

	view := &formView{}
	ctrl := s.newUploadController(r, view, &redirectNav{})
	defer ctrl.Unmount()
	place, err := ctrl.ChoosePlace(r.Context(), input)
	if err != nil {
		msg := "No location details for that selection."
		if len(view.notices) > 0 {
			msg = view.notices[len(view.notices)-1].Message
		}
		status := http.StatusUnprocessableEntity
		if !errors.Is(err, maps.ErrNoGeometry) {
			status = statusFor(err)
		}
		writeJSONError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, placeResponse{Name: place.Name, Lat: place.Coords.Lat, Lng: place.Coords.Lng, Zoom: maps.PlaceZoom})
}

func (s *Server) renderUploadForm(w http.ResponseWriter, r *http.Request, status int, ctrl *upload.Controller, view *formView, form upload.Form, location string) {
	data := uploadData{
		pageData:        s.base(r, "Post a listing"),
		Form:            form,
		Location:        location,
		Map:             ctrl.Map(),
		SubmitLabel:     view.label,
		SubmittingLabel: upload.SubmittingLabel,
		Busy:            view.busy,
	}
	if data.SubmitLabel == "" {
		data.SubmitLabel = upload.SubmitLabel
	}
	data.Notices = view.notices
	for _, th := range ctrl.Thumbnails() {
		if th.DataURL == "" {
			continue
		}
		// Thumbnails are data: URLs built from sniffed image types.
		data.Previews = append(data.Previews, previewView{Name: th.Name, Src: template.URL(th.DataURL)})
	}
	s.renderPage(w, status, "upload", data)
}

// handleGateError finishes a request whose session gate failed.
func (s *Server) handleGateError(w http.ResponseWriter, r *http.Request, nav *redirectNav, err error) {
	if errors.Is(err, session.ErrRedirected) && nav.target != "" {
		http.Redirect(w, r, nav.target, http.StatusSeeOther)
		return
	}
	s.logger.Warn("session gate failed", zap.Error(err))
	data := s.base(r, "Something went wrong")
	data.Notices = []upload.Notice{{Kind: upload.NoticeError, Message: apperr.Message(err, "Please try again.")}}
	s.renderPage(w, statusFor(err), "notfound", data)
}

func readMediaFiles(headers []*multipart.FileHeader) ([]domain.MediaFile, error) {
	files := make([]domain.MediaFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		files = append(files, domain.MediaFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}
