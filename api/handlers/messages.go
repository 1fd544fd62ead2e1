package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/elnormous/contenttype"
	"github.com/gin-gonic/gin"

	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
)

var (
	jsonMediaType      = contenttype.NewMediaType("application/json")
	multipartMediaType = contenttype.NewMediaType("multipart/form-data")
)

// Multipart field names accepted for the image payload.
var imageFields = []string{"imageFile", "file"}

// SendMessage handles POST /session/send-message/:id.
func (h *SessionHandler) SendMessage(c *gin.Context) {
	var req model.SendTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.sessions.SendText(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		sendErr(c, err)
		return
	}
	sendOK(c, "Message sent!", gin.H{"msgData": res})
}

// sendImageJSON is the JSON form of send-image. The payload is either a
// URL or base64 data.
type sendImageJSON struct {
	Number     string `json:"number"`
	Caption    string `json:"caption"`
	RegionCode string `json:"regionCode"`
	ImageURL   string `json:"imageUrl"`
	URL        string `json:"url"`
	Data       string `json:"data"`
	MimeType   string `json:"mimeType"`
	Filename   string `json:"filename"`
}

// SendImage handles POST /session/send-image/:id, as multipart form data or JSON.
func (h *SessionHandler) SendImage(c *gin.Context) {
	ctype, err := contenttype.GetMediaType(c.Request)
	if err != nil {
		sendError(c, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Content-Type must be multipart/form-data or application/json")
		return
	}

	var req *model.SendMediaRequest
	switch {
	case ctype.Matches(multipartMediaType):
		req, err = h.bindMultipartImage(c)
	case ctype.Matches(jsonMediaType):
		req, err = h.bindJSONImage(c)
	default:
		sendError(c, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Content-Type must be multipart/form-data or application/json")
		return
	}
	if err != nil {
		sendErr(c, err)
		return
	}

	res, err := h.sessions.SendMedia(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		sendErr(c, err)
		return
	}
	sendOK(c, "Image sent!", gin.H{"msgData": res})
}

func (h *SessionHandler) bindMultipartImage(c *gin.Context) (*model.SendMediaRequest, error) {
	req := &model.SendMediaRequest{
		Number:     c.PostForm("number"),
		Caption:    c.PostForm("caption"),
		RegionCode: c.PostForm("regionCode"),
		URL:        c.PostForm("imageUrl"),
	}
	if req.URL == "" {
		req.URL = c.PostForm("url")
	}

	for _, field := range imageFields {
		fh, err := c.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidArgument, err)
		}
		media, err := h.readUpload(fh)
		if err != nil {
			return nil, err
		}
		req.Media = media
		break
	}
	return req, nil
}

func (h *SessionHandler) readUpload(fh *multipart.FileHeader) (*model.Media, error) {
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", model.ErrInvalidArgument, h.maxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidArgument, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidArgument, err)
	}
	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return &model.Media{Data: data, MimeType: mimeType, Filename: fh.Filename}, nil
}

func (h *SessionHandler) bindJSONImage(c *gin.Context) (*model.SendMediaRequest, error) {
	var body sendImageJSON
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, fmt.Errorf("%w: invalid request body: %v", model.ErrInvalidArgument, err)
	}
	req := &model.SendMediaRequest{
		Number:     body.Number,
		Caption:    body.Caption,
		RegionCode: body.RegionCode,
		URL:        body.ImageURL,
	}
	if req.URL == "" {
		req.URL = body.URL
	}
	if body.Data != "" {
		data, err := base64.StdEncoding.DecodeString(body.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: data is not valid base64", model.ErrInvalidArgument)
		}
		if h.maxUploadBytes > 0 && int64(len(data)) > h.maxUploadBytes {
			return nil, fmt.Errorf("%w: data exceeds %d bytes", model.ErrInvalidArgument, h.maxUploadBytes)
		}
		mimeType := body.MimeType
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}
		filename := body.Filename
		if filename == "" {
			filename = "image"
		}
		req.Media = &model.Media{Data: data, MimeType: mimeType, Filename: filename}
	}
	return req, nil
}

// SendLocation handles POST /session/send-location/:id.
func (h *SessionHandler) SendLocation(c *gin.Context) {
	var req model.SendLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.sessions.SendLocation(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		sendErr(c, err)
		return
	}
	sendOK(c, "Location sent!", gin.H{"msgData": res})
}

// SetStatusRequest is the body of POST /session/set-status/:id.
type SetStatusRequest struct {
	StatusMessage *string `json:"statusMessage"`
}

// SetStatus handles POST /session/set-status/:id.
func (h *SessionHandler) SetStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.StatusMessage == nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "statusMessage (string) required")
		return
	}
	if err := h.sessions.SetStatusMessage(c.Request.Context(), c.Param("id"), *req.StatusMessage); err != nil {
		sendErr(c, err)
		return
	}
	sendOK(c, "Status updated!", nil)
}

// ContactInfo handles GET /session/contact-info/:id/:contactId.
func (h *SessionHandler) ContactInfo(c *gin.Context) {
	info, err := h.sessions.ContactInfo(c.Request.Context(), c.Param("id"), c.Param("contactId"), c.Query("regionCode"))
	if err != nil {
		sendErr(c, err)
		return
	}
	sendOK(c, "OK", gin.H{"contactInfo": info})
}

// IsRegistered handles GET /session/is-registered/:id/:number.
func (h *SessionHandler) IsRegistered(c *gin.Context) {
	number := c.Param("number")
	ok, err := h.sessions.IsRegistered(c.Request.Context(), c.Param("id"), number, c.Query("regionCode"))
	if err != nil {
		sendErr(c, err)
		return
	}
	sendOK(c, "OK", gin.H{"number": number, "isRegistered": ok})
}
