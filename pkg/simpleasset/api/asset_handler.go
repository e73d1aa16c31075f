package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-asset/pkg/asset"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/admin"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500

	// multipartOverhead is the room allowed for multipart framing on top of
	// the payload limit.
	multipartOverhead = 1 << 20
)

// AssetResponse is a stored asset record, optionally with its payload.
type AssetResponse struct {
	*simpleasset.AssetRecord
	Data         string `json:"data,omitempty"`
	Deduplicated bool   `json:"deduplicated,omitempty"`
	SourceFormat string `json:"source_format,omitempty"`
}

// ListResponse is the body of GET /assets.
type ListResponse struct {
	Assets []*simpleasset.AssetRecord `json:"assets"`
	Total  int64                      `json:"total"`
	Limit  int                        `json:"limit"`
	Offset int                        `json:"offset"`
}

// DetectResponse describes a payload without storing it.
type DetectResponse struct {
	Signature string `json:"signature"`
	MediaType string `json:"media_type"`
	Extension string `json:"extension"`
	Category  string `json:"category"`
	FileName  string `json:"file_name"`
	Size      int64  `json:"size"`
	SHA256    string `json:"sha256"`
	MD5       string `json:"md5"`
}

// AssetHandler serves the asset HTTP API.
type AssetHandler struct {
	service simpleasset.Service
	admin   *admin.Service
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(service simpleasset.Service) *AssetHandler {
	return &AssetHandler{service: service, admin: admin.New(service)}
}

// Routes returns the routes mounted under /assets
func (h *AssetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.StoreAsset)
	r.Get("/", h.ListAssets)
	r.Post("/envelope", h.ImportEnvelope)
	r.Get("/stats", h.Statistics)

	r.Get("/{id}", h.GetAsset)
	r.Delete("/{id}", h.DeleteAsset)
	r.Get("/{id}/content", h.GetContent)
	r.Get("/{id}/envelope", h.GetEnvelope)
	r.Get("/{id}/verify", h.VerifyAsset)
	r.Get("/{id}/url", h.GetDownloadURL)

	return r
}

// Mount registers the asset routes and POST /detect on r.
func (h *AssetHandler) Mount(r chi.Router) {
	r.Mount("/assets", h.Routes())
	r.Post("/detect", h.Detect)
}

// StoreAsset accepts either a raw body or a multipart form with a "file" part.
func (h *AssetHandler) StoreAsset(w http.ResponseWriter, r *http.Request) {
	data, name, mediaType, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.service.StoreAsset(r.Context(), simpleasset.StoreAssetRequest{
		Data:               data,
		FileName:           name,
		MediaType:          mediaType,
		StorageBackendName: formOrQuery(r, "backend"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("Asset stored", "asset_id", result.Record.ID, "deduplicated", result.Deduplicated)
	status := http.StatusCreated
	if result.Deduplicated {
		status = http.StatusOK
	}
	render.Status(r, status)
	render.JSON(w, r, AssetResponse{
		AssetRecord:  result.Record,
		Deduplicated: result.Deduplicated,
		SourceFormat: result.SourceFormat.String(),
	})
}

// readUpload returns the payload plus the name and media type hints.
func (h *AssetHandler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, string, error) {
	max := h.service.MaxAssetSize()

	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, max+multipartOverhead)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, "", "", uploadError(err, max)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", "", fmt.Errorf("%w: missing multipart field \"file\"", asset.ErrNilData)
		}
		defer file.Close()

		data, err := readLimited(file, max)
		if err != nil {
			return nil, "", "", err
		}
		name := r.FormValue("name")
		if name == "" {
			name = header.Filename
		}
		mediaType := r.FormValue("media_type")
		if mediaType == "" {
			mediaType = usefulContentType(header.Header.Get("Content-Type"))
		}
		return data, name, mediaType, nil
	}

	data, err := readLimited(r.Body, max)
	if err != nil {
		return nil, "", "", err
	}
	mediaType := r.URL.Query().Get("media_type")
	if mediaType == "" {
		mediaType = usefulContentType(r.Header.Get("Content-Type"))
	}
	return data, r.URL.Query().Get("name"), mediaType, nil
}

// Statistics aggregates the records matching the list filters.
func (h *AssetHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	req, err := listRequest(r)
	if err != nil {
		writeErrorStatus(w, r, http.StatusBadRequest, "invalid_request", err)
		return
	}
	req.Limit, req.Offset = 0, 0

	resp, err := h.admin.GetStatistics(r.Context(), admin.StatisticsRequest{
		Filters: req,
		Options: admin.DefaultStatisticsOptions(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// ListAssets lists records with optional media_type, signature and category filters.
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	req, err := listRequest(r)
	if err != nil {
		writeErrorStatus(w, r, http.StatusBadRequest, "invalid_request", err)
		return
	}
	limit, offset := req.Limit, req.Offset

	records, err := h.service.ListAssets(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req.Limit, req.Offset = 0, 0
	total, err := h.service.CountAssets(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, ListResponse{Assets: records, Total: total, Limit: limit, Offset: offset})
}

// GetAsset returns the record; ?include=data adds the base64 payload.
func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	record, err := h.service.GetAssetRecord(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := AssetResponse{AssetRecord: record}
	if r.URL.Query().Get("include") == "data" {
		a, err := h.service.LoadAsset(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp.Data = a.Base64()
	}
	render.JSON(w, r, resp)
}

// GetContent streams the payload with its media type.
func (h *AssetHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	a, err := h.service.LoadAsset(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	disposition := "inline"
	if r.URL.Query().Get("download") == "true" {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", a.MediaType().String())
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": a.Name().String()}))
	w.Header().Set("ETag", `"`+a.SHA256()+`"`)
	http.ServeContent(w, r, a.Name().String(), a.CreatedAt(), a.Reader())
}

// GetEnvelope returns the stored envelope bytes as they are.
func (h *AssetHandler) GetEnvelope(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	envelope, err := h.service.LoadEnvelope(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", asset.EnvelopeMediaType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": simpleasset.EnvelopeFileName(id)}))
	w.Header().Set("Content-Length", strconv.Itoa(len(envelope)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(envelope); err != nil {
		slog.Error("Failed to write envelope", "asset_id", id, "err", err)
	}
}

// ImportEnvelope stores an uploaded envelope of any supported version.
func (h *AssetHandler) ImportEnvelope(w http.ResponseWriter, r *http.Request) {
	limit := h.service.MaxAssetSize() + 2*asset.EnvelopeOverhead + 2*65535
	envelope, err := readLimited(r.Body, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.service.ImportEnvelope(r.Context(), simpleasset.ImportEnvelopeRequest{
		Envelope:           envelope,
		StorageBackendName: r.URL.Query().Get("backend"),
	})
	if err != nil {
		if errors.Is(err, simpleasset.ErrCorruptEnvelope) {
			writeErrorStatus(w, r, http.StatusBadRequest, "corrupt_envelope", err)
			return
		}
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, AssetResponse{AssetRecord: result.Record, SourceFormat: result.SourceFormat.String()})
}

// VerifyAsset re-reads the envelope and reports its consistency.
func (h *AssetHandler) VerifyAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	result, err := h.service.VerifyAsset(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// GetDownloadURL returns a URL the envelope can be fetched from.
func (h *AssetHandler) GetDownloadURL(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	url, err := h.service.GetDownloadURL(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"url": url})
}

// DeleteAsset deletes an asset
func (h *AssetHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAsset(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("Asset deleted", "asset_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Detect reports what the body would be stored as, without storing it.
func (h *AssetHandler) Detect(w http.ResponseWriter, r *http.Request) {
	data, err := readLimited(r.Body, h.service.MaxAssetSize())
	if err != nil {
		writeError(w, r, err)
		return
	}

	a, err := asset.FromBytes(data,
		asset.WithFileName(r.URL.Query().Get("name")),
		asset.WithMediaType(r.URL.Query().Get("media_type")),
		asset.WithMaxSize(h.service.MaxAssetSize()),
	)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, DetectResponse{
		Signature: a.Signature().String(),
		MediaType: a.MediaType().String(),
		Extension: a.Extension(),
		Category:  string(a.Category()),
		FileName:  a.Name().String(),
		Size:      a.Size(),
		SHA256:    a.SHA256(),
		MD5:       a.MD5(),
	})
}

// listRequest reads the list filters and paging from the query string.
func listRequest(r *http.Request) (simpleasset.ListAssetsRequest, error) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), defaultListLimit)
	if err != nil || limit <= 0 {
		return simpleasset.ListAssetsRequest{}, errors.New("limit must be a positive integer")
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		return simpleasset.ListAssetsRequest{}, errors.New("offset must be a non-negative integer")
	}
	includeDeleted, _ := strconv.ParseBool(q.Get("include_deleted"))

	return simpleasset.ListAssetsRequest{
		MediaTypePrefix: q.Get("media_type"),
		Signature:       q.Get("signature"),
		Category:        q.Get("category"),
		IncludeDeleted:  includeDeleted,
		Limit:           min(limit, maxListLimit),
		Offset:          offset,
	}, nil
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil || id == uuid.Nil {
		writeErrorStatus(w, r, http.StatusBadRequest, "invalid_request", errors.New("invalid asset ID"))
		return uuid.Nil, false
	}
	return id, true
}

// readLimited reads at most max bytes and fails with a size error beyond that.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, uploadError(err, max)
	}
	if int64(len(data)) > max {
		return nil, &asset.SizeError{Size: int64(len(data)), Max: max}
	}
	return data, nil
}

func uploadError(err error, max int64) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &asset.SizeError{Size: tooLarge.Limit + 1, Max: max}
	}
	return fmt.Errorf("%w: %v", asset.ErrNilData, err)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// usefulContentType drops the generic types clients send by default.
func usefulContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "application/octet-stream", "application/x-www-form-urlencoded":
		return ""
	}
	return mediaType
}

func formOrQuery(r *http.Request, key string) string {
	if r.MultipartForm != nil {
		if v := r.FormValue(key); v != "" {
			return v
		}
	}
	return r.URL.Query().Get(key)
}

func intParam(raw string, def int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
