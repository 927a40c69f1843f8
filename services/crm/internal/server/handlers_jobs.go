package server

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"patorama/internal/util"
	"patorama/pkg/domain"
	"patorama/services/crm/internal/app"
)

const multipartMemory = 32 << 20

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req app.JobInput
	if !decodeJSON(w, r, &req) {
		return
	}
	job, err := s.app.CreateJob(r.Context(), user, req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Job created successfully",
		"jobId":   job.ID,
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request, user domain.User) {
	q := r.URL.Query()
	page, err := s.app.ListJobs(r.Context(), user, app.JobQuery{
		Status:     q.Get("status"),
		DateFrom:   q.Get("date_from"),
		DateTo:     q.Get("date_to"),
		CustomerID: queryID(r, "customer_id"),
		Page:       queryInt(r, "page"),
		Limit:      queryInt(r, "limit"),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	job, err := s.app.GetJob(r.Context(), user, id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch domain.JobPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if _, err := s.app.UpdateJob(r.Context(), user, id, patch); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Job updated successfully")
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.app.DeleteJob(r.Context(), user, id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Job deleted successfully")
}

// uploads

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, user domain.User) {
	limit := s.app.MaxUploadBytes()*int64(s.app.MaxFilesPerUpload()) + multipartMemory
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	jobID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("job_id")), 10, 64)
	if err != nil || jobID <= 0 {
		writeError(w, http.StatusBadRequest, "Job ID is required")
		return
	}
	headers := r.MultipartForm.File["files"]
	files := make([]app.UploadFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, uploadFile(fh))
	}
	created, err := s.app.UploadFiles(r.Context(), user, jobID, files)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":       "Files uploaded successfully",
		"uploadedFiles": created,
	})
}

func uploadFile(fh *multipart.FileHeader) app.UploadFile {
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return app.UploadFile{
		Name:        fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request, user domain.User) {
	jobID, ok := pathID(w, r, "job_id")
	if !ok {
		return
	}
	list, err := s.app.ListUploads(r.Context(), user, jobID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleMarkFinal(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		IsFinal *bool `json:"is_final"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IsFinal == nil {
		writeError(w, http.StatusBadRequest, "is_final is required")
		return
	}
	if err := s.app.MarkFinal(r.Context(), user, id, *req.IsFinal); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Upload status updated successfully")
}

func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.app.DeleteUpload(r.Context(), user, id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Upload deleted successfully")
}

func (s *Server) handleDownloadUpload(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	dl, err := s.app.DownloadUpload(r.Context(), user, id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if dl.RedirectURL != "" {
		http.Redirect(w, r, dl.RedirectURL, http.StatusFound)
		return
	}
	defer dl.Body.Close()
	contentType := dl.Upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.Upload.FileName}))
	if dl.Upload.FileSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.Upload.FileSize, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, dl.Body); err != nil {
		util.LoggerFromContext(r.Context()).Warn("download interrupted", "upload_id", id, "err", err)
	}
}
