package httpadapter

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
)

const uploadField = "file"

type upload struct {
	file   multipart.File
	header *multipart.FileHeader
	model  string
}

// parseUpload enforces the upload size limit and opens the multipart file
// field. Callers must call cleanup.
func (rt *Router) parseUpload(w http.ResponseWriter, r *http.Request) (*upload, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, err
		}
		if errors.Is(err, multipart.ErrMessageTooLarge) {
			return nil, nil, &http.MaxBytesError{Limit: rt.maxUploadBytes()}
		}
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "parse upload", err)
	}
	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		cleanup()
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "parse upload", fmt.Errorf("multipart field '%s' is required", uploadField))
	}
	up := &upload{
		file:   file,
		header: header,
		model:  strings.TrimSpace(r.FormValue("model")),
	}
	return up, func() {
		_ = file.Close()
		cleanup()
	}, nil
}

func (u *upload) readAll() ([]byte, error) {
	data, err := io.ReadAll(u.file)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", err)
	}
	return data, nil
}

func (rt *Router) classifyDocument(w http.ResponseWriter, r *http.Request) {
	req, ok := rt.operator(w, r)
	if !ok {
		return
	}
	up, cleanup, err := rt.parseUpload(w, r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	defer cleanup()

	content, err := up.readAll()
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	result, err := rt.services.Documents.ClassifyDocument(r.Context(), req, domain.MemberFile{
		Name:         up.header.Filename,
		Content:      content,
		DeclaredMIME: up.header.Header.Get("Content-Type"),
	}, up.model)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) classifyArchive(w http.ResponseWriter, r *http.Request) {
	req, ok := rt.operator(w, r)
	if !ok {
		return
	}
	up, cleanup, err := rt.parseUpload(w, r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	defer cleanup()

	data, err := up.readAll()
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	result, err := rt.services.Archives.ClassifyArchive(r.Context(), req, up.header.Filename, data, up.model)
	if err != nil {
		if domain.IsKind(err, domain.ErrNoEligibleMembers) && result != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  err.Error(),
				"result": result,
			})
			return
		}
		rt.writeError(w, r, err)
		return
	}

	setArchiveHeaders(w, "classified.zip")
	w.Header().Set("X-Archive-Job-Id", result.Job.ID)
	w.Header().Set("X-Processed-Files", strconv.Itoa(result.Processed))
	w.Header().Set("X-Skipped-Files", strconv.Itoa(result.Count(domain.MemberSkipped)))
	w.Header().Set("X-Failed-Files", strconv.Itoa(result.Count(domain.MemberFailed)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Archive)
}

func (rt *Router) enqueueArchive(w http.ResponseWriter, r *http.Request) {
	req, ok := rt.operator(w, r)
	if !ok {
		return
	}
	up, cleanup, err := rt.parseUpload(w, r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	defer cleanup()

	job, err := rt.services.Jobs.EnqueueArchive(r.Context(), req, up.header.Filename, up.file, up.model)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/archives/jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) getArchiveJob(w http.ResponseWriter, r *http.Request) {
	job, err := rt.services.Jobs.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) downloadArchiveJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rc, err := rt.services.Jobs.OpenResult(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	defer rc.Close()

	setArchiveHeaders(w, "classified-"+id+".zip")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

func setArchiveHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
