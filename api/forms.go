package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rpupo63/hundred-days/errs"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling file parts to disk.
const multipartMemory = 8 << 20

// parseForm reads a urlencoded or multipart body. A body over the limit set
// by limitBody becomes a 413. The returned cleanup removes file parts that
// spilled to disk and must be deferred by the caller; it is never nil.
//
// net/http only cleans up the multipart form of the request it created, and
// handlers here see the copy made by sessionMiddleware.
func parseForm(r *http.Request) (cleanup func(), err error) {
	cleanup = func() { removeMultipartFiles(r) }

	err = r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err == nil {
		return cleanup, nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return cleanup, errs.NewMaxBodySizeExceededError(tooLarge.Limit)
	}
	return cleanup, errs.NewMalformedPayloadError("form", err)
}

func removeMultipartFiles(r *http.Request) {
	if r.MultipartForm == nil {
		return
	}
	if err := r.MultipartForm.RemoveAll(); err != nil {
		log.Warn().Err(err).Msg("could not remove multipart temp files")
	}
}

// formImage returns the uploaded image, or ok=false when the form carries no
// file or an empty file input.
func formImage(r *http.Request, field string) (file multipart.File, header *multipart.FileHeader, ok bool, err error) {
	file, header, err = r.FormFile(field)
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return nil, nil, false, nil
	case err != nil:
		return nil, nil, false, errs.NewMalformedPayloadError("image", err)
	}
	if header.Filename == "" {
		file.Close()
		return nil, nil, false, nil
	}
	return file, header, true, nil
}

// formDayNumber reads day_number leniently: anything that is not an integer
// reads as 0.
func formDayNumber(r *http.Request) int {
	day, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("day_number")))
	if err != nil {
		return 0
	}
	return day
}

// pathID parses a numeric path parameter; anything else is a missing page.
func pathID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		return 0, errs.NewNotFound("project")
	}
	return uint(id), nil
}
