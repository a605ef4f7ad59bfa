package ui

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"killay/internal/bulk"
	apperrors "killay/internal/errors"
)

const (
	uploadField = "file"
	xlsxMime    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *Server) handleListActions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"actions": s.imports.Actions()})
}

func (s *Server) handleColumns(c *gin.Context) {
	guide, err := s.imports.Columns(c.Param("action"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, guide)
}

func (s *Server) handleGuide(c *gin.Context) {
	action := c.Param("action")
	guide, err := s.imports.Columns(action)
	if err != nil {
		s.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	err = s.templates.ExecuteTemplate(&buf, "guide.html", gin.H{
		"Title":       guide.Title,
		"Body":        template.HTML(guide.HTML()),
		"Template":    guide.Template,
		"TemplateURL": fmt.Sprintf("/bulk-actions/%s/template", action),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) handleTemplate(c *gin.Context) {
	var buf bytes.Buffer
	filename, err := s.imports.Template(c.Request.Context(), c.Param("action"), &buf)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxMime, buf.Bytes())
}

func (s *Server) handleValidate(c *gin.Context) {
	upload, err := readUpload(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	outcome, err := s.imports.Validate(c.Request.Context(), c.Param("action"), upload)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) handleImport(c *gin.Context) {
	upload, err := readUpload(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	outcome, err := s.imports.Import(c.Request.Context(), c.Param("action"), upload)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, outcome)
}

// readUpload loads the submitted workbook; a request without one yields a
// nil upload so the form reports the missing file
func readUpload(c *gin.Context) (*bulk.Upload, error) {
	header, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errUploadTooLarge(tooLarge.Limit)
		}
		return nil, nil
	}

	data, err := readFileHeader(header)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errUploadTooLarge(tooLarge.Limit)
		}
		return nil, apperrors.Wrap(err, "read upload")
	}
	return &bulk.Upload{Filename: header.Filename, Data: data}, nil
}

func readFileHeader(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
