package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atikulmunna/vislog/internal/importer"
	"github.com/atikulmunna/vislog/internal/model"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// apiError is the user-facing notification returned for failed requests.
type apiError struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func abort(c *gin.Context, status int, title, description string) {
	c.AbortWithStatusJSON(status, apiError{Title: title, Description: description})
}

func (s *Server) handleListLogs(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleImport(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		abort(c, http.StatusBadRequest, "No file selected", "Please select a file to import.")
		return
	}
	if _, err := importer.DetectFormat(fh.Filename); err != nil {
		abort(c, http.StatusBadRequest, "Invalid file format", "Please select a valid file (Excel, CSV, TSV, or text file).")
		return
	}

	mode := c.DefaultQuery("mode", "replace")
	if mode != "replace" && mode != "append" {
		abort(c, http.StatusBadRequest, "Invalid import mode", `mode must be "replace" or "append".`)
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.log.Error("open upload", zap.Error(err))
		abort(c, http.StatusUnprocessableEntity, "Import failed", "Failed to import logs.")
		return
	}
	defer f.Close()

	res, err := s.importer.Import(c.Request.Context(), fh.Filename, f)
	if err != nil {
		abort(c, http.StatusUnprocessableEntity, "Import failed", importErrorDescription(err))
		return
	}

	if mode == "append" {
		_, err = s.store.AppendLogs(res.Entries)
	} else {
		_, err = s.store.SetLogs(res.Entries)
	}
	if err != nil {
		s.log.Error("persist import", zap.Error(err))
		abort(c, http.StatusInternalServerError, "Import failed", "Failed to save imported logs.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"title":       "Import successful",
		"description": fmt.Sprintf("Imported %d log entries from %d sheet(s).", len(res.Entries), res.Stats.ProcessedSheets),
		"imported":    len(res.Entries),
		"stats":       res.Stats,
	})
}

// importErrorDescription maps import failures to user-facing text. Read and
// decode failures get a generic message; details go to the log only.
func importErrorDescription(err error) string {
	switch {
	case errors.Is(err, importer.ErrMissingColumns):
		return "Missing required columns: IP and domain."
	case errors.Is(err, importer.ErrNoValidEntries):
		return "No valid log entries found in the file."
	default:
		return "Failed to import logs."
	}
}

func (s *Server) handleExport(c *gin.Context) {
	logs := s.store.Snapshot().Logs

	var buf bytes.Buffer
	if err := importer.Export(&buf, logs); err != nil {
		if errors.Is(err, importer.ErrNothingToExport) {
			abort(c, http.StatusConflict, "No logs to export", "Import logs first before exporting.")
			return
		}
		s.log.Error("export failed", zap.Error(err))
		abort(c, http.StatusInternalServerError, "Export failed", "Failed to export logs.")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", importer.ExportFileName))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

type updateRequest struct {
	Old model.LogEntry `json:"old"`
	New model.LogEntry `json:"new"`
}

func (s *Server) handleUpdateLog(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	st, found, err := s.store.UpdateLog(req.Old, req.New)
	if err != nil {
		s.log.Error("update log", zap.Error(err))
		abort(c, http.StatusInternalServerError, "Update failed", "Failed to save the log entry.")
		return
	}
	if !found {
		abort(c, http.StatusNotFound, "Log not found", "No entry matches the given IP, timestamp and page.")
		return
	}
	c.JSON(http.StatusOK, st)
}

type deleteRequest struct {
	Indices []int `json:"indices"`
}

func (s *Server) handleDeleteLogs(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	st, err := s.store.DeleteLogs(req.Indices)
	if err != nil {
		s.log.Error("delete logs", zap.Error(err))
		abort(c, http.StatusInternalServerError, "Delete failed", "Failed to delete log entries.")
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleFilter(c *gin.Context) {
	var f model.LogFilters
	if err := c.ShouldBindJSON(&f); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if len(s.store.Snapshot().Logs) == 0 {
		abort(c, http.StatusConflict, "No logs to filter", "Import logs first before applying filters.")
		return
	}
	st, err := s.store.FilterLogs(f)
	if err != nil {
		s.log.Error("filter logs", zap.Error(err))
		abort(c, http.StatusInternalServerError, "Filter failed", "Failed to apply filters.")
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleResetFilters(c *gin.Context) {
	st, err := s.store.ResetFilters()
	if err != nil {
		s.log.Error("reset filters", zap.Error(err))
		abort(c, http.StatusInternalServerError, "Reset failed", "Failed to reset filters.")
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleClearDatabase(c *gin.Context) {
	st, err := s.store.ClearDatabase()
	if err != nil {
		s.log.Error("clear database", zap.Error(err))
		abort(c, http.StatusInternalServerError, "Clear failed", "Failed to clear the database.")
		return
	}
	c.JSON(http.StatusOK, st)
}
