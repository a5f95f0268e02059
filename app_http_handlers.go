package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"overlay-gpt/layout"
	"overlay-gpt/storage"
	"overlay-gpt/translate"
)

// respondError maps bad input to 400, missing objects to 404 and everything
// else to 500.
func respondError(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).Error(message)
	} else {
		log.WithError(err).Warn(message)
	}
	c.JSON(status, gin.H{"message": fmt.Sprintf("%s: %v", message, err)})
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		log.Errorf("Invalid request payload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("Invalid request payload: %v", err)})
		return false
	}
	return true
}

// ocrAutoHandler handles the POST /api/ocr/auto endpoint
func (app *App) ocrAutoHandler(c *gin.Context) {
	var req OCRRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := app.ProcessOCR(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "OCR failed")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ocrSelectHandler handles the POST /api/ocr/select endpoint
func (app *App) ocrSelectHandler(c *gin.Context) {
	var req SelectOCRRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := app.SelectOCR(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Selection OCR failed")
		return
	}
	c.JSON(http.StatusOK, entry)
}

// downloadOCRJSONHandler handles the POST /api/ocr/download-json endpoint
func (app *App) downloadOCRJSONHandler(c *gin.Context) {
	var req DownloadOCRRequest
	if !bindJSON(c, &req) {
		return
	}

	filename := storage.FilenameFromURL(req.ImageURL)
	data, err := app.Store.Get(c.Request.Context(), storage.OCRResultKey(filename))
	if err != nil {
		respondError(c, err, "Error loading OCR result")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".json"))
	c.Data(http.StatusOK, "application/json", data)
}

// ocrLinesHandler handles the POST /api/ocr/lines endpoint
func (app *App) ocrLinesHandler(c *gin.Context) {
	var req OCRLinesRequest
	if !bindJSON(c, &req) {
		return
	}

	doc, err := app.loadDocument(c.Request.Context(), req.OCRJSONURL)
	if err != nil {
		respondError(c, err, "Error loading OCR result")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"language": layout.DetectLanguage(doc),
		"lines":    layout.BlockLines(doc),
	})
}

// translateHandler handles the POST /api/translate endpoint
func (app *App) translateHandler(c *gin.Context) {
	var req TranslateRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := app.TranslateDocument(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Translation failed")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// translateTextHandler handles the POST /api/translate/text endpoint
func (app *App) translateTextHandler(c *gin.Context) {
	var req TranslateTextRequest
	if !bindJSON(c, &req) {
		return
	}

	translated, changed, err := app.TranslateText(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Translation failed")
		return
	}

	message := "translated"
	if !changed {
		message = "same_language"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         message,
		"translated_text": translated,
	})
}

// reinsertHandler handles the POST /api/reinsert endpoint
func (app *App) reinsertHandler(c *gin.Context) {
	var req ReinsertRequest
	if !bindJSON(c, &req) {
		return
	}

	boxes, err := app.GenerateBoxes(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Error generating boxes")
		return
	}
	c.JSON(http.StatusOK, ReinsertResponse{
		Message: "boxes generated",
		Boxes:   boxes,
	})
}

func (app *App) submitTranslateJobHandler(c *gin.Context) {
	var req TranslateRequest
	if !bindJSON(c, &req) {
		return
	}

	job := newJob(req)
	if err := app.Jobs.enqueue(app.queue, job); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

func (app *App) getJobStatusHandler(c *gin.Context) {
	job, exists := app.Jobs.getJob(c.Param("job_id"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"message": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (app *App) getAllJobsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, app.Jobs.GetAllJobs())
}

func (app *App) cancelJobHandler(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, exists := app.Jobs.getJob(jobID); !exists {
		c.JSON(http.StatusNotFound, gin.H{"message": "Job not found"})
		return
	}
	if !app.Jobs.cancel(jobID) {
		c.JSON(http.StatusConflict, gin.H{"message": "Job already finished"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job cancellation requested"})
}

// signURLHandler handles the POST /api/prefix endpoint
func (app *App) signURLHandler(c *gin.Context) {
	var req SignURLRequest
	if !bindJSON(c, &req) {
		return
	}

	signed, err := app.SignURL(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, err, "Signing URL failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"signed_url": signed})
}

// historyHandler handles the GET /api/history endpoint
func (app *App) historyHandler(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid limit"})
			return
		}
		limit = parsed
	}

	records, err := GetRecords(app.Database, c.Query("project_id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to retrieve processing history"})
		log.Errorf("Failed to retrieve processing history: %v", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// getPromptsHandler handles the GET /api/prompts endpoint
func getPromptsHandler(c *gin.Context) {
	templateMutex.RLock()
	defer templateMutex.RUnlock()

	content, err := os.ReadFile(translatePromptPath())
	if err != nil {
		content = []byte(translate.DefaultPrompt)
	}

	c.JSON(http.StatusOK, gin.H{
		"translate_prompt": string(content),
	})
}

// updatePromptsHandler handles the POST /api/prompts endpoint
func (app *App) updatePromptsHandler(c *gin.Context) {
	var req struct {
		TranslatePrompt string `json:"translate_prompt" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	tmpl, err := translate.ParsePrompt(req.TranslatePrompt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("Invalid translate prompt: %v", err)})
		return
	}

	templateMutex.Lock()
	defer templateMutex.Unlock()

	if err := os.WriteFile(translatePromptPath(), []byte(req.TranslatePrompt), 0644); err != nil {
		log.Errorf("Failed to write translate prompt: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to save translate prompt"})
		return
	}
	if setter, ok := translate.FindPromptSetter(app.Translator); ok {
		setter.SetPrompt(tmpl)
	}

	c.Status(http.StatusOK)
}

// getSettingsHandler handles the GET /api/settings endpoint
func getSettingsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, currentSettings())
}

// updateSettingsHandler handles the POST /api/settings endpoint
func updateSettingsHandler(c *gin.Context) {
	var req Settings
	if !bindJSON(c, &req) {
		return
	}

	updated, err := updateSettings(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, updated)
}
