package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
)

const TesseractName = "tesseract"

// TesseractConfig holds configuration for the tesseract OCR engine.
type TesseractConfig struct {
	Language string // default "eng"
	DPI      int    // hint passed through to tesseract; 0 leaves the default
}

// TesseractEngine implements OCREngine using the gosseract client.
// A fresh client is created per call; gosseract clients are not safe to
// reuse after Close.
type TesseractEngine struct {
	language      string
	dpi           int
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine constructs a tesseract-backed OCR engine.
func NewTesseractEngine(cfg TesseractConfig) *TesseractEngine {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	return &TesseractEngine{
		language:      cfg.Language,
		dpi:           cfg.DPI,
		clientFactory: gosseract.NewClient,
	}
}

// Name returns the engine identifier.
func (e *TesseractEngine) Name() string {
	return TesseractName
}

// Recognize extracts text from a page image.
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte, pageNum int) (*OCRResult, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return failedOCR(pageNum, start, fmt.Errorf("set image: %w", err))
	}
	if err := c.SetLanguage(e.language); err != nil {
		return failedOCR(pageNum, start, fmt.Errorf("set language: %w", err))
	}
	if e.dpi > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(e.dpi)); err != nil {
			return failedOCR(pageNum, start, fmt.Errorf("set dpi: %w", err))
		}
	}

	text, err := c.Text()
	if err != nil {
		return failedOCR(pageNum, start, fmt.Errorf("recognize text: %w", err))
	}

	return &OCRResult{
		Text:          strings.TrimSpace(text),
		PageNum:       pageNum,
		Success:       true,
		ExecutionTime: time.Since(start),
	}, nil
}

func failedOCR(pageNum int, start time.Time, err error) (*OCRResult, error) {
	return &OCRResult{
		PageNum:       pageNum,
		Success:       false,
		ErrorMessage:  err.Error(),
		ExecutionTime: time.Since(start),
	}, err
}
