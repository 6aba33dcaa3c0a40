package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	ReadDigital    = "TEXTO_DIGITAL"
	ReadOCR        = "OCR (IA Visual)"
	ReadNoOCR      = "FALHA: Imagem (Sem Tesseract)"
	readErrorLabel = "ERRO LEITURA: "

	// Abaixo disso o PDF é tratado como imagem escaneada.
	minDigitalText = 50
)

// TextRead é o texto obtido de um arquivo e o método de leitura usado.
type TextRead struct {
	Text   string
	Method string
}

// TextSource obtém o texto bruto de um documento.
type TextSource interface {
	ReadText(ctx context.Context, path string) TextRead
}

// OCR reconhece o texto da primeira página de um PDF escaneado.
type OCR interface {
	RecognizeFirstPage(ctx context.Context, path string) (string, error)
}

// PDFTextSource lê o texto digital do PDF e recorre ao OCR quando ele é curto demais.
type PDFTextSource struct {
	ocr OCR
}

// NewPDFTextSource aceita ocr nil, caso em que PDFs escaneados ficam sem texto.
func NewPDFTextSource(ocr OCR) *PDFTextSource {
	return &PDFTextSource{ocr: ocr}
}

func (s *PDFTextSource) ReadText(ctx context.Context, path string) TextRead {
	digital, err := readPDFText(path)
	if err != nil {
		return TextRead{Method: readErrorLabel + err.Error()}
	}
	if len(strings.TrimSpace(digital)) > minDigitalText {
		return TextRead{Text: digital, Method: ReadDigital}
	}
	if s.ocr == nil {
		return TextRead{Method: ReadNoOCR}
	}

	text, err := s.ocr.RecognizeFirstPage(ctx, path)
	if err != nil {
		return TextRead{Method: readErrorLabel + err.Error()}
	}
	return TextRead{Text: text, Method: ReadOCR}
}

func readPDFText(path string) (text string, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// a biblioteca entra em pânico com alguns PDFs corrompidos
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("PDF ilegível: %v", rec)
		}
	}()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// CommandOCR rasteriza a primeira página com pdftoppm e a reconhece com tesseract.
type CommandOCR struct {
	Tesseract string
	Pdftoppm  string
	Language  string
	DPI       int
}

// Available informa se os dois executáveis estão no PATH.
func (o CommandOCR) Available() bool {
	if _, err := exec.LookPath(o.Tesseract); err != nil {
		return false
	}
	_, err := exec.LookPath(o.Pdftoppm)
	return err == nil
}

func (o CommandOCR) RecognizeFirstPage(ctx context.Context, path string) (string, error) {
	dir, err := os.MkdirTemp("", "scg-ocr-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	render := exec.CommandContext(ctx, o.Pdftoppm,
		"-r", strconv.Itoa(o.DPI), "-f", "1", "-l", "1", "-singlefile", "-png", path, prefix)
	if out, err := render.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(out)))
	}

	var stdout, stderr bytes.Buffer
	recognize := exec.CommandContext(ctx, o.Tesseract, prefix+".png", "stdout", "-l", o.Language)
	recognize.Stdout, recognize.Stderr = &stdout, &stderr
	if err := recognize.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return stdout.String(), nil
}
