package ocr

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// renderPage rasterizes one page of a PDF to a PNG at the configured DPI
// using poppler's pdftoppm, the same external dependency the mage-agent
// render step shelled out to before handing pages to OCR.
func renderPage(pdfPath string, pageNumber, dpi int, tempDir string) ([]byte, error) {
	outPrefix := filepath.Join(tempDir, fmt.Sprintf("page-%d", pageNumber))

	cmd := exec.Command("pdftoppm",
		"-png",
		"-r", fmt.Sprintf("%d", dpi),
		"-f", fmt.Sprintf("%d", pageNumber),
		"-l", fmt.Sprintf("%d", pageNumber),
		pdfPath, outPrefix,
	)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("render page %d: %w", pageNumber, err)
	}

	candidates := []string{
		fmt.Sprintf("%s-%d.png", outPrefix, pageNumber),
		fmt.Sprintf("%s.png", outPrefix),
	}
	for _, c := range candidates {
		if data, err := os.ReadFile(c); err == nil {
			os.Remove(c)
			return data, nil
		}
	}
	return nil, fmt.Errorf("render page %d: output file not found", pageNumber)
}
