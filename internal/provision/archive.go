package provision

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
)

// ZipBootstrap packages a compiled handler binary as the function's bootstrap
func ZipBootstrap(binaryPath string) ([]byte, error) {
	data, err := os.ReadFile(binaryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read handler binary: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	header := &zip.FileHeader{Name: functionHandler, Method: zip.Deflate}
	header.SetMode(0755)
	w, err := zw.CreateHeader(header)
	if err != nil {
		return nil, fmt.Errorf("failed to add bootstrap to archive: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write bootstrap: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}

	return buf.Bytes(), nil
}
