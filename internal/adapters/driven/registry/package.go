package registry

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
	"github.com/custodia-labs/connectorctl/internal/core/ports/driven"
	"github.com/custodia-labs/connectorctl/internal/logger"
)

// Ensure Package implements the interface.
var _ driven.ConnectorPackage = (*Package)(nil)

// nuspec is the subset of the package manifest that identifies it.
type nuspec struct {
	ID      string `xml:"metadata>id"`
	Version string `xml:"metadata>version"`
}

// Package is a downloaded .nupkg held in memory.
type Package struct {
	metadata        domain.ConnectorMetadata
	reader          *zip.Reader
	binaryExtension string
}

// OpenPackage reads a .nupkg payload. Metadata comes from the embedded
// .nuspec; id and version are used when it is absent or incomplete.
func OpenPackage(data []byte, id, version, binaryExtension string) (*Package, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}

	p := &Package{
		metadata:        domain.ConnectorMetadata{ID: id, Version: version},
		reader:          reader,
		binaryExtension: binaryExtension,
	}

	spec, err := readNuspec(reader)
	if err != nil {
		return nil, err
	}
	if spec.ID != "" {
		p.metadata.ID = spec.ID
	}
	if spec.Version != "" {
		p.metadata.Version = spec.Version
	}
	return p, nil
}

// Metadata returns the canonical id and version.
func (p *Package) Metadata() domain.ConnectorMetadata {
	return p.metadata
}

// Extract writes the package payload to dir, flattening library and content
// prefixes so the connector binary sits at the top level.
func (p *Package) Extract(ctx context.Context, dir string) error {
	if p.reader == nil {
		return fmt.Errorf("package %s is closed", p.metadata)
	}

	binary := p.metadata.ID + p.binaryExtension
	for _, f := range p.reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, ok := payloadPath(f.Name)
		if !ok {
			continue
		}
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			return fmt.Errorf("package entry %q escapes the destination directory", f.Name)
		}

		mode := os.FileMode(0o644)
		if strings.EqualFold(rel, binary) {
			mode = 0o755
		}

		target := filepath.Join(dir, filepath.FromSlash(rel))
		if err := extractFile(f, target, mode); err != nil {
			return err
		}
		logger.Debug("Extracted %s", target)
	}
	return nil
}

// Close releases the payload.
func (p *Package) Close() error {
	p.reader = nil
	return nil
}

func readNuspec(reader *zip.Reader) (nuspec, error) {
	for _, f := range reader.File {
		if strings.Contains(f.Name, "/") || !strings.HasSuffix(strings.ToLower(f.Name), ".nuspec") {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nuspec{}, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()

		var spec nuspec
		if err := xml.NewDecoder(rc).Decode(&spec); err != nil {
			return nuspec{}, fmt.Errorf("parse %s: %w", f.Name, err)
		}
		return spec, nil
	}
	return nuspec{}, nil
}

// payloadPath maps a zip entry to its path inside the connector folder.
// It reports false for directories and packaging metadata.
func payloadPath(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" || strings.HasSuffix(name, "/") {
		return "", false
	}

	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "_rels/"),
		strings.HasPrefix(lower, "package/"),
		lower == "[content_types].xml",
		lower == ".signature.p7s",
		!strings.Contains(lower, "/") && strings.HasSuffix(lower, ".nuspec"):
		return "", false
	}

	parts := strings.Split(name, "/")
	switch {
	case len(parts) > 2 && strings.EqualFold(parts[0], "lib"):
		// lib/<tfm>/...
		parts = parts[2:]
	case len(parts) > 4 && strings.EqualFold(parts[0], "runtimes") && strings.EqualFold(parts[2], "lib"):
		// runtimes/<rid>/lib/<tfm>/...
		parts = parts[4:]
	case len(parts) > 3 && strings.EqualFold(parts[0], "contentFiles") &&
		strings.EqualFold(parts[1], "any") && strings.EqualFold(parts[2], "any"):
		parts = parts[3:]
	case len(parts) > 1 && strings.EqualFold(parts[0], "content"):
		parts = parts[1:]
	}

	return strings.Join(parts, "/"), true
}

func extractFile(f *zip.File, target string, mode os.FileMode) error {
	if f.FileInfo().IsDir() {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}

	if _, err := io.Copy(out, rc); err != nil { //nolint:gosec // package size is bounded by the download
		out.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return os.Chmod(target, mode)
}
