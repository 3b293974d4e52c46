// Package archive reads and writes the ZIP containers exchanged with
// operators.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"
	"golang.org/x/text/encoding/charmap"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
)

const defaultMaxUnpackedBytes = 512 << 20

// Codec unpacks uploads into a scratch directory and packs category folders
// back into a ZIP.
type Codec struct {
	maxUnpackedBytes int64
}

func NewCodec(maxUnpackedBytes int64) *Codec {
	if maxUnpackedBytes <= 0 {
		maxUnpackedBytes = defaultMaxUnpackedBytes
	}
	return &Codec{maxUnpackedBytes: maxUnpackedBytes}
}

// Unpack extracts every regular file of the archive under dir and returns
// their slash separated paths relative to dir, sorted. Entries that would
// escape dir, or that repeat an earlier path, make the whole archive invalid.
func (c *Codec) Unpack(archive []byte, dir string) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open archive", err)
	}

	var written int64
	files := make([]string, 0, len(zr.File))
	seen := make(map[string]struct{}, len(zr.File))
	for _, f := range zr.File {
		name := entryName(f)
		if f.FileInfo().IsDir() || isMetadataEntry(name) {
			continue
		}
		rel, err := safeRelativePath(name)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "open archive", err)
		}
		if _, dup := seen[rel]; dup {
			return nil, domain.WrapError(domain.ErrInvalidInput, "open archive", fmt.Errorf("duplicate member path %q", rel))
		}
		seen[rel] = struct{}{}

		n, err := c.extractFile(f, filepath.Join(dir, filepath.FromSlash(rel)), c.maxUnpackedBytes-written)
		if err != nil {
			return nil, err
		}
		written += n
		files = append(files, rel)
	}
	sort.Strings(files)
	return files, nil
}

func (c *Codec) extractFile(f *zip.File, dst string, budget int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("create member dir: %w", err)
	}
	rc, err := f.Open()
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "open archive member", err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create member file: %w", err)
	}
	defer out.Close()

	n, err := io.Copy(out, io.LimitReader(rc, budget+1))
	if err != nil {
		return n, domain.WrapError(domain.ErrInvalidInput, "read archive member", err)
	}
	if n > budget {
		return n, domain.WrapError(domain.ErrInvalidInput, "open archive", errors.New("archive exceeds unpacked size limit"))
	}
	return n, nil
}

// entryName decodes legacy DOS names; archives built on Russian Windows
// store them in CP866 without the UTF-8 flag.
func entryName(f *zip.File) string {
	if !f.NonUTF8 || utf8.ValidString(f.Name) {
		return f.Name
	}
	decoded, err := charmap.CodePage866.NewDecoder().String(f.Name)
	if err != nil {
		return f.Name
	}
	return decoded
}

func isMetadataEntry(name string) bool {
	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	return strings.HasPrefix(path.Base(name), "._")
}

func safeRelativePath(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("absolute member path %q", name)
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("member path %q escapes archive root", name)
	}
	return clean, nil
}

// Pack writes the listed folders of root into a new ZIP. Folders without
// files are left out.
func (c *Codec) Pack(root string, folders []string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, folder := range folders {
		entries, err := os.ReadDir(filepath.Join(root, folder))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("list folder %s: %w", folder, err)
		}

		files := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Type().IsRegular() {
				files = append(files, e.Name())
			}
		}
		if len(files) == 0 {
			continue
		}

		if _, err := zw.CreateHeader(&zip.FileHeader{Name: folder + "/", Method: zip.Store}); err != nil {
			return nil, fmt.Errorf("write folder entry %s: %w", folder, err)
		}
		for _, name := range files {
			if err := addFile(zw, filepath.Join(root, folder, name), folder+"/"+name); err != nil {
				return nil, err
			}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

func addFile(zw *zip.Writer, src, name string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("header %s: %w", name, err)
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}
