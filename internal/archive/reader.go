package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/zorak1103/restorekit/internal/reentry"
)

const (
	memberSuffix = ".sql"
	sniffSize    = 512
	customMagic  = "PGDMP"
	tarMagic     = "ustar"
	tarMagicOff  = 257
)

// memberSource yields the body of an entry.
type memberSource interface {
	body(e Entry) ([]byte, error)
}

// Open implements Engine. path names a directory or tar file; an empty path
// reads a tar archive from standard input.
func (b *Builtin) Open(_ context.Context, r *reentry.Run, archivePath string, format Format) (Archive, error) {
	a := &archive{
		run:       r,
		path:      archivePath,
		stdout:    b.stdout(),
		connector: b.connector(),
	}

	if format == FormatUnknown && archivePath != "" {
		detected, err := detectFormat(archivePath)
		if err != nil {
			return nil, r.Fatal(moduleArchiver, "could not open input file \"%s\": %v\n", archivePath, err)
		}
		format = detected
	}

	switch format {
	case FormatDirectory:
		if archivePath == "" {
			return nil, r.Fatal(moduleArchiver, "directory archives cannot be read from standard input\n")
		}
		return opened(a, a.openDirectory())
	case FormatTar:
		if archivePath == "" {
			return opened(a, a.openTar(b.stdin()))
		}
		return opened(a, a.openTar(nil))
	case FormatCustom:
		return nil, r.Fatal(moduleArchiver, "custom-format archives are not supported by this engine\n")
	default:
		if archivePath != "" {
			return nil, r.Fatal(moduleArchiver, "input file \"%s\" does not appear to be a valid archive\n", archivePath)
		}
		return opened(a, a.openStdin(b.stdin()))
	}
}

func opened(a *archive, err error) (Archive, error) {
	if err != nil {
		return nil, err
	}
	return a, nil
}

func detectFormat(archivePath string) (Format, error) {
	info, err := os.Stat(archivePath)
	if err != nil {
		return FormatUnknown, err
	}
	if info.IsDir() {
		return FormatDirectory, nil
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return FormatUnknown, err
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, sniffSize)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, err
	}
	return sniff(header[:n]), nil
}

func sniff(header []byte) Format {
	if bytes.HasPrefix(header, []byte(customMagic)) {
		return FormatCustom
	}
	if len(header) >= tarMagicOff+len(tarMagic) &&
		string(header[tarMagicOff:tarMagicOff+len(tarMagic)]) == tarMagic {
		return FormatTar
	}
	return FormatUnknown
}

// openStdin detects the format of standard input before reading it.
func (a *archive) openStdin(stdin io.Reader) error {
	in := bufio.NewReaderSize(stdin, sniffSize)
	header, err := in.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return a.run.Fatal(moduleArchiver, "could not read input file: %v\n", err)
	}

	switch sniff(header) {
	case FormatTar:
		return a.openTar(in)
	case FormatCustom:
		return a.run.Fatal(moduleArchiver, "custom-format archives are not supported by this engine\n")
	default:
		return a.run.Fatal(moduleArchiver, "input file does not appear to be a valid archive\n")
	}
}

type directorySource struct {
	dir string
}

func (s directorySource) body(e Entry) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(e.Name)))
}

func (a *archive) openDirectory() error {
	a.format = FormatDirectory

	dirEntries, err := os.ReadDir(a.path)
	if err != nil {
		return a.run.Fatal(moduleArchiver, "could not open input directory \"%s\": %v\n", a.path, err)
	}

	for _, de := range dirEntries {
		if !de.Type().IsRegular() || !strings.HasSuffix(de.Name(), memberSuffix) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return a.run.Fatal(moduleArchiver, "could not stat file \"%s\": %v\n", de.Name(), err)
		}
		a.entries = append(a.entries, Entry{
			ID:   len(a.entries) + 1,
			Name: de.Name(),
			Size: info.Size(),
		})
	}

	if len(a.entries) == 0 {
		return a.run.Fatal(moduleArchiver, "directory \"%s\" does not appear to be a valid archive (no %s members)\n",
			a.path, memberSuffix)
	}
	a.source = directorySource{dir: a.path}
	return nil
}

type tarSource struct {
	bodies map[int][]byte
}

func (s tarSource) body(e Entry) ([]byte, error) {
	b, ok := s.bodies[e.ID]
	if !ok {
		return nil, fmt.Errorf("no data for member %q", e.Name)
	}
	return b, nil
}

// openTar reads every member into memory; a tar stream from a pipe cannot be
// revisited. A nil in opens the archive file.
func (a *archive) openTar(in io.Reader) error {
	a.format = FormatTar

	if in == nil {
		f, err := os.Open(a.path)
		if err != nil {
			return a.run.Fatal(moduleArchiver, "could not open input file \"%s\": %v\n", a.path, err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	src := tarSource{bodies: make(map[int][]byte)}
	tr := tar.NewReader(in)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return a.run.Fatal(moduleArchiver, "could not read tar header: %v\n", err)
		}
		if hdr.Typeflag != tar.TypeReg || !strings.HasSuffix(hdr.Name, memberSuffix) {
			continue
		}

		body, err := io.ReadAll(tr)
		if err != nil {
			return a.run.Fatal(moduleArchiver, "could not read tar member \"%s\": %v\n", hdr.Name, err)
		}
		e := Entry{
			ID:   len(a.entries) + 1,
			Name: path.Clean(hdr.Name),
			Size: int64(len(body)),
		}
		a.entries = append(a.entries, e)
		src.bodies[e.ID] = body
	}

	if len(a.entries) == 0 {
		return a.run.Fatal(moduleArchiver, "input file \"%s\" does not appear to be a valid archive (no %s members)\n",
			a.name(), memberSuffix)
	}
	a.source = src
	return nil
}

func (a *archive) body(e Entry) ([]byte, error) {
	if a.source == nil {
		return nil, errors.New("archive is closed")
	}
	return a.source.body(e)
}
