package installer

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ArtifactKind is the installer's view of a downloaded file
type ArtifactKind int

const (
	KindOther ArtifactKind = iota
	KindArchive
	KindExecutable
)

func (k ArtifactKind) String() string {
	switch k {
	case KindArchive:
		return "archive"
	case KindExecutable:
		return "executable"
	default:
		return "other"
	}
}

// Format identifies an archive container
type Format string

const (
	FormatNone   Format = ""
	FormatZip    Format = "zip"
	FormatTar    Format = "tar"
	FormatTarGz  Format = "tar.gz"
	FormatTarZst Format = "tar.zst"
)

var extensionFormats = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGz},
	{".tgz", FormatTarGz},
	{".tar.zst", FormatTarZst},
	{".tzst", FormatTarZst},
	{".tar", FormatTar},
	{".zip", FormatZip},
}

var (
	archiveMIMEs = map[string]Format{
		"application/zip":   FormatZip,
		"application/gzip":  FormatTarGz,
		"application/zstd":  FormatTarZst,
		"application/x-tar": FormatTar,
	}
	executableMIMEs = []string{
		"application/vnd.microsoft.portable-executable",
		"application/x-elf",
		"application/x-executable",
		"application/x-mach-binary",
	}
)

// Classify decides how path is installed. The extension wins when it names
// an archive; otherwise the content is sniffed so a misnamed archive is
// still extracted.
func Classify(path, exeExt string) (ArtifactKind, Format) {
	name := strings.ToLower(filepath.Base(path))
	for _, ef := range extensionFormats {
		if strings.HasSuffix(name, ef.suffix) {
			return KindArchive, ef.format
		}
	}

	if mime, err := mimetype.DetectFile(path); err == nil {
		for m := mime; m != nil; m = m.Parent() {
			if f, ok := archiveMIMEs[m.String()]; ok {
				return KindArchive, f
			}
		}
		if matchesAny(mime, executableMIMEs) {
			return KindExecutable, FormatNone
		}
	}

	if exeExt != "" && strings.HasSuffix(name, strings.ToLower(exeExt)) {
		return KindExecutable, FormatNone
	}
	return KindOther, FormatNone
}

func matchesAny(mime *mimetype.MIME, candidates []string) bool {
	for m := mime; m != nil; m = m.Parent() {
		for _, c := range candidates {
			if m.Is(c) {
				return true
			}
		}
	}
	return false
}
