package source

type (
	// FileID uniquely identifies a source file within a FileSet.
	FileID uint32
	// FileFlags encodes metadata about a source file.
	FileFlags uint8
)

const (
	// FileVirtual indicates the file was added from memory (test, stdin, etc.).
	FileVirtual FileFlags = 1 << iota
	// FileHadBOM marks a UTF-8 file whose byte order mark was stripped on load.
	FileHadBOM
	// FileUTF16LE marks a file decoded from UTF-16 little endian.
	FileUTF16LE
	// FileUTF16BE marks a file decoded from UTF-16 big endian.
	FileUTF16BE
)

// File captures metadata and content for a single source file.
// Content is always UTF-8; line terminators are kept exactly as they were on disk.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol represents a human-readable position in a source file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}
