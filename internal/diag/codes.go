package diag

import "fmt"

// Code identifies a diagnostic kind. Values use the C# compiler numbering so
// allow-lists written for the reference toolchain keep working.
type Code string

const (
	UnknownCode Code = ""

	// Синтаксис
	SynInvalidToken Code = "CS1519"
	SynExpected     Code = "CS1003"

	// Объявления
	SemaDuplicateType      Code = "CS0101"
	SemaDuplicateMember    Code = "CS0102"
	SemaDuplicateSignature Code = "CS0111"
	SemaUnsafeNotAllowed   Code = "CS0227"

	// Атрибуты
	SemaObsoleteUsage         Code = "CS0618"
	SemaObsoleteOverride      Code = "CS0809"
	SemaCLSCompliantNotNeeded Code = "CS3021"

	IOLoadFileError Code = "RA1001"
)

var codeDescription = map[Code]string{
	UnknownCode:               "Unknown diagnostic",
	SynInvalidToken:           "Invalid token in declaration",
	SynExpected:               "Syntax error, token expected",
	SemaDuplicateType:         "Namespace already contains a definition for the type",
	SemaDuplicateMember:       "Type already contains a definition for the member",
	SemaDuplicateSignature:    "Type already defines a member with the same parameter types",
	SemaUnsafeNotAllowed:      "Unsafe code may only appear if compiling with unsafe allowed",
	SemaObsoleteUsage:         "Member uses an obsolete type",
	SemaObsoleteOverride:      "Obsolete member overrides non-obsolete member",
	SemaCLSCompliantNotNeeded: "CLSCompliant attribute is not needed because the assembly has none",
	IOLoadFileError:           "I/O error while loading file",
}

// ID returns the stable string form of the code.
func (c Code) ID() string {
	if c == UnknownCode {
		return "CS0000"
	}
	return string(c)
}

// Title returns the short description of a known code.
func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
