package csharp

import (
	"strconv"
	"strings"

	"refaudit/internal/symbols"
)

// Documentation comment ID prefixes.
const (
	prefixNamespace = "N:"
	prefixType      = "T:"
	prefixMethod    = "M:"
	prefixProperty  = "P:"
	prefixField     = "F:"
	prefixEvent     = "E:"
)

var predefinedTypes = map[string]string{
	"bool":    "System.Boolean",
	"byte":    "System.Byte",
	"sbyte":   "System.SByte",
	"char":    "System.Char",
	"decimal": "System.Decimal",
	"double":  "System.Double",
	"float":   "System.Single",
	"int":     "System.Int32",
	"uint":    "System.UInt32",
	"long":    "System.Int64",
	"ulong":   "System.UInt64",
	"short":   "System.Int16",
	"ushort":  "System.UInt16",
	"nint":    "System.IntPtr",
	"nuint":   "System.UIntPtr",
	"object":  "System.Object",
	"dynamic": "System.Object",
	"string":  "System.String",
	"void":    "System.Void",
}

// Value types outside the compilation that ref sources commonly write with
// a trailing '?'. Anything unresolved and absent here is taken as a
// reference type, whose nullable annotation does not show in the ID.
var knownValueTypes = map[string]struct{}{
	"Boolean": {}, "Byte": {}, "SByte": {}, "Char": {}, "Decimal": {}, "Double": {},
	"Single": {}, "Int16": {}, "UInt16": {}, "Int32": {}, "UInt32": {}, "Int64": {},
	"UInt64": {}, "IntPtr": {}, "UIntPtr": {}, "Half": {}, "Int128": {}, "UInt128": {},
	"DateTime": {}, "DateTimeOffset": {}, "TimeSpan": {}, "DateOnly": {}, "TimeOnly": {},
	"Guid": {}, "CancellationToken": {}, "KeyValuePair": {}, "ValueTuple": {},
	"Span": {}, "ReadOnlySpan": {}, "Memory": {}, "ReadOnlyMemory": {},
	"ArraySegment": {}, "Index": {}, "Range": {}, "ValueTask": {},
	"RuntimeTypeHandle": {}, "RuntimeMethodHandle": {}, "RuntimeFieldHandle": {},
}

var unaryOperators = map[string]string{
	"+":     "op_UnaryPlus",
	"-":     "op_UnaryNegation",
	"!":     "op_LogicalNot",
	"~":     "op_OnesComplement",
	"++":    "op_Increment",
	"--":    "op_Decrement",
	"true":  "op_True",
	"false": "op_False",
}

var binaryOperators = map[string]string{
	"+":   "op_Addition",
	"-":   "op_Subtraction",
	"*":   "op_Multiply",
	"/":   "op_Division",
	"%":   "op_Modulus",
	"&":   "op_BitwiseAnd",
	"|":   "op_BitwiseOr",
	"^":   "op_ExclusiveOr",
	"<<":  "op_LeftShift",
	">>":  "op_RightShift",
	">>>": "op_UnsignedRightShift",
	"==":  "op_Equality",
	"!=":  "op_Inequality",
	"<":   "op_LessThan",
	">":   "op_GreaterThan",
	"<=":  "op_LessThanOrEqual",
	">=":  "op_GreaterThanOrEqual",
}

// OperatorName returns the metadata name of a user-defined operator, such
// as op_Addition for a binary '+'.
func OperatorName(token string, params int, checked bool) string {
	var name string
	if params == 1 {
		name = unaryOperators[token]
	}
	if name == "" {
		name = binaryOperators[token]
	}
	if name == "" {
		name = unaryOperators[token]
	}
	if name == "" {
		return "op_" + token
	}
	if checked {
		name = "op_Checked" + strings.TrimPrefix(name, "op_")
	}
	return name
}

// ConversionName returns op_Implicit or op_Explicit.
func ConversionName(keyword string, checked bool) string {
	switch {
	case keyword == "implicit":
		return "op_Implicit"
	case checked:
		return "op_CheckedExplicit"
	default:
		return "op_Explicit"
	}
}

// arity appends the generic arity suffix used by type identifiers.
func typeArity(name string, n int) string {
	if n == 0 {
		return name
	}
	return name + "`" + strconv.Itoa(n)
}

func methodArity(name string, n int) string {
	if n == 0 {
		return name
	}
	return name + "``" + strconv.Itoa(n)
}

func typeParamRef(i int) string   { return "`" + strconv.Itoa(i) }
func methodParamRef(i int) string { return "``" + strconv.Itoa(i) }

func qualify(outer, name string) string {
	if outer == "" {
		return name
	}
	return outer + "." + name
}

// arraySuffix renders an array rank: "[]" for vectors, "[0:,0:]" otherwise.
func arraySuffix(rank int) string {
	if rank <= 1 {
		return "[]"
	}
	return "[" + strings.Repeat("0:,", rank-1) + "0:]"
}

// memberPrefix maps a member kind to its identifier prefix.
func memberPrefix(kind symbols.Kind) string {
	switch {
	case kind == symbols.KindNamespace:
		return prefixNamespace
	case kind.IsType():
		return prefixType
	case kind.IsMethodLike():
		return prefixMethod
	case kind == symbols.KindProperty || kind == symbols.KindIndexer:
		return prefixProperty
	case kind == symbols.KindEvent:
		return prefixEvent
	default:
		return prefixField
	}
}

// explicitName turns an interface name into the prefix of an explicit
// implementation: "System.IDisposable" becomes "System#IDisposable#".
func explicitName(iface string) string {
	r := strings.NewReplacer(".", "#", ",", "@", "<", "{", ">", "}")
	return r.Replace(iface) + "#"
}
