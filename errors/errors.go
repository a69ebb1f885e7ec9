// Package errors defines the error handling used throughout vpk.
package errors

import (
	"bytes"
	"fmt"
)

// Error is the type that implements the error interface.
// It contains a number of fields, each of different type.
// An Error value may leave some values unset.
type Error struct {
	// Path is the filesystem or archive-relative path the error pertains to.
	Path Path
	// Op is the operation being performed, usually the name of the method
	// being invoked (Open, Pack, Check, ReadRange, ...).
	Op string
	// Kind is the class of error, such as a bad magic number or a missing
	// entry, or Other if its class is unknown or irrelevant.
	Kind Kind
	// Offset is the byte offset within the dir file an ILLEGAL_TERMINATOR
	// was found at, when applicable.
	Offset int64
	// Value is the malformed value associated with the error, e.g. the
	// terminator word actually read.
	Value uint16
	// Argument is the name of an illegal argument, for Kind == IllegalArgument.
	Argument string
	// Given is the offending value of Argument, formatted as text.
	Given string
	// The underlying error that triggered this one, if any.
	Err error
}

var (
	_       error = (*Error)(nil)
	zeroErr Error
)

// Separator is the string used to separate nested errors. By default,
// to make errors easier on the eye, nested errors are indented on a
// new line.
var Separator = ":\n\t"

// Path is the type of a filesystem or archive-relative path, wrapped
// so E can distinguish it from the Op string.
type Path string

// Kind defines the kind of error this is, mirroring the taxonomy every
// failure in the core library is tagged with.
type Kind uint8

// Kinds of errors.
const (
	Other              Kind = iota // Unclassified error. Not printed in the error message.
	IO                             // External I/O error such as a read/write/seek failure.
	StringDecode                   // A NUL-terminated string ran off the end of its section.
	IllegalMagic                   // The dir file's magic number did not match.
	UnsupportedVersion             // The header named a version this library does not read (0, or above 2).
	IllegalTerminator              // A file record's fixed terminator word was wrong.
	EntryNotADir                   // A path component that should be a directory is a file.
	NoSuchEntry                    // A path does not resolve to any entry.
	IllegalArgument                // A caller-supplied argument was out of range or malformed.
	UnexpectedEOF                  // The file ended before a fixed-size structure could be read.
	SanityCheckFailed              // An internal consistency check (CRC, MD5, alignment) failed.
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case IO:
		return "I/O error"
	case StringDecode:
		return "string decode error"
	case IllegalMagic:
		return "illegal magic number"
	case UnsupportedVersion:
		return "unsupported version"
	case IllegalTerminator:
		return "illegal terminator"
	case EntryNotADir:
		return "entry is not a directory"
	case NoSuchEntry:
		return "no such entry"
	case IllegalArgument:
		return "illegal argument"
	case UnexpectedEOF:
		return "unexpected end of file"
	case SanityCheckFailed:
		return "sanity check failed"
	}
	return "unknown error kind"
}

// ByteOffset tags an error with a byte offset. Wrap a plain int64 in
// this type to pass it to E.
type ByteOffset int64

// Value tags an error with a malformed 16-bit word, such as a
// terminator. Wrap a plain uint16 in this type to pass it to E.
type Value uint16

// Argument tags the name of an offending argument passed to E.
type Argument string

// Given tags the offending value (already formatted as text) of an
// Argument passed to E.
type Given string

// E builds an error value from its arguments. The type of each
// argument determines its meaning. If more than one argument of a
// given type is presented, only the last one is recorded.
//
// The types are:
//	errors.Path
//		The path the error pertains to.
//	string
//		The operation being performed (Open, Pack, Check, ...).
//	errors.Kind
//		The class of error.
//	errors.ByteOffset, errors.Value, errors.Argument, errors.Given
//		Kind-specific detail.
//	error
//		The underlying error that triggered this one.
//
// If Kind is not specified or Other, it is set to the Kind of the
// underlying error, if any.
func E(args ...interface{}) error {
	if len(args) == 0 {
		return nil
	}
	e := &Error{}
	for _, arg := range args {
		switch arg := arg.(type) {
		case Path:
			e.Path = arg
		case string:
			e.Op = arg
		case Kind:
			e.Kind = arg
		case ByteOffset:
			e.Offset = int64(arg)
		case Value:
			e.Value = uint16(arg)
		case Argument:
			e.Argument = string(arg)
		case Given:
			e.Given = string(arg)
		case *Error:
			cp := *arg
			e.Err = &cp
		case error:
			e.Err = arg
		default:
			return Errorf("errors.E: bad call with arg of type %T: %v", arg, arg)
		}
	}
	prev, ok := e.Err.(*Error)
	if !ok {
		return e
	}
	if prev.Path == e.Path {
		prev.Path = ""
	}
	if prev.Kind == e.Kind {
		prev.Kind = Other
	}
	if e.Kind == Other {
		e.Kind = prev.Kind
		prev.Kind = Other
		if e.Kind == IllegalTerminator {
			// Value/Offset are IllegalTerminator's Kind-specific detail;
			// carry them up along with the Kind they describe, or a
			// wrapping call that re-derives Kind from a nested error
			// would otherwise leave them stranded on a demoted prev
			// whose own Kind no longer prints them.
			if e.Value == 0 {
				e.Value = prev.Value
			}
			if e.Offset == 0 {
				e.Offset = prev.Offset
			}
		}
	}
	return e
}

// pad appends str to the buffer if the buffer already has some data.
func pad(b *bytes.Buffer, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) Error() string {
	b := new(bytes.Buffer)
	if e.Path != "" {
		b.WriteString(string(e.Path))
	}
	if e.Op != "" {
		pad(b, ": ")
		b.WriteString(e.Op)
	}
	if e.Kind != Other {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}
	if e.Argument != "" {
		pad(b, ": ")
		b.WriteString(fmt.Sprintf("argument %s=%s", e.Argument, e.Given))
	}
	if e.Kind == IllegalTerminator {
		pad(b, ": ")
		b.WriteString(fmt.Sprintf("got %#x at offset %d", e.Value, e.Offset))
	}
	if e.Err != nil {
		if prevErr, ok := e.Err.(*Error); ok {
			if *prevErr != zeroErr {
				pad(b, Separator)
				b.WriteString(e.Err.Error())
			}
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

// Is reports whether err is an *Error of the given Kind.
func Is(kind Kind, err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	if e.Kind != Other {
		return e.Kind == kind
	}
	if e.Err != nil {
		return Is(kind, e.Err)
	}
	return false
}

// Str returns an error that formats as the given text. It is intended
// to be used as the error-typed argument to E.
func Str(text string) error {
	return &errorString{text}
}

type errorString struct {
	s string
}

func (e *errorString) Error() string {
	return e.s
}

// Errorf is equivalent to fmt.Errorf but returns the same concrete
// type as Str, so clients that only import this package can still
// build plain text errors.
func Errorf(format string, args ...interface{}) error {
	return &errorString{fmt.Sprintf(format, args...)}
}
