// Package pgerror builds PostgreSQL wire-protocol ErrorResponse ('E')
// frames, the gateway's own way of reporting protocol violations and
// authentication failures back to a client.
package pgerror

import (
	"encoding/binary"
	"strconv"
)

// Severity is the ErrorResponse 'S' field.
type Severity int

const (
	Error Severity = iota
	Fatal
	Panic
	Warning
	Notice
	Info
	Debug
	Log
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	case Panic:
		return "PANIC"
	case Warning:
		return "WARNING"
	case Notice:
		return "NOTICE"
	case Info:
		return "INFO"
	case Debug:
		return "DEBUG"
	case Log:
		return "LOG"
	default:
		return "ERROR"
	}
}

// Response is a PostgreSQL ErrorResponse, built field by field and
// serialized to a wire frame with ToBytes.
type Response struct {
	Severity Severity
	Code     string // SQLSTATE, 5 chars
	Message  string

	Detail           string
	Hint             string
	Position         uint32
	HasPosition      bool
	InternalPosition uint32
	HasInternalPos   bool
	InternalQuery    string
	Where            string
	SchemaName       string
	TableName        string
	ColumnName       string
	DataTypeName     string
	ConstraintName   string
	File             string
	Line             uint32
	HasLine          bool
	Routine          string
}

// New builds a minimal Response with just severity, SQLSTATE code, and
// message; use the With* methods to attach optional fields.
func New(severity Severity, code, message string) *Response {
	return &Response{Severity: severity, Code: code, Message: message}
}

// InternalError builds a generic "XX000" ERROR response.
func InternalError(message string) *Response {
	return New(Error, "XX000", message)
}

// ProtocolViolation builds a "08P01" FATAL response, for frames that fail
// wire-level validation.
func ProtocolViolation(message string) *Response {
	return New(Fatal, "08P01", message)
}

// InvalidPassword builds a "28P01" FATAL response for authentication
// failure.
func InvalidPassword(message string) *Response {
	return New(Fatal, "28P01", message)
}

func (r *Response) WithDetail(v string) *Response         { r.Detail = v; return r }
func (r *Response) WithHint(v string) *Response           { r.Hint = v; return r }
func (r *Response) WithWhere(v string) *Response          { r.Where = v; return r }
func (r *Response) WithFile(v string) *Response           { r.File = v; return r }
func (r *Response) WithRoutine(v string) *Response        { r.Routine = v; return r }
func (r *Response) WithSchema(v string) *Response         { r.SchemaName = v; return r }
func (r *Response) WithTable(v string) *Response          { r.TableName = v; return r }
func (r *Response) WithColumn(v string) *Response         { r.ColumnName = v; return r }
func (r *Response) WithDataType(v string) *Response       { r.DataTypeName = v; return r }
func (r *Response) WithConstraint(v string) *Response     { r.ConstraintName = v; return r }
func (r *Response) WithInternalQuery(v string) *Response  { r.InternalQuery = v; return r }

func (r *Response) WithPosition(v uint32) *Response {
	r.Position, r.HasPosition = v, true
	return r
}

func (r *Response) WithInternalPosition(v uint32) *Response {
	r.InternalPosition, r.HasInternalPos = v, true
	return r
}

func (r *Response) WithLine(v uint32) *Response {
	r.Line, r.HasLine = v, true
	return r
}

// ToBytes serializes the ErrorResponse as a complete 'E' wire frame.
func (r *Response) ToBytes() []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, 'E', 0, 0, 0, 0) // tag + length placeholder

	buf = putField(buf, 'S', r.Severity.String())
	buf = putField(buf, 'C', r.Code)
	buf = putField(buf, 'M', r.Message)

	if r.Detail != "" {
		buf = putField(buf, 'D', r.Detail)
	}
	if r.Hint != "" {
		buf = putField(buf, 'H', r.Hint)
	}
	if r.HasPosition {
		buf = putField(buf, 'P', strconv.FormatUint(uint64(r.Position), 10))
	}
	if r.HasInternalPos {
		buf = putField(buf, 'p', strconv.FormatUint(uint64(r.InternalPosition), 10))
	}
	if r.InternalQuery != "" {
		buf = putField(buf, 'q', r.InternalQuery)
	}
	if r.Where != "" {
		buf = putField(buf, 'W', r.Where)
	}
	if r.SchemaName != "" {
		buf = putField(buf, 's', r.SchemaName)
	}
	if r.TableName != "" {
		buf = putField(buf, 't', r.TableName)
	}
	if r.ColumnName != "" {
		buf = putField(buf, 'c', r.ColumnName)
	}
	if r.DataTypeName != "" {
		buf = putField(buf, 'd', r.DataTypeName)
	}
	if r.ConstraintName != "" {
		buf = putField(buf, 'n', r.ConstraintName)
	}
	if r.File != "" {
		buf = putField(buf, 'F', r.File)
	}
	if r.HasLine {
		buf = putField(buf, 'L', strconv.FormatUint(uint64(r.Line), 10))
	}
	if r.Routine != "" {
		buf = putField(buf, 'R', r.Routine)
	}

	buf = append(buf, 0) // terminator

	binary.BigEndian.PutUint32(buf[1:5], uint32(len(buf)-1))
	return buf
}

func putField(buf []byte, tag byte, val string) []byte {
	buf = append(buf, tag)
	buf = append(buf, val...)
	return append(buf, 0)
}
