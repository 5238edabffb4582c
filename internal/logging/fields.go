package logging

// Field names shared by the editor packages.
const (
	FieldError      = "error"
	FieldPath       = "path"
	FieldCharset    = "charset"
	FieldState      = "state"
	FieldKind       = "kind"
	FieldTextOffset = "text_offset"
	FieldTextLength = "text_length"
	FieldByteOffset = "byte_offset"
	FieldByteLength = "byte_length"
	FieldSize       = "size"
	FieldThreshold  = "threshold"
	FieldPreview    = "preview"
	FieldBinary     = "binary"
	FieldQuery      = "query"
	FieldMatches    = "matches"
	FieldLimit      = "limit"
	FieldGeneration = "generation"
)
