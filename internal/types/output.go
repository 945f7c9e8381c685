package types

// TableRenderer is a result that prints as one table
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
	EmptyMessage() string
}

// TableRenderable converts a result into a TableRenderer
type TableRenderable interface {
	AsTableRenderer() TableRenderer
}

// MultiTableRenderable is a result that prints as several tables
type MultiTableRenderable interface {
	Tables() []TableRenderer
}
