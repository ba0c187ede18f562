package format

// Dialect names the markup dialect an engine parses.
type Dialect string

const (
	// DialectMarkdown is Markdown with the registered extensions.
	DialectMarkdown Dialect = "markdown"
	// DialectCommonMark is plain CommonMark.
	DialectCommonMark Dialect = "commonmark"
)

// ExtensionID identifies an engine extension.
type ExtensionID string

const (
	ExtTable         ExtensionID = "table"
	ExtStrikethrough ExtensionID = "strikethrough"
	ExtTaskList      ExtensionID = "tasklist"
	ExtFootnote      ExtensionID = "footnote"
	ExtFrontMatter   ExtensionID = "frontmatter"
	ExtHeadingSpace  ExtensionID = "heading-space"
)

// Config is the fixed configuration of a Service.
type Config struct {
	Dialect    Dialect
	Extensions []ExtensionID
}

// DefaultExtensions returns the pre-registered extensions for d.
func DefaultExtensions(d Dialect) []ExtensionID {
	switch d {
	case DialectMarkdown:
		return []ExtensionID{
			ExtTable,
			ExtStrikethrough,
			ExtTaskList,
			ExtFootnote,
			ExtFrontMatter,
			ExtHeadingSpace,
		}
	default:
		return nil
	}
}

// DefaultConfig returns the Markdown dialect with its pre-registered extensions.
func DefaultConfig() Config {
	return Config{
		Dialect:    DialectMarkdown,
		Extensions: DefaultExtensions(DialectMarkdown),
	}
}
