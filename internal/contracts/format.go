package contracts

// FormatOptions is the configuration handed to a formatting engine on every call.
type FormatOptions struct {
	// Parser names the markup dialect the engine must parse.
	Parser string `json:"parser"`
	// Plugins lists the extension identifiers the engine must enable.
	Plugins []string `json:"plugins"`
}
