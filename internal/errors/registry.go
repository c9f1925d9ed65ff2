package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// Error codes.
const (
	CodeConfigUnreadable  = "D001"
	CodeConfigInvalid     = "D002"
	CodeBootUnreadable    = "D010"
	CodeBootMalformed     = "D011"
	CodeBootSource        = "D012"
	CodeMessageInvalid    = "D020"
	CodeUnknownOperation  = "D021"
	CodeArgumentsRequired = "D030"
)

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Configuration (D001-D009)

	CodeConfigUnreadable: {
		Category: CategoryConfig,
		Message:  "Configuration file unreadable",
		Detail:   "The deskroute configuration file exists but could not be read or parsed.",
	},
	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "A configuration value is out of range or not one of the accepted values.",
	},

	// Boot data (D010-D019)

	CodeBootUnreadable: {
		Category: CategoryBoot,
		Message:  "Boot data unreadable",
		Detail:   "The boot document could not be fetched from its source.",
	},
	CodeBootMalformed: {
		Category: CategoryBoot,
		Message:  "Malformed boot data",
		Detail:   "The boot document is not valid JSON or YAML, or a field has the wrong type.",
	},
	CodeBootSource: {
		Category: CategoryBoot,
		Message:  "Unsupported boot source",
		Detail:   "Boot data is read from a local file path or an s3://bucket/key URL.",
	},

	// Session protocol (D020-D029)

	CodeMessageInvalid: {
		Category: CategoryProtocol,
		Message:  "Invalid session message",
		Detail:   "The WebSocket message could not be decoded or is missing a required field.",
	},
	CodeUnknownOperation: {
		Category: CategoryProtocol,
		Message:  "Unknown operation",
		Detail:   "The message op is not one of navigate, back, rename or previous.",
	},

	// CLI (D030-D039)

	CodeArgumentsRequired: {
		Category: CategoryCLI,
		Message:  "Missing arguments",
		Detail:   "The command needs at least one path or route to work on.",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
