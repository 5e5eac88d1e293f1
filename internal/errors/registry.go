package errors

// Template defines a registered error code.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// Configuration (R100-R199)

	"R100": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "The file passed with --config does not exist.",
	},
	"R101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be parsed.",
	},
	"R102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
	"R103": {
		Category: CategoryConfig,
		Message:  "Unsupported configuration format",
		Detail:   "Configuration files must end in .yaml, .yml or .json.",
	},

	// Scripts (R200-R299)

	"R200": {
		Category: CategoryScript,
		Message:  "Script file not found",
	},
	"R201": {
		Category: CategoryScript,
		Message:  "Invalid script",
		Detail:   "The script could not be parsed as YAML.",
	},
	"R202": {
		Category: CategoryScript,
		Message:  "Unknown view type",
	},
	"R203": {
		Category: CategoryScript,
		Message:  "Unknown view source",
		Detail:   "A view may only read from the root collection or from a view declared before it.",
	},
	"R204": {
		Category: CategoryScript,
		Message:  "Unknown function",
	},
	"R205": {
		Category: CategoryScript,
		Message:  "Invalid step",
	},
	"R206": {
		Category: CategoryScript,
		Message:  "Duplicate name",
		Detail:   "Every view needs a name distinct from the root collection and the other views.",
	},

	// Playback (R300-R399)

	"R300": {
		Category: CategoryRuntime,
		Message:  "Step failed",
	},
	"R301": {
		Category: CategoryVerify,
		Message:  "View diverged from recompute",
		Detail:   "After the step, the view's content differs from evaluating its definition from scratch.",
	},

	// Commands (R400-R499)

	"R400": {
		Category: CategoryCLI,
		Message:  "Server failed",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
