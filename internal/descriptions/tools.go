package descriptions

import "sort"

// Tool descriptions with practical examples and workflows

const (
	// Session lifecycle
	SignOpenDescription = `Open a PDF for filling and signing and start a signing session.

**When to use:** First step of every signing workflow. Returns the session id used by every other sign_* tool.

**What you get:** The session id, the page sizes in canvas pixels and the detected fields with their ids, kinds, canvas rectangles and options.

**Examples:**
• Start signing a contract: "Open contracts/lease.pdf so I can fill in the tenant name and sign"
• Inspect a form: "Open onboarding.pdf and tell me which fields it has"

**Common workflows:**
1. Fill and sign: sign_open → sign_set_value (each field) → sign_save_signature → sign_complete
2. Free signature: sign_open → sign_place_signature → sign_render_page to check → sign_complete

**Best practices:** Paths are resolved against the configured PDF directory. Close sessions you no longer need with sign_close.`

	SignFieldsDescription = `List the fields of an open signing session with their current values.

**When to use:** To find a field id by name, or to see which fields are still empty before completing.

**Examples:**
• "Which fields in the lease are still empty?"
• "What are the choices of the Country dropdown?"

**Best practices:** Field ids are stable for the life of the session; names may repeat across pages.`

	SignSetValueDescription = `Set or clear the value of a field.

**When to use:** Filling text fields, ticking checkboxes and choosing dropdown options.

**Value rules:**
• text and dropdown fields take any text; dropdown values that are not one of the options are kept as free text
• checkbox fields take true/false (also "yes", "on", "1")
• an empty value clears the field
• signature fields are filled with sign_save_signature instead

**Examples:**
• "Set Tenant Name to Jane Doe"
• "Tick the Agree checkbox"`

	SignPointerDescription = `Send a pointer event (down, move, up) at canvas coordinates on a page.

**When to use:** Replaying what a user does on the page canvas: clicking a field to edit it, clicking a signature field to start signature capture, or dragging a placed signature (down on it, move, up).

**What you get:** The outcome of the event, such as begin_edit, open_signature_capture, begin_drag, dragged, dropped or cleared.

**Best practices:** Coordinates are canvas pixels with the origin at the top-left of the page canvas. A drag may end on another page.`

	SignSaveSignatureDescription = `Store a signature image for a signature field.

**When to use:** After sign_pointer reported open_signature_capture, or whenever a signature field should be signed.

**Input:** Either a data URI (data:image/png;base64,...) or a path to a PNG or JPEG file inside the PDF directory.

**Best practices:** Transparent PNGs give the cleanest result. The image is fitted into the field keeping its aspect ratio.`

	SignPlaceSignatureDescription = `Place a free signature image anywhere on a page.

**When to use:** Documents without signature fields, or initials on every page.

**Input:** Page index, canvas position of the top-left corner, optional size in canvas pixels and the image as a data URI or file path.

**Best practices:** Placed signatures can be dragged with sign_pointer and removed with sign_remove_signature.`

	SignRemoveSignatureDescription = `Remove a placed signature overlay by id.

**When to use:** Undoing a misplaced free signature.`

	SignPreviewDescription = `Toggle preview mode.

**When to use:** To see the document as it will look once completed. Preview hides field boxes and shows the entered values as final content.

**Best practices:** Preview cannot be toggled while a signature is being dragged.`

	SignCloseEditorDescription = `Close the open field editor without changing the value.`

	SignRenderPageDescription = `Render a page canvas as a PNG image.

**When to use:** To look at the page with field boxes, values and signatures before completing.

**Examples:**
• "Show me page 1 of the lease after filling it"
• "Render the last page to check the signature position"`

	SignStatusDescription = `Report the progress of a signing session.

**What you get:** Interaction mode, total fields, filled fields, signature count and whether a rebuild is running.`

	SignCompleteDescription = `Finish the session and write the signed PDF.

**When to use:** After every field is filled and every signature is placed.

**What you get:** The location of the written document, its size and the final summary. Per-field problems are listed without failing the whole document.

**Best practices:** Completion is refused when nothing was filled and no signature was placed. The original document is never modified.`

	SignCloseDescription = `Close a signing session and release its memory.`

	SignServerInfoDescription = `Get server status, configuration and the available signing tools.

**When to use:** Discovering the PDF and output directories, limits and how many sessions are open.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"sign_open":             SignOpenDescription,
	"sign_fields":           SignFieldsDescription,
	"sign_set_value":        SignSetValueDescription,
	"sign_pointer":          SignPointerDescription,
	"sign_save_signature":   SignSaveSignatureDescription,
	"sign_place_signature":  SignPlaceSignatureDescription,
	"sign_remove_signature": SignRemoveSignatureDescription,
	"sign_preview":          SignPreviewDescription,
	"sign_close_editor":     SignCloseEditorDescription,
	"sign_render_page":      SignRenderPageDescription,
	"sign_status":           SignStatusDescription,
	"sign_complete":         SignCompleteDescription,
	"sign_close":            SignCloseDescription,
	"sign_server_info":      SignServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the tool names in alphabetical order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
