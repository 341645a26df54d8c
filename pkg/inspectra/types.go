package inspectra

import "github.com/webinspectra/go-webinspectra/internal/models"

// Aliases for the model types crossing the public API, so callers
// outside this module can build bundles and read reports.
type (
	Bundle        = models.Bundle
	DOMNode       = models.DOMNode
	SignalNeeds   = models.SignalNeeds
	Report        = models.Report
	Detection     = models.Detection
	CategoryGroup = models.CategoryGroup
)
