package client

// Data import handler status fields, as named in the statusMessages list.
const (
	fieldStatus                  = "status"
	fieldImportResponse          = "importResponse"
	fieldTimeElapsed             = "Time Elapsed"
	fieldTimeTaken               = "Time taken"
	fieldTotalRowsFetched        = "Total Rows Fetched"
	fieldTotalDocumentsProcessed = "Total Documents Processed"
	fieldTotalDocumentsSkipped   = "Total Documents Skipped"
	fieldCommitted               = "Committed"
	fieldOptimized               = "Optimized"
	fieldRolledback              = "Rolledback"

	statIndexVersion = "indexVersion"
	statNumDocs      = "numDocs"

	// importRunning is the importResponse text while a command is in progress.
	importRunning = "A command is still running..."
)

// ImportStatus represents the response from the data import status command.
// All values are the raw strings reported by the server.
type ImportStatus struct {
	Status                  string
	ImportResponse          string
	TimeElapsed             string
	TimeTaken               string
	TotalRowsFetched        string
	TotalDocumentsProcessed string
	TotalDocumentsSkipped   string
	Committed               string
	Optimized               string
	Rolledback              string
}

// CommandIsRunning reports whether the server says an import is still running.
func (s *ImportStatus) CommandIsRunning() bool {
	return s.ImportResponse == importRunning
}

// IndexStats holds the searcher statistics of a core.
type IndexStats struct {
	IndexVersion string
	NumDocs      int64
}
