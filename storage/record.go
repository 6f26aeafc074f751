package storage

// Status markers written by stage modules. A successful stage sets status to
// its own registry name instead; these are the failure/terminal markers.
const (
	StatusError    = "Error"
	StatusNotFound = "not_found"
	StatusDupeInDL = "dupe_in_DL"
)

// Record is one row of the projects table. DRPID and SourceURL are immutable
// after creation; every other field is nullable and represented by the empty
// string when absent.
type Record struct {
	DRPID           int64
	SourceURL       string
	Status          string
	StatusNotes     string
	Warnings        string
	Errors          string
	DataLumosID     string
	FolderPath      string
	Title           string
	Agency          string
	Office          string
	Summary         string
	Keywords        string
	TimeStart       string
	TimeEnd         string
	DataTypes       string
	Extensions      string
	DownloadDate    string
	CollectionNotes string
	FileSize        string
	PublishedURL    string
}

// column order matches selectColumns in storage.go.
var selectColumns = []string{
	"DRPID",
	"source_url",
	"status",
	"status_notes",
	"warnings",
	"errors",
	"datalumos_id",
	"folder_path",
	"title",
	"agency",
	"office",
	"summary",
	"keywords",
	"time_start",
	"time_end",
	"data_types",
	"extensions",
	"download_date",
	"collection_notes",
	"file_size",
	"published_url",
}

// mutableColumns are the columns Update accepts. DRPID and source_url are
// deliberately absent.
var mutableColumns = map[string]bool{
	"status":           true,
	"status_notes":     true,
	"warnings":         true,
	"errors":           true,
	"datalumos_id":     true,
	"folder_path":      true,
	"title":            true,
	"agency":           true,
	"office":           true,
	"summary":          true,
	"keywords":         true,
	"time_start":       true,
	"time_end":         true,
	"data_types":       true,
	"extensions":       true,
	"download_date":    true,
	"collection_notes": true,
	"file_size":        true,
	"published_url":    true,
}
