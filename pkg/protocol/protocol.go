// Package protocol defines the WebHDFS wire types and operation table.
package protocol

// Operation describes one WebHDFS verb: its op query parameter value, the
// HTTP method it is issued with, and whether the name-node answers with a
// redirect to a data-node for the actual data transfer.
type Operation struct {
	Name     string
	Method   string
	Redirect bool // control call returns a data-node Location
	HasBody  bool // payload is sent to the data-node on the second phase
}

// The WebHDFS operation table. Control-plane operations complete against the
// name-node; Redirect operations are two-phase (name-node, then data-node).
var (
	GetFileStatus     = Operation{Name: "GETFILESTATUS", Method: "GET"}
	ListStatus        = Operation{Name: "LISTSTATUS", Method: "GET"}
	GetContentSummary = Operation{Name: "GETCONTENTSUMMARY", Method: "GET"}
	GetFileChecksum   = Operation{Name: "GETFILECHECKSUM", Method: "GET", Redirect: true}
	GetHomeDirectory  = Operation{Name: "GETHOMEDIRECTORY", Method: "GET"}
	Open              = Operation{Name: "OPEN", Method: "GET", Redirect: true}
	Create            = Operation{Name: "CREATE", Method: "PUT", Redirect: true, HasBody: true}
	Append            = Operation{Name: "APPEND", Method: "POST", Redirect: true, HasBody: true}
	MkDirs            = Operation{Name: "MKDIRS", Method: "PUT"}
	Rename            = Operation{Name: "RENAME", Method: "PUT"}
	SetOwner          = Operation{Name: "SETOWNER", Method: "PUT"}
	SetPermission     = Operation{Name: "SETPERMISSION", Method: "PUT"}
	SetReplication    = Operation{Name: "SETREPLICATION", Method: "PUT"}
	SetTimes          = Operation{Name: "SETTIMES", Method: "PUT"}
	Delete            = Operation{Name: "DELETE", Method: "DELETE"}
)

// FileType discriminates FileStatus entries.
const (
	TypeFile      = "FILE"
	TypeDirectory = "DIRECTORY"
)

// FileStatus is the metadata snapshot the name-node reports for one entry.
type FileStatus struct {
	PathSuffix       string `json:"pathSuffix"`
	Type             string `json:"type"`
	Length           int64  `json:"length"`
	Owner            string `json:"owner"`
	Group            string `json:"group"`
	Permission       string `json:"permission"`
	ModificationTime int64  `json:"modificationTime"` // ms since epoch
	AccessTime       int64  `json:"accessTime"`       // ms since epoch
	BlockSize        int64  `json:"blockSize"`
	Replication      int    `json:"replication"`
}

// IsDir returns true for directory entries.
func (s *FileStatus) IsDir() bool {
	return s.Type == TypeDirectory
}

// FileStatusResponse wraps a single GETFILESTATUS body.
type FileStatusResponse struct {
	FileStatus FileStatus `json:"FileStatus"`
}

// ListStatusResponse wraps a LISTSTATUS body.
type ListStatusResponse struct {
	FileStatuses struct {
		FileStatus []FileStatus `json:"FileStatus"`
	} `json:"FileStatuses"`
}

// ContentSummary aggregates space usage below a directory.
type ContentSummary struct {
	DirectoryCount int64 `json:"directoryCount"`
	FileCount      int64 `json:"fileCount"`
	Length         int64 `json:"length"`
	Quota          int64 `json:"quota"`
	SpaceConsumed  int64 `json:"spaceConsumed"`
	SpaceQuota     int64 `json:"spaceQuota"`
}

// ContentSummaryResponse wraps a GETCONTENTSUMMARY body.
type ContentSummaryResponse struct {
	ContentSummary ContentSummary `json:"ContentSummary"`
}

// FileChecksum is the data-node-computed checksum of a file.
type FileChecksum struct {
	Algorithm string `json:"algorithm"`
	Bytes     string `json:"bytes"`
	Length    int64  `json:"length"`
}

// FileChecksumResponse wraps a GETFILECHECKSUM body.
type FileChecksumResponse struct {
	FileChecksum FileChecksum `json:"FileChecksum"`
}

// BooleanResponse wraps operations that report plain success/failure
// (DELETE, RENAME, MKDIRS, SETREPLICATION).
type BooleanResponse struct {
	Boolean bool `json:"boolean"`
}

// PathResponse wraps a GETHOMEDIRECTORY body.
type PathResponse struct {
	Path string `json:"Path"`
}

// RemoteException is the error body the service returns on failures.
type RemoteException struct {
	Exception     string `json:"exception"`
	JavaClassName string `json:"javaClassName"`
	Message       string `json:"message"`
}

// RemoteExceptionResponse wraps a RemoteException error body.
type RemoteExceptionResponse struct {
	RemoteException RemoteException `json:"RemoteException"`
}

// Exception class names the client gives special treatment.
const (
	ExceptionFileNotFound      = "FileNotFoundException"
	ExceptionFileAlreadyExists = "FileAlreadyExistsException"
	ExceptionStandby           = "StandbyException"
	ExceptionRetriable         = "RetriableException"
	ExceptionSecurity          = "SecurityException"
	ExceptionAccessControl     = "AccessControlException"
)
