package objectstore

// Metadata is the object store's file representation, returned by metadata
// probes (idempotency lookup, preview-wait poll, wakeup job), per spec §4.2/§4.9.
type Metadata struct {
	FileID        string `json:"id"`
	ViewURL       string `json:"viewUrl"`
	Status        string `json:"status"`
	HasThumbnail  bool   `json:"hasThumbnail"`
	MD5           string `json:"md5"`
	Size          int64  `json:"size"`
	ExternalTagID string `json:"externalRecordingId"`
}

// FolderInfo is a folder lookup/creation result.
type FolderInfo struct {
	FolderID string `json:"id"`
	Name     string `json:"name"`
}

type initiateUploadRequest struct {
	Name     string            `json:"name"`
	FolderID string            `json:"folderId"`
	Size     int64             `json:"size"`
	Tags     map[string]string `json:"tags"`
}

type initiateUploadResponse struct {
	UploadURL string `json:"uploadUrl"`
}

type ensureFolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
}

type grantPermissionsRequest struct {
	Role             string `json:"role"`
	AnyoneWithLink   bool   `json:"anyoneWithLink"`
	CopyRequiresAuth bool   `json:"copyRequiresAuth"`
}

type findByTagResponse struct {
	Files []Metadata `json:"files"`
}
