package model

// Response is the envelope every JSON route shares.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type CreateFolderRequest struct {
	ParentFolderID string `json:"parentFolderId"`
	Name           string `json:"name"`
}

type SetupDriveRequest struct {
	// FriendsEmails is required; an explicit empty list invites no one.
	FriendsEmails *[]string `json:"friendsEmails"`
}

type AddCollaboratorsRequest struct {
	DriveID string   `json:"driveId"`
	Emails  []string `json:"emails"`
}

// ListFilesResponse always carries both arrays, empty on failure.
type ListFilesResponse struct {
	Files   []DriveFile `json:"files"`
	Folders []DriveFile `json:"folders"`
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
}

type CreateFolderResponse struct {
	Folder  *DriveFile `json:"folder"`
	Success bool       `json:"success"`
	Message string     `json:"message"`
}

// UploadFileResponse reports the first stored file in File and every stored
// file, in upload order, in Files.
type UploadFileResponse struct {
	File    *DriveFile  `json:"file,omitempty"`
	Files   []DriveFile `json:"files"`
	Success bool        `json:"success"`
	Message string      `json:"message"`
}

type FileLinkResponse struct {
	WebViewLink    string `json:"webViewLink,omitempty"`
	WebContentLink string `json:"webContentLink,omitempty"`
	Name           string `json:"name"`
	Success        bool   `json:"success"`
}

type SetupDriveResponse struct {
	DriveID string        `json:"driveId"`
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Results []GrantResult `json:"results"`
}

type GrantResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Results []GrantResult `json:"results"`
}

type SessionResponse struct {
	Success       bool   `json:"success"`
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	Error         string `json:"error,omitempty"`
}
