package adapter

import (
	"context"
	"io"

	"github.com/studybite/backend/internal/model"
)

const (
	// RootFolderID addresses the top of the user's drive.
	RootFolderID = "root"

	// ListPageSize caps how many children a single listing returns.
	ListPageSize = 100

	// WriterRole is the permission role granted to collaborators.
	WriterRole = "writer"
)

// Upload describes one file to store.
type Upload struct {
	Name     string
	MIMEType string
	Content  io.Reader
}

// StorageAdapter is a client for the remote file store, bound to one access
// token for the lifetime of one request.
type StorageAdapter interface {
	// ListChildren lists the non-trashed direct children of a folder,
	// folders first then by name, at most ListPageSize entries.
	ListChildren(ctx context.Context, folderID string) ([]model.DriveFile, error)

	// CreateFolder creates a folder. An empty parentID creates it at the top level.
	CreateFolder(ctx context.Context, name string, parentID string) (*model.DriveFile, error)

	// UploadFile streams content into a new file under parentID.
	UploadFile(ctx context.Context, upload Upload, parentID string) (*model.DriveFile, error)

	// DeleteFile deletes a file or folder by its ID. Folder contents go with it.
	DeleteFile(ctx context.Context, fileID string) error

	// GetLink returns the view/download links of a file without fetching its content.
	GetLink(ctx context.Context, fileID string) (*model.FileLink, error)

	// GrantAccess shares fileID with email under role, optionally notifying them.
	GrantAccess(ctx context.Context, fileID, email, role string, notify bool) error
}

// StorageProvider builds a StorageAdapter for an access token.
type StorageProvider interface {
	GetAdapter(ctx context.Context, accessToken string) (StorageAdapter, error)
}
