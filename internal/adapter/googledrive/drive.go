package googledrive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/studybite/backend/internal/adapter"
	"github.com/studybite/backend/internal/model"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const fileFields = "id, name, mimeType, size, modifiedTime, thumbnailLink, parents"

// DriveAdapter implements adapter.StorageAdapter for Google Drive.
type DriveAdapter struct {
	service *drive.Service
}

// NewDriveAdapter creates a new DriveAdapter. opts must carry the user's
// credentials (a token source or an authenticated HTTP client).
func NewDriveAdapter(ctx context.Context, opts ...option.ClientOption) (*DriveAdapter, error) {
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}
	return &DriveAdapter{service: srv}, nil
}

// ListChildren lists the non-trashed direct children of folderID.
func (d *DriveAdapter) ListChildren(ctx context.Context, folderID string) ([]model.DriveFile, error) {
	if folderID == "" {
		folderID = adapter.RootFolderID
	}

	q := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(folderID))

	r, err := d.service.Files.List().
		Context(ctx).
		Q(q).
		OrderBy("folder,name").
		PageSize(adapter.ListPageSize).
		Fields(googleapi.Field("files(" + fileFields + ")")).
		Do()
	if err != nil {
		return nil, wrapErr("list files", err)
	}

	files := make([]model.DriveFile, 0, len(r.Files))
	for _, f := range r.Files {
		files = append(files, toDriveFile(f))
	}
	return files, nil
}

// CreateFolder creates a folder under parentID, or at the top level when parentID is empty.
func (d *DriveAdapter) CreateFolder(ctx context.Context, name string, parentID string) (*model.DriveFile, error) {
	f := &drive.File{
		Name:     name,
		MimeType: model.FolderMIMEType,
	}
	if parentID != "" {
		f.Parents = []string{parentID}
	}

	res, err := d.service.Files.Create(f).
		Context(ctx).
		Fields(fileFields).
		Do()
	if err != nil {
		return nil, wrapErr("create folder", err)
	}

	out := toDriveFile(res)
	return &out, nil
}

// UploadFile streams upload.Content to a new file under parentID.
func (d *DriveAdapter) UploadFile(ctx context.Context, upload adapter.Upload, parentID string) (*model.DriveFile, error) {
	f := &drive.File{
		Name:     upload.Name,
		MimeType: upload.MIMEType,
	}
	if parentID != "" {
		f.Parents = []string{parentID}
	}

	res, err := d.service.Files.Create(f).
		Context(ctx).
		Media(upload.Content, googleapi.ContentType(upload.MIMEType)).
		Fields(fileFields).
		Do()
	if err != nil {
		return nil, wrapErr("upload file", err)
	}

	out := toDriveFile(res)
	return &out, nil
}

// DeleteFile permanently deletes a file. Drive removes folder contents with it.
func (d *DriveAdapter) DeleteFile(ctx context.Context, fileID string) error {
	if err := d.service.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return wrapErr("delete file", err)
	}
	return nil
}

// GetLink fetches only the link metadata of a file.
func (d *DriveAdapter) GetLink(ctx context.Context, fileID string) (*model.FileLink, error) {
	f, err := d.service.Files.Get(fileID).
		Context(ctx).
		Fields("name, webViewLink, webContentLink").
		Do()
	if err != nil {
		return nil, wrapErr("get file link", err)
	}

	return &model.FileLink{
		Name:           f.Name,
		WebViewLink:    f.WebViewLink,
		WebContentLink: f.WebContentLink,
	}, nil
}

// GrantAccess adds a user permission on fileID.
func (d *DriveAdapter) GrantAccess(ctx context.Context, fileID, email, role string, notify bool) error {
	perm := &drive.Permission{
		Type:         "user",
		Role:         role,
		EmailAddress: email,
	}

	_, err := d.service.Permissions.Create(fileID, perm).
		Context(ctx).
		SendNotificationEmail(notify).
		Fields("id").
		Do()
	if err != nil {
		return wrapErr("grant access", err)
	}
	return nil
}

// googleAppsMIMEPrefix marks folders and native Docs/Sheets/Slides, which
// Drive reports without a byte size.
const googleAppsMIMEPrefix = "application/vnd.google-apps."

func toDriveFile(f *drive.File) model.DriveFile {
	out := model.DriveFile{
		ID:            f.Id,
		Name:          f.Name,
		MIMEType:      f.MimeType,
		ModifiedTime:  f.ModifiedTime,
		ThumbnailLink: f.ThumbnailLink,
		Parents:       f.Parents,
	}
	// Binary files always carry a size, so zero means empty.
	if !strings.HasPrefix(f.MimeType, googleAppsMIMEPrefix) {
		size := f.Size
		out.Size = &size
	}
	return out
}

// wrapErr keeps the Drive status code and message so handlers can surface them.
func wrapErr(op string, err error) error {
	rErr := &adapter.RemoteError{Op: op, Err: err}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		rErr.Code = apiErr.Code
		rErr.Message = apiErr.Message
	}
	return rErr
}

// escapeQuery escapes a value for use inside single quotes in a Drive query.
func escapeQuery(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\'' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
