package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"
	"github.com/studybite/backend/internal/adapter"
	"github.com/studybite/backend/internal/auth"
	"github.com/studybite/backend/internal/batch"
	"github.com/studybite/backend/internal/model"
)

var errBlankEmail = errors.New("email address is empty")

// TokenResolver yields a valid access token for a signed-in user.
type TokenResolver interface {
	AccessToken(ctx context.Context, userID string) (string, error)
}

// DriveHandler handles the file and sharing operations.
type DriveHandler struct {
	tokens           TokenResolver
	storageProvider  adapter.StorageProvider
	jwtSecret        string
	sharedFolderName string
}

// NewDriveHandler creates a new DriveHandler.
func NewDriveHandler(tokens TokenResolver, provider adapter.StorageProvider, jwtSecret, sharedFolderName string) *DriveHandler {
	return &DriveHandler{
		tokens:           tokens,
		storageProvider:  provider,
		jwtSecret:        jwtSecret,
		sharedFolderName: sharedFolderName,
	}
}

// getStorageAdapter resolves the caller's session and binds a storage client
// to its access token.
func (h *DriveHandler) getStorageAdapter(ctx context.Context, req events.APIGatewayProxyRequest) (adapter.StorageAdapter, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrUnauthenticated, err)
	}

	token, err := h.tokens.AccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	storage, err := h.storageProvider.GetAdapter(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage adapter: %w", err)
	}
	return storage, nil
}

// storageError maps a getStorageAdapter failure to a response.
func storageError(err error) (events.APIGatewayProxyResponse, error) {
	if errors.Is(err, auth.ErrUnauthenticated) {
		return unauthorized()
	}
	log.Error().Err(err).Msg("storage adapter unavailable")
	return failure(http.StatusInternalServerError, "Failed to get storage adapter")
}

// ListFiles lists the children of folderId (or the drive root), split into
// folders and files.
func (h *DriveHandler) ListFiles(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	storage, err := h.getStorageAdapter(ctx, req)
	if err != nil {
		return storageError(err)
	}

	folderID := strings.TrimSpace(req.QueryStringParameters["folderId"])

	entries, err := storage.ListChildren(ctx, folderID)
	if err != nil {
		log.Error().Err(err).Str("folder_id", folderID).Msg("ListChildren failed")
		return jsonResponse(http.StatusInternalServerError, model.ListFilesResponse{
			Files:   []model.DriveFile{},
			Folders: []model.DriveFile{},
			Message: adapter.ProviderMessage(err, "Failed to list files"),
		})
	}

	resp := model.ListFilesResponse{
		Files:   []model.DriveFile{},
		Folders: []model.DriveFile{},
		Success: true,
	}
	for _, f := range entries {
		if f.IsFolder() {
			resp.Folders = append(resp.Folders, f)
		} else {
			resp.Files = append(resp.Files, f)
		}
	}
	return jsonResponse(http.StatusOK, resp)
}

// CreateFolder creates a folder under parentFolderId.
func (h *DriveHandler) CreateFolder(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	storage, err := h.getStorageAdapter(ctx, req)
	if err != nil {
		return storageError(err)
	}

	var payload model.CreateFolderRequest
	if err := json.Unmarshal([]byte(req.Body), &payload); err != nil {
		return failure(http.StatusBadRequest, "Invalid request body")
	}

	name := strings.TrimSpace(payload.Name)
	parentID := strings.TrimSpace(payload.ParentFolderID)
	if name == "" || parentID == "" {
		return failure(http.StatusBadRequest, "Missing required fields")
	}

	folder, err := storage.CreateFolder(ctx, name, parentID)
	if err != nil {
		log.Error().Err(err).Str("parent_id", parentID).Msg("CreateFolder failed")
		return failure(http.StatusInternalServerError, adapter.ProviderMessage(err, "Failed to create folder"))
	}

	return jsonResponse(http.StatusOK, model.CreateFolderResponse{
		Folder:  folder,
		Success: true,
		Message: "Folder created successfully",
	})
}

// UploadFile stores every "file" part of a multipart request under
// parentFolderId, one at a time in order. The first failure ends the batch.
func (h *DriveHandler) UploadFile(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	storage, err := h.getStorageAdapter(ctx, req)
	if err != nil {
		return storageError(err)
	}

	form, err := parseMultipartForm(req)
	if err != nil {
		return failure(http.StatusBadRequest, "Missing file or parentFolderId")
	}
	defer func() {
		if err := form.RemoveAll(); err != nil {
			log.Warn().Err(err).Msg("failed to remove multipart temp files")
		}
	}()

	parts := form.File["file"]
	parentID := strings.TrimSpace(formValue(form, "parentFolderId"))
	if len(parts) == 0 || parentID == "" {
		return failure(http.StatusBadRequest, "Missing file or parentFolderId")
	}

	var stored []model.DriveFile
	res := batch.RunUntilFailure(ctx, parts, func(ctx context.Context, fh *multipart.FileHeader) error {
		f, err := uploadPart(ctx, storage, fh, parentID)
		if err != nil {
			return err
		}
		stored = append(stored, *f)
		return nil
	})

	if failed, ok := res.FirstFailure(); ok {
		log.Error().Err(failed.Err).
			Str("file_name", failed.Item.Filename).
			Int("attempted", res.Attempted()).
			Int("total", len(parts)).
			Msg("UploadFile failed")
		return jsonResponse(http.StatusInternalServerError, model.UploadFileResponse{
			Files:   nonNil(stored),
			Success: false,
			Message: adapter.ProviderMessage(failed.Err, "Failed to upload file"),
		})
	}

	message := "File uploaded successfully"
	if len(stored) > 1 {
		message = fmt.Sprintf("%d files uploaded successfully", len(stored))
	}
	return jsonResponse(http.StatusOK, model.UploadFileResponse{
		File:    &stored[0],
		Files:   stored,
		Success: true,
		Message: message,
	})
}

func uploadPart(ctx context.Context, storage adapter.StorageAdapter, fh *multipart.FileHeader, parentID string) (*model.DriveFile, error) {
	content, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload part: %w", err)
	}
	defer content.Close()

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return storage.UploadFile(ctx, adapter.Upload{
		Name:     fh.Filename,
		MIMEType: mimeType,
		Content:  content,
	}, parentID)
}

// DeleteFile deletes a file or folder. Folder contents go with it.
func (h *DriveHandler) DeleteFile(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	storage, err := h.getStorageAdapter(ctx, req)
	if err != nil {
		return storageError(err)
	}

	fileID := strings.TrimSpace(req.QueryStringParameters["fileId"])
	if fileID == "" {
		return failure(http.StatusBadRequest, "Missing fileId")
	}

	if err := storage.DeleteFile(ctx, fileID); err != nil {
		log.Error().Err(err).Str("file_id", fileID).Msg("DeleteFile failed")
		return failure(http.StatusInternalServerError, adapter.ProviderMessage(err, "Failed to delete file"))
	}

	return jsonResponse(http.StatusOK, model.Response{Success: true, Message: "File deleted successfully"})
}

// GetFileLink returns a file's view and download links. File content never
// passes through the backend.
func (h *DriveHandler) GetFileLink(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	storage, err := h.getStorageAdapter(ctx, req)
	if err != nil {
		return storageError(err)
	}

	fileID := strings.TrimSpace(req.QueryStringParameters["fileId"])
	if fileID == "" {
		return failure(http.StatusBadRequest, "Missing fileId")
	}

	link, err := storage.GetLink(ctx, fileID)
	if err != nil {
		log.Error().Err(err).Str("file_id", fileID).Msg("GetLink failed")
		return failure(http.StatusInternalServerError, adapter.ProviderMessage(err, "Failed to get file"))
	}

	return jsonResponse(http.StatusOK, model.FileLinkResponse{
		WebViewLink:    link.WebViewLink,
		WebContentLink: link.WebContentLink,
		Name:           link.Name,
		Success:        true,
	})
}

// SetupDrive creates the top-level shared folder and invites friendsEmails
// as writers. Failed invitations are reported but do not fail the setup.
func (h *DriveHandler) SetupDrive(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	storage, err := h.getStorageAdapter(ctx, req)
	if err != nil {
		return storageError(err)
	}

	var payload model.SetupDriveRequest
	if strings.TrimSpace(req.Body) == "" {
		return failure(http.StatusBadRequest, "Missing friendsEmails")
	}
	if err := json.Unmarshal([]byte(req.Body), &payload); err != nil {
		return failure(http.StatusBadRequest, "Invalid request body")
	}
	if payload.FriendsEmails == nil {
		return failure(http.StatusBadRequest, "Missing friendsEmails")
	}

	folder, err := storage.CreateFolder(ctx, h.sharedFolderName, "")
	if err != nil {
		log.Error().Err(err).Msg("SetupDrive CreateFolder failed")
		return failure(http.StatusInternalServerError, adapter.ProviderMessage(err, "Failed to setup drive"))
	}
	if folder == nil || folder.ID == "" {
		return failure(http.StatusInternalServerError, "Failed to create folder")
	}

	results, _ := grantAll(ctx, storage, folder.ID, *payload.FriendsEmails)

	return jsonResponse(http.StatusOK, model.SetupDriveResponse{
		DriveID: folder.ID,
		Success: true,
		Message: "Shared folder created successfully",
		Results: results,
	})
}

// AddCollaborators grants writer access on driveId to each email. Every
// address is attempted regardless of earlier failures.
func (h *DriveHandler) AddCollaborators(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	storage, err := h.getStorageAdapter(ctx, req)
	if err != nil {
		return storageError(err)
	}

	var payload model.AddCollaboratorsRequest
	if err := json.Unmarshal([]byte(req.Body), &payload); err != nil {
		return failure(http.StatusBadRequest, "Invalid request body")
	}

	driveID := strings.TrimSpace(payload.DriveID)
	if driveID == "" || len(payload.Emails) == 0 {
		return failure(http.StatusBadRequest, "Missing driveId or emails")
	}

	results, res := grantAll(ctx, storage, driveID, payload.Emails)

	return jsonResponse(http.StatusOK, model.GrantResponse{
		Success: res.AnySucceeded(),
		Message: grantMessage(res.SuccessCount(), res.FailureCount()),
		Results: results,
	})
}

// grantAll shares folderID with each email, continuing past failures.
// There is exactly one result per input address, in input order.
func grantAll(ctx context.Context, storage adapter.StorageAdapter, folderID string, emails []string) ([]model.GrantResult, batch.Result[string]) {
	res := batch.RunAll(ctx, emails, func(ctx context.Context, email string) error {
		trimmed := strings.TrimSpace(email)
		if trimmed == "" {
			return errBlankEmail
		}
		return storage.GrantAccess(ctx, folderID, trimmed, adapter.WriterRole, true)
	})

	results := make([]model.GrantResult, 0, len(res.Outcomes))
	for _, o := range res.Outcomes {
		r := model.GrantResult{Email: o.Item, Success: o.Succeeded()}
		if o.Err != nil {
			log.Warn().Err(o.Err).Str("email", o.Item).Str("folder_id", folderID).Msg("failed to add collaborator")
			r.Error = adapter.ProviderMessage(o.Err, o.Err.Error())
		}
		results = append(results, r)
	}
	return results, res
}

func grantMessage(succeeded, failed int) string {
	if failed == 0 {
		return fmt.Sprintf("Successfully added %d collaborator(s)", succeeded)
	}
	return fmt.Sprintf("Added %d collaborator(s), %d failed", succeeded, failed)
}

func nonNil(files []model.DriveFile) []model.DriveFile {
	if files == nil {
		return []model.DriveFile{}
	}
	return files
}
