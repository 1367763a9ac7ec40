// Package memory is an in-process stand-in for Google Drive, used by demo
// sign-ins and tests. It follows Drive's listing, deletion and sharing rules.
package memory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/studybite/backend/internal/adapter"
	"github.com/studybite/backend/internal/model"
)

const (
	maxDemoContentSize = 5 * 1024 * 1024 // 5MB
	maxDemoTitleLength = 255
	maxDemoItemCount   = 50

	linkBase = "https://demo.studybite.local/files/"
)

type item struct {
	file        model.DriveFile
	content     []byte
	permissions map[string]string // email -> role
}

// MemoryAdapter implements adapter.StorageAdapter over a map.
type MemoryAdapter struct {
	mu       sync.RWMutex
	items    map[string]*item
	maxItems int
	now      func() time.Time
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		items:    make(map[string]*item),
		maxItems: maxDemoItemCount,
		now:      time.Now,
	}
}

func (m *MemoryAdapter) ListChildren(ctx context.Context, folderID string) ([]model.DriveFile, error) {
	if folderID == "" {
		folderID = adapter.RootFolderID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if folderID != adapter.RootFolderID {
		if _, ok := m.items[folderID]; !ok {
			return nil, notFound("list files", folderID)
		}
	}

	files := []model.DriveFile{}
	for _, it := range m.items {
		if hasParent(it.file, folderID) {
			files = append(files, it.file)
		}
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].IsFolder() != files[j].IsFolder() {
			return files[i].IsFolder()
		}
		return files[i].Name < files[j].Name
	})

	if len(files) > adapter.ListPageSize {
		files = files[:adapter.ListPageSize]
	}
	return files, nil
}

func (m *MemoryAdapter) CreateFolder(ctx context.Context, name string, parentID string) (*model.DriveFile, error) {
	return m.create(ctx, "create folder", name, model.FolderMIMEType, parentID, nil)
}

func (m *MemoryAdapter) UploadFile(ctx context.Context, upload adapter.Upload, parentID string) (*model.DriveFile, error) {
	content, err := io.ReadAll(io.LimitReader(upload.Content, maxDemoContentSize+1))
	if err != nil {
		return nil, &adapter.RemoteError{Op: "upload file", Err: err}
	}
	if len(content) > maxDemoContentSize {
		return nil, badRequest("upload file", fmt.Sprintf("File too large for demo mode (max %d bytes)", maxDemoContentSize))
	}

	mimeType := upload.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return m.create(ctx, "upload file", upload.Name, mimeType, parentID, content)
}

func (m *MemoryAdapter) create(_ context.Context, op, name, mimeType, parentID string, content []byte) (*model.DriveFile, error) {
	if len(name) > maxDemoTitleLength {
		return nil, badRequest(op, fmt.Sprintf("Name too long (max %d characters)", maxDemoTitleLength))
	}
	if parentID == "" {
		parentID = adapter.RootFolderID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) >= m.maxItems {
		return nil, &adapter.RemoteError{
			Op:      op,
			Code:    http.StatusForbidden,
			Message: fmt.Sprintf("Item limit reached for demo mode (max %d items)", m.maxItems),
		}
	}
	if parentID != adapter.RootFolderID {
		parent, ok := m.items[parentID]
		if !ok {
			return nil, notFound(op, parentID)
		}
		if !parent.file.IsFolder() {
			return nil, badRequest(op, "The specified parent is not a folder.")
		}
	}

	it := &item{
		file: model.DriveFile{
			ID:           uuid.NewString(),
			Name:         name,
			MIMEType:     mimeType,
			ModifiedTime: m.now().UTC().Format(time.RFC3339),
			Parents:      []string{parentID},
		},
		content:     content,
		permissions: make(map[string]string),
	}
	if mimeType != model.FolderMIMEType {
		size := int64(len(content))
		it.file.Size = &size
	}
	m.items[it.file.ID] = it

	out := it.file
	return &out, nil
}

// DeleteFile removes fileID and, for folders, everything beneath it.
func (m *MemoryAdapter) DeleteFile(ctx context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[fileID]; !ok {
		return notFound("delete file", fileID)
	}

	doomed := []string{fileID}
	for i := 0; i < len(doomed); i++ {
		for id, it := range m.items {
			if hasParent(it.file, doomed[i]) {
				doomed = append(doomed, id)
			}
		}
	}
	for _, id := range doomed {
		delete(m.items, id)
	}
	return nil
}

func (m *MemoryAdapter) GetLink(ctx context.Context, fileID string) (*model.FileLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.items[fileID]
	if !ok {
		return nil, notFound("get file link", fileID)
	}

	link := &model.FileLink{
		Name:        it.file.Name,
		WebViewLink: linkBase + fileID + "/view",
	}
	if !it.file.IsFolder() {
		link.WebContentLink = linkBase + fileID + "/download"
	}
	return link, nil
}

// GrantAccess records a permission. Drive rejects malformed addresses, and
// so does this.
func (m *MemoryAdapter) GrantAccess(ctx context.Context, fileID, email, role string, notify bool) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return badRequest("grant access", "Invalid email address: "+email)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[fileID]
	if !ok {
		return notFound("grant access", fileID)
	}
	it.permissions[strings.ToLower(email)] = role
	return nil
}

// Permissions returns the grants recorded on fileID.
func (m *MemoryAdapter) Permissions(fileID string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string)
	if it, ok := m.items[fileID]; ok {
		for k, v := range it.permissions {
			out[k] = v
		}
	}
	return out
}

// Content returns the stored bytes of fileID.
func (m *MemoryAdapter) Content(fileID string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.items[fileID]
	if !ok {
		return nil, false
	}
	return it.content, true
}

func hasParent(f model.DriveFile, parentID string) bool {
	for _, p := range f.Parents {
		if p == parentID {
			return true
		}
	}
	return false
}

func notFound(op, id string) error {
	return &adapter.RemoteError{
		Op:      op,
		Code:    http.StatusNotFound,
		Message: "File not found: " + id + ".",
		Err:     adapter.ErrNotFound,
	}
}

func badRequest(op, msg string) error {
	return &adapter.RemoteError{Op: op, Code: http.StatusBadRequest, Message: msg}
}

// Provider hands out one MemoryAdapter per access token, so each demo
// user sees their own drive for the life of the process.
type Provider struct {
	mu       sync.Mutex
	adapters map[string]*MemoryAdapter
}

func NewProvider() *Provider {
	return &Provider{adapters: make(map[string]*MemoryAdapter)}
}

func (p *Provider) GetAdapter(ctx context.Context, accessToken string) (adapter.StorageAdapter, error) {
	return p.Adapter(accessToken), nil
}

// Adapter returns the concrete adapter for accessToken, creating it on first use.
func (p *Provider) Adapter(accessToken string) *MemoryAdapter {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.adapters[accessToken]
	if !ok {
		a = NewMemoryAdapter()
		p.adapters[accessToken] = a
	}
	return a
}

// Drop discards the drive held for accessToken. A later Adapter call for the
// same token starts from an empty drive.
func (p *Provider) Drop(accessToken string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.adapters, accessToken)
}
