package model

import "time"

// FolderMIMEType is the reserved mime type Drive uses to mark folders.
const FolderMIMEType = "application/vnd.google-apps.folder"

// RefreshErrorFlag is recorded on a session whose last refresh attempt failed.
const RefreshErrorFlag = "RefreshAccessTokenError"

// Session is the signed-in user's authorization state, with tokens in plaintext.
// It only lives for the duration of a request.
type Session struct {
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Error        string
}

// SessionRecord is the persisted form of a Session. Tokens are encrypted.
type SessionRecord struct {
	UserID                string    `json:"user_id" dynamodbav:"user_id"`
	Email                 string    `json:"email" dynamodbav:"email"`
	EncryptedAccessToken  string    `json:"encrypted_access_token" dynamodbav:"encrypted_access_token"`
	EncryptedRefreshToken string    `json:"encrypted_refresh_token" dynamodbav:"encrypted_refresh_token"`
	Expiry                time.Time `json:"expiry" dynamodbav:"expiry"`
	Error                 string    `json:"error,omitempty" dynamodbav:"error,omitempty"`
	UpdatedAt             time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// OAuthState is a one-time value guarding the OAuth callback against CSRF.
type OAuthState struct {
	State     string `json:"state" dynamodbav:"state"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix timestamp)
}

// DriveFile is a file or folder as returned to the browser.
type DriveFile struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	MIMEType      string   `json:"mimeType"`
	Size          *int64   `json:"size,omitempty,string"` // nil when the store reports no size
	ModifiedTime  string   `json:"modifiedTime,omitempty"`
	ThumbnailLink string   `json:"thumbnailLink,omitempty"`
	Parents       []string `json:"parents,omitempty"`
}

// IsFolder reports whether the entry carries the folder mime type.
func (f DriveFile) IsFolder() bool {
	return f.MIMEType == FolderMIMEType
}

// FileLink holds the links Drive exposes for viewing or downloading a file.
type FileLink struct {
	Name           string `json:"name"`
	WebViewLink    string `json:"webViewLink,omitempty"`
	WebContentLink string `json:"webContentLink,omitempty"`
}

// GrantResult is the outcome of one collaborator grant.
type GrantResult struct {
	Email   string `json:"email"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
