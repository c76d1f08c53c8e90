// models.go
// Defines the core data structures shared by the gallery, auth and assistant packages.

package models

import (
	"time"
)

// GalleryCollection is the Firestore collection holding gallery records.
const GalleryCollection = "gallery"

// Location is the category tag attached to every gallery item.
type Location string

const (
	LocationDakarGoree Location = "Dakar / Gorée"
	LocationLacRose    Location = "Lac Rose"
	LocationSineSaloum Location = "Sine-Saloum"
	LocationLompoul    Location = "Désert de Lompoul"
	LocationFathala    Location = "Fathala"
	LocationBandia     Location = "Réserve de Bandia"
	LocationOther      Location = "Autre"
)

// Locations lists the values accepted by the admin upload and edit forms.
var Locations = []Location{
	LocationDakarGoree,
	LocationLacRose,
	LocationSineSaloum,
	LocationLompoul,
	LocationFathala,
	LocationBandia,
	LocationOther,
}

// Valid reports whether l is one of the fixed locations.
func (l Location) Valid() bool {
	for _, known := range Locations {
		if l == known {
			return true
		}
	}
	return false
}

// MediaKind tells the gallery how to render an item.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// GalleryItem maps to a document of the gallery collection. The document ID
// is the item ID and is never stored as a field.
type GalleryItem struct {
	ID             string    `firestore:"-" json:"id"`
	CollectionID   string    `firestore:"-" json:"collectionId"`
	CollectionName string    `firestore:"-" json:"collectionName"`
	Title          string    `firestore:"title" json:"title"`
	Location       Location  `firestore:"location" json:"location"`
	Image          string    `firestore:"image" json:"image"` // Full download URL
	Description    string    `firestore:"description" json:"description,omitempty"`
	Created        time.Time `firestore:"created" json:"created"`
	Updated        time.Time `firestore:"updated" json:"updated"`
	Kind           MediaKind `firestore:"-" json:"kind,omitempty"`
}

// GalleryFields are the editable metadata of an item.
type GalleryFields struct {
	Title       string   `json:"title" validate:"required"`
	Location    Location `json:"location" validate:"required"`
	Description string   `json:"description"`
}

// AuditCollection is the append-only collection receiving admin actions.
const AuditCollection = "adminLogs"

// AuditLog represents an audit log entry.
type AuditLog struct {
	UserID    string                 `firestore:"userId" json:"user_id"`
	UserEmail string                 `firestore:"userEmail" json:"user_email"`
	Action    string                 `firestore:"action" json:"action"`
	Details   map[string]interface{} `firestore:"details" json:"details"`
	Timestamp time.Time              `firestore:"timestamp" json:"timestamp"`
	IPInfo    IPInfo                 `firestore:"ipInfo" json:"ip_info"`
}

// IPInfo is the best-effort caller information attached to audit entries.
type IPInfo struct {
	IP        string `firestore:"ip,omitempty" json:"ip,omitempty"`
	Timestamp string `firestore:"timestamp" json:"timestamp"`
}

// AdminUser is the identity of the single admin account.
type AdminUser struct {
	UserID     string    `firestore:"user_id" json:"uid"`
	Email      string    `firestore:"email" json:"email"`
	CreatedAt  time.Time `firestore:"created_at" json:"createdAt"`
	LastSignIn time.Time `firestore:"last_sign_in" json:"lastSignIn"`
}

// PersistedSession is the stored form of the admin session, restored at startup.
type PersistedSession struct {
	SessionID    string    `firestore:"session_id"`
	UserID       string    `firestore:"user_id"`
	Email        string    `firestore:"email"`
	Token        string    `firestore:"token"`
	RefreshToken string    `firestore:"refresh_token"`
	ExpiresAt    time.Time `firestore:"expires_at"` // End of the refresh window
	UpdatedAt    time.Time `firestore:"updated_at"`
}

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

// ChatMessage is one turn of the assistant conversation. It is never persisted.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Text    string   `json:"text"`
	IsError bool     `json:"isError,omitempty"`
}

// ChatRequest is the payload of the assistant endpoint.
type ChatRequest struct {
	Prompt string `json:"prompt"`
}

// AuthRequest is the admin sign-in payload.
type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse returns the session tokens and the admin profile.
type AuthResponse struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    time.Time  `json:"expires_at"`
	User         *AdminUser `json:"user"`
}
