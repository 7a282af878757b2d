// Package document manages file-metadata records attached to workflow
// entities. Upload storage itself is an external collaborator; storage keys
// are opaque here.
package document

import (
	"time"

	"github.com/legalaid-center/platform/internal/identity"
	"github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// ParentKind identifies the entity a document is attached to
type ParentKind string

const (
	ParentCase            ParentKind = "case"
	ParentTask            ParentKind = "task"
	ParentJudicialService ParentKind = "judicial_service"
	ParentBeneficiary     ParentKind = "beneficiary"
)

// Document is a file-metadata record. Immutable after creation.
type Document struct {
	ID         types.ID   `json:"id"`
	ParentKind ParentKind `json:"parent_kind"`
	ParentID   types.ID   `json:"parent_id"`

	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`

	// IsPublic gates beneficiary visibility. Beneficiary uploads are always
	// public by construction; staff choose the flag.
	IsPublic bool `json:"is_public"`

	UploadedBy types.ID  `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// New creates a document metadata record for an upload. Beneficiary uploads
// are forced public regardless of the requested flag.
func New(p identity.Principal, parentKind ParentKind, parentID types.ID, storageKey, fileName, mimeType string, sizeBytes int64, isPublic bool) (*Document, error) {
	if !p.Can(identity.CapDocumentAttach) {
		return nil, errors.Forbidden("not allowed to attach documents")
	}
	if parentID.IsZero() {
		return nil, errors.Validation("parent is required", map[string]string{"parent_id": "required"})
	}
	if fileName == "" || storageKey == "" {
		return nil, errors.Validation("file is required", map[string]string{"file_name": "required"})
	}

	if p.IsBeneficiary() || !p.Can(identity.CapDocumentAttachInternal) {
		isPublic = true
	}

	return &Document{
		ID:         types.NewID(),
		ParentKind: parentKind,
		ParentID:   parentID,
		StorageKey: storageKey,
		FileName:   fileName,
		MimeType:   mimeType,
		SizeBytes:  sizeBytes,
		IsPublic:   isPublic,
		UploadedBy: p.UserID,
		CreatedAt:  time.Now(),
	}, nil
}

// VisibleTo applies the document visibility rule: staff see everything,
// beneficiaries only public documents. Parent-level access is checked by the
// caller's guard before documents are listed at all.
func (d *Document) VisibleTo(p identity.Principal) bool {
	if p.IsZero() {
		return false
	}
	if p.IsStaff() {
		return true
	}
	return d.IsPublic
}

// FilterVisible returns the documents the principal may see.
func FilterVisible(p identity.Principal, docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if d.VisibleTo(p) {
			out = append(out, d)
		}
	}
	return out
}
